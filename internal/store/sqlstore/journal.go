package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"storyia/internal/models"
	"storyia/internal/store"
)

// entryFields are the writable journal columns, in the order entryValues
// and scanEntry use them.
var entryFields = []string{
	"title", "content", "entry_date", "mood", "time_of_day",
	"main_mood_level", "energy_level", "sleep_quality", "physical_health",
	"location", "weather", "season",
	"main_subject", "secondary_themes",
	"favorite_moment", "challenge", "achievement", "surprise",
	"daily_goal", "accomplishments", "lesson_learned", "gratitude",
	"physical_activity", "meditation", "screen_time", "meals_quality",
}

var entryColumns = "id, user_id, " + strings.Join(entryFields, ", ") + ", created_at, updated_at"

func entryValues(e *models.JournalEntry) []any {
	return []any{
		e.Title, e.Content, e.EntryDate, e.Mood, e.TimeOfDay,
		e.MainMoodLevel, e.EnergyLevel, e.SleepQuality, e.PhysicalHealth,
		e.Location, e.Weather, e.Season,
		e.MainSubject, e.SecondaryThemes,
		e.FavoriteMoment, e.Challenge, e.Achievement, e.Surprise,
		e.DailyGoal, e.Accomplishments, e.LessonLearned, e.Gratitude,
		e.PhysicalActivity, e.Meditation, e.ScreenTime, e.MealsQuality,
	}
}

func scanEntry(row scanner) (models.JournalEntry, error) {
	var e models.JournalEntry
	err := row.Scan(&e.ID, &e.UserID,
		&e.Title, &e.Content, &e.EntryDate, &e.Mood, &e.TimeOfDay,
		&e.MainMoodLevel, &e.EnergyLevel, &e.SleepQuality, &e.PhysicalHealth,
		&e.Location, &e.Weather, &e.Season,
		&e.MainSubject, &e.SecondaryThemes,
		&e.FavoriteMoment, &e.Challenge, &e.Achievement, &e.Surprise,
		&e.DailyGoal, &e.Accomplishments, &e.LessonLearned, &e.Gratitude,
		&e.PhysicalActivity, &e.Meditation, &e.ScreenTime, &e.MealsQuality,
		&e.CreatedAt, &e.UpdatedAt)
	e.Tags, e.Emotions, e.People, e.Media = []string{}, []string{}, []string{}, []models.MediaAsset{}
	return e, mapErr(err)
}

func (s *SQLStore) CreateEntry(ctx context.Context, e *models.JournalEntry) (int64, error) {
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	query := "INSERT INTO journal_entries (user_id, " + strings.Join(entryFields, ", ") +
		", created_at, updated_at) VALUES (?, " + placeholders(len(entryFields)) + ", ?, ?)"
	args := append([]any{e.UserID}, entryValues(e)...)
	args = append(args, now, now)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.insert(ctx, tx, query, args...)
		if err != nil {
			return err
		}
		e.ID = id
		return s.setLabels(ctx, tx, id, e.Labels())
	})
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *SQLStore) GetEntry(ctx context.Context, userID, id int64) (models.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+entryColumns+" FROM journal_entries WHERE id = ? AND user_id = ?"), id, userID)
	e, err := scanEntry(row)
	if err != nil {
		return e, err
	}
	entries := []models.JournalEntry{e}
	if err := s.loadRelations(ctx, entries); err != nil {
		return e, err
	}
	return entries[0], nil
}

// ListEntries returns the user's entries, newest first. A non-empty query
// matches title, content or entry date.
func (s *SQLStore) ListEntries(ctx context.Context, userID int64, query string) ([]models.JournalEntry, error) {
	q := "SELECT " + entryColumns + " FROM journal_entries WHERE user_id = ?"
	args := []any{userID}
	if strings.TrimSpace(query) != "" {
		q += " AND (LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR entry_date LIKE ?)"
		p := likePattern(query)
		args = append(args, p, p, p)
	}
	q += " ORDER BY entry_date DESC, created_at DESC, id DESC"
	return s.queryEntries(ctx, q, args...)
}

// ListEntriesBetween returns entries dated within [from, to], oldest first.
func (s *SQLStore) ListEntriesBetween(ctx context.Context, userID int64, from, to string) ([]models.JournalEntry, error) {
	q := "SELECT " + entryColumns + " FROM journal_entries WHERE user_id = ? AND entry_date >= ? AND entry_date <= ? ORDER BY entry_date ASC, id ASC"
	return s.queryEntries(ctx, q, userID, from, to)
}

func (s *SQLStore) queryEntries(ctx context.Context, query string, args ...any) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	entries := []models.JournalEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadRelations fills labels and media for entries in two batched queries.
func (s *SQLStore) loadRelations(ctx context.Context, entries []models.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	index := make(map[int64]*models.JournalEntry, len(entries))
	ids := make([]any, 0, len(entries))
	for i := range entries {
		index[entries[i].ID] = &entries[i]
		ids = append(ids, entries[i].ID)
	}
	in := "(" + placeholders(len(ids)) + ")"

	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT el.entry_id, l.kind, l.name FROM entry_labels el JOIN labels l ON l.id = el.label_id WHERE el.entry_id IN "+in+" ORDER BY l.name"), ids...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var entryID int64
		var kind, name string
		if err := rows.Scan(&entryID, &kind, &name); err != nil {
			rows.Close()
			return err
		}
		e := index[entryID]
		switch kind {
		case models.LabelTag:
			e.Tags = append(e.Tags, name)
		case models.LabelEmotion:
			e.Emotions = append(e.Emotions, name)
		case models.LabelPerson:
			e.People = append(e.People, name)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, s.rebind(
		"SELECT id, entry_id, file, caption, media_type, uploaded_at FROM media_assets WHERE entry_id IN "+in+" ORDER BY uploaded_at, id"), ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m models.MediaAsset
		if err := rows.Scan(&m.ID, &m.EntryID, &m.File, &m.Caption, &m.MediaType, &m.UploadedAt); err != nil {
			return err
		}
		index[m.EntryID].Media = append(index[m.EntryID].Media, m)
	}
	return rows.Err()
}

// setLabels replaces the entry's labels, creating missing label rows.
func (s *SQLStore) setLabels(ctx context.Context, tx *sql.Tx, entryID int64, labels map[string][]string) error {
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM entry_labels WHERE entry_id = ?"), entryID); err != nil {
		return err
	}
	for kind, names := range labels {
		seen := map[string]bool{}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			labelID, err := s.labelID(ctx, tx, kind, name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO entry_labels (entry_id, label_id) VALUES (?, ?)"), entryID, labelID); err != nil {
				return mapErr(err)
			}
		}
	}
	return nil
}

func (s *SQLStore) labelID(ctx context.Context, tx *sql.Tx, kind, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, s.rebind("SELECT id FROM labels WHERE kind = ? AND name = ?"), kind, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return s.insert(ctx, tx, "INSERT INTO labels (kind, name) VALUES (?, ?)", kind, name)
}

// EntryExists reports whether the user already has an entry with this date
// and title, ignoring exceptID.
func (s *SQLStore) EntryExists(ctx context.Context, userID int64, date, title string, exceptID int64) (bool, error) {
	n, err := s.count(ctx,
		"SELECT COUNT(*) FROM journal_entries WHERE user_id = ? AND entry_date = ? AND title = ? AND id <> ?",
		userID, date, title, exceptID)
	return n > 0, err
}

func (s *SQLStore) UpdateEntry(ctx context.Context, e models.JournalEntry) error {
	sets := make([]string, len(entryFields))
	for i, f := range entryFields {
		sets[i] = f + " = ?"
	}
	query := "UPDATE journal_entries SET " + strings.Join(sets, ", ") + ", updated_at = ? WHERE id = ? AND user_id = ?"
	args := append(entryValues(&e), time.Now().UTC(), e.ID, e.UserID)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.exec(ctx, tx, query, args...); err != nil {
			return err
		}
		return s.setLabels(ctx, tx, e.ID, e.Labels())
	})
}

// DeleteEntry removes the entry and returns the media files it referenced.
func (s *SQLStore) DeleteEntry(ctx context.Context, userID, id int64) ([]string, error) {
	var files []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.rebind(
			"SELECT m.file FROM media_assets m JOIN journal_entries e ON e.id = m.entry_id WHERE e.id = ? AND e.user_id = ?"), id, userID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var f string
			if err := rows.Scan(&f); err != nil {
				rows.Close()
				return err
			}
			if f != "" {
				files = append(files, f)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
		return s.exec(ctx, tx, "DELETE FROM journal_entries WHERE id = ? AND user_id = ?", id, userID)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListTags returns every journal tag name known to the system.
func (s *SQLStore) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT name FROM labels WHERE kind = ? ORDER BY name"), models.LabelTag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// AddMedia attaches a file to one of the user's entries.
func (s *SQLStore) AddMedia(ctx context.Context, userID int64, m *models.MediaAsset) (int64, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM journal_entries WHERE id = ? AND user_id = ?", m.EntryID, userID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}
	if m.UploadedAt.IsZero() {
		m.UploadedAt = time.Now().UTC()
	}
	id, err := s.insert(ctx, s.db,
		"INSERT INTO media_assets (entry_id, file, caption, media_type, uploaded_at) VALUES (?, ?, ?, ?, ?)",
		m.EntryID, m.File, m.Caption, m.MediaType, m.UploadedAt)
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

// DeleteMedia removes a media row and returns its file path.
func (s *SQLStore) DeleteMedia(ctx context.Context, userID, entryID, mediaID int64) (string, error) {
	var file string
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT m.file FROM media_assets m JOIN journal_entries e ON e.id = m.entry_id WHERE m.id = ? AND m.entry_id = ? AND e.user_id = ?"),
		mediaID, entryID, userID).Scan(&file)
	if err != nil {
		return "", mapErr(err)
	}
	if err := s.exec(ctx, s.db, "DELETE FROM media_assets WHERE id = ?", mediaID); err != nil {
		return "", err
	}
	return file, nil
}
