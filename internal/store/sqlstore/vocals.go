package sqlstore

import (
	"context"
	"math"
	"strings"
	"time"

	"storyia/internal/models"
)

const vocalColumns = "id, user_id, audio_file, duration, transcription, transcribed_at, sentiment, sentiment_score, analyzed_at, summary, category, topics, keywords, context, created_at, updated_at"

func scanVocal(row scanner) (models.VocalNote, error) {
	var v models.VocalNote
	err := row.Scan(&v.ID, &v.UserID, &v.AudioFile, &v.Duration,
		&v.Transcription, &v.TranscribedAt,
		&v.Sentiment, &v.SentimentScore, &v.AnalyzedAt,
		&v.Summary, &v.Category, &v.Topics, &v.Keywords, &v.Context,
		&v.CreatedAt, &v.UpdatedAt)
	return v, mapErr(err)
}

func (s *SQLStore) CreateVocal(ctx context.Context, v *models.VocalNote) (int64, error) {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	id, err := s.insert(ctx, s.db,
		"INSERT INTO vocal_notes (user_id, audio_file, duration, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		v.UserID, v.AudioFile, v.Duration, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return 0, err
	}
	v.ID = id
	return id, nil
}

func (s *SQLStore) GetVocal(ctx context.Context, userID, id int64) (models.VocalNote, error) {
	return scanVocal(s.db.QueryRowContext(ctx, s.rebind("SELECT "+vocalColumns+" FROM vocal_notes WHERE id = ? AND user_id = ?"), id, userID))
}

// ListVocals returns the user's notes, newest first. Category and sentiment
// match exactly unless empty or "all"; search looks at transcription,
// summary and context.
func (s *SQLStore) ListVocals(ctx context.Context, userID int64, f models.VocalFilter) ([]models.VocalNote, error) {
	query := "SELECT " + vocalColumns + " FROM vocal_notes WHERE user_id = ?"
	args := []any{userID}
	if f.Category != "" && f.Category != "all" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Sentiment != "" && f.Sentiment != "all" {
		query += " AND sentiment = ?"
		args = append(args, f.Sentiment)
	}
	if strings.TrimSpace(f.Search) != "" {
		query += " AND (LOWER(COALESCE(transcription, '')) LIKE ? OR LOWER(COALESCE(summary, '')) LIKE ? OR LOWER(COALESCE(context, '')) LIKE ?)"
		p := likePattern(f.Search)
		args = append(args, p, p, p)
	}
	query += " ORDER BY created_at DESC, id DESC"
	return s.queryVocals(ctx, query, args...)
}

// ListVocalsBetween returns notes created within [from, to), oldest first.
func (s *SQLStore) ListVocalsBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.VocalNote, error) {
	return s.queryVocals(ctx,
		"SELECT "+vocalColumns+" FROM vocal_notes WHERE user_id = ? AND created_at >= ? AND created_at < ? ORDER BY created_at ASC, id ASC",
		userID, from.UTC(), to.UTC())
}

func (s *SQLStore) queryVocals(ctx context.Context, query string, args ...any) ([]models.VocalNote, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.VocalNote{}
	for rows.Next() {
		v, err := scanVocal(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, v)
	}
	return notes, rows.Err()
}

func (s *SQLStore) DeleteVocal(ctx context.Context, userID, id int64) (models.VocalNote, error) {
	v, err := s.GetVocal(ctx, userID, id)
	if err != nil {
		return v, err
	}
	return v, s.exec(ctx, s.db, "DELETE FROM vocal_notes WHERE id = ? AND user_id = ?", id, userID)
}

func (s *SQLStore) SetTranscription(ctx context.Context, userID, id int64, text string, at time.Time) error {
	return s.exec(ctx, s.db,
		"UPDATE vocal_notes SET transcription = ?, transcribed_at = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		text, at.UTC(), time.Now().UTC(), id, userID)
}

func (s *SQLStore) SetSentiment(ctx context.Context, userID, id int64, label string, score float64, at time.Time) error {
	return s.exec(ctx, s.db,
		"UPDATE vocal_notes SET sentiment = ?, sentiment_score = ?, analyzed_at = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		label, score, at.UTC(), time.Now().UTC(), id, userID)
}

func (s *SQLStore) SetVocalSummary(ctx context.Context, userID, id int64, summary string) error {
	return s.exec(ctx, s.db,
		"UPDATE vocal_notes SET summary = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		summary, time.Now().UTC(), id, userID)
}

func (s *SQLStore) SetTopics(ctx context.Context, userID, id int64, t models.VocalTopics) error {
	topics, keywords := models.StringList(t.Topics), models.StringList(t.Keywords)
	if topics == nil {
		topics = models.StringList{}
	}
	if keywords == nil {
		keywords = models.StringList{}
	}
	return s.exec(ctx, s.db,
		"UPDATE vocal_notes SET category = ?, topics = ?, keywords = ?, context = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		t.Category, topics, keywords, t.Context, time.Now().UTC(), id, userID)
}

func (s *SQLStore) VocalStats(ctx context.Context, userID int64) (models.VocalStats, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT duration, transcription, sentiment FROM vocal_notes WHERE user_id = ?"), userID)
	if err != nil {
		return models.VocalStats{}, err
	}
	defer rows.Close()

	var stats models.VocalStats
	var total float64
	for rows.Next() {
		var duration *float64
		var transcription, sentiment *string
		if err := rows.Scan(&duration, &transcription, &sentiment); err != nil {
			return stats, err
		}
		stats.TotalVocals++
		if duration != nil {
			total += *duration
		}
		if transcription != nil && *transcription != "" {
			stats.Transcribed++
		}
		if sentiment == nil {
			continue
		}
		stats.Analyzed++
		switch *sentiment {
		case "positive":
			stats.SentimentBreakdown.Positive++
		case "negative":
			stats.SentimentBreakdown.Negative++
		case "neutral":
			stats.SentimentBreakdown.Neutral++
		}
	}
	stats.TotalDurationSeconds = math.Round(total*100) / 100
	return stats, rows.Err()
}
