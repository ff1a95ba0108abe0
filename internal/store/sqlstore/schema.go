package sqlstore

import "strings"

// The schema is written once with {{pk}}, {{ts}} and {{real}} markers that
// expand to each dialect's column types.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		birth_date TEXT,
		photo TEXT NOT NULL DEFAULT '',
		date_joined {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS journal_entries (
		id {{pk}},
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		entry_date TEXT NOT NULL,
		mood TEXT NOT NULL DEFAULT '',
		time_of_day TEXT NOT NULL DEFAULT '',
		main_mood_level INTEGER,
		energy_level INTEGER,
		sleep_quality INTEGER,
		physical_health TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		weather TEXT NOT NULL DEFAULT '',
		season TEXT NOT NULL DEFAULT '',
		main_subject TEXT NOT NULL DEFAULT '',
		secondary_themes TEXT NOT NULL DEFAULT '',
		favorite_moment TEXT NOT NULL DEFAULT '',
		challenge TEXT NOT NULL DEFAULT '',
		achievement TEXT NOT NULL DEFAULT '',
		surprise TEXT NOT NULL DEFAULT '',
		daily_goal TEXT NOT NULL DEFAULT '',
		accomplishments TEXT NOT NULL DEFAULT '',
		lesson_learned TEXT NOT NULL DEFAULT '',
		gratitude TEXT NOT NULL DEFAULT '',
		physical_activity TEXT NOT NULL DEFAULT '',
		meditation TEXT NOT NULL DEFAULT '',
		screen_time TEXT NOT NULL DEFAULT '',
		meals_quality TEXT NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		UNIQUE (user_id, entry_date, title)
	)`,

	`CREATE TABLE IF NOT EXISTS labels (
		id {{pk}},
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE (kind, name)
	)`,

	`CREATE TABLE IF NOT EXISTS entry_labels (
		entry_id INTEGER NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
		label_id INTEGER NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
		PRIMARY KEY (entry_id, label_id)
	)`,

	`CREATE TABLE IF NOT EXISTS media_assets (
		id {{pk}},
		entry_id INTEGER NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
		file TEXT NOT NULL DEFAULT '',
		caption TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT '',
		uploaded_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS images (
		id {{pk}},
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		image TEXT NOT NULL,
		thumbnail TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '{}',
		created_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS generated_images (
		id {{pk}},
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		image TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS vocal_notes (
		id {{pk}},
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		audio_file TEXT NOT NULL,
		duration {{real}},
		transcription TEXT,
		transcribed_at {{ts}},
		sentiment TEXT,
		sentiment_score {{real}},
		analyzed_at {{ts}},
		summary TEXT,
		category TEXT,
		topics TEXT,
		keywords TEXT,
		context TEXT,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS reclamations (
		id {{pk}},
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		number TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		sentiment TEXT NOT NULL DEFAULT 'neutral',
		created_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS summaries (
		id {{pk}},
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		user_input TEXT NOT NULL,
		summary TEXT,
		created_at {{ts}} NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_journal_entries_user ON journal_entries (user_id, entry_date)`,
	`CREATE INDEX IF NOT EXISTS idx_images_user ON images (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_vocal_notes_user ON vocal_notes (user_id, created_at)`,
}

func (s *SQLStore) initSchema() error {
	r := strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "DATETIME",
		"{{real}}", "REAL",
	)
	if s.dbType == Postgres {
		r = strings.NewReplacer(
			"{{pk}}", "SERIAL PRIMARY KEY",
			"{{ts}}", "TIMESTAMP",
			"{{real}}", "DOUBLE PRECISION",
		)
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(r.Replace(stmt)); err != nil {
			return err
		}
	}
	return nil
}
