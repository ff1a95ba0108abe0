package sqlstore

import (
	"context"
	"time"

	"storyia/internal/models"
)

func (s *SQLStore) CreateReclamation(ctx context.Context, r *models.Reclamation) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Sentiment == "" {
		r.Sentiment = "neutral"
	}
	id, err := s.insert(ctx, s.db,
		"INSERT INTO reclamations (user_id, name, number, subject, message, sentiment, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.UserID, r.Name, r.Number, r.Subject, r.Message, r.Sentiment, r.CreatedAt)
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

func (s *SQLStore) ListReclamations(ctx context.Context, userID int64) ([]models.Reclamation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT id, user_id, name, number, subject, message, sentiment, created_at FROM reclamations WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Reclamation{}
	for rows.Next() {
		var r models.Reclamation
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Number, &r.Subject, &r.Message, &r.Sentiment, &r.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (s *SQLStore) DeleteReclamation(ctx context.Context, userID, id int64) error {
	return s.exec(ctx, s.db, "DELETE FROM reclamations WHERE id = ? AND user_id = ?", id, userID)
}

const summaryColumns = "id, user_id, title, user_input, summary, created_at"

func scanSummary(row scanner) (models.Summarizer, error) {
	var m models.Summarizer
	err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.UserInput, &m.Summary, &m.CreatedAt)
	return m, mapErr(err)
}

func (s *SQLStore) CreateSummary(ctx context.Context, m *models.Summarizer) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	id, err := s.insert(ctx, s.db,
		"INSERT INTO summaries (user_id, title, user_input, summary, created_at) VALUES (?, ?, ?, ?, ?)",
		m.UserID, m.Title, m.UserInput, m.Summary, m.CreatedAt)
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *SQLStore) GetSummary(ctx context.Context, userID, id int64) (models.Summarizer, error) {
	return scanSummary(s.db.QueryRowContext(ctx, s.rebind("SELECT "+summaryColumns+" FROM summaries WHERE id = ? AND user_id = ?"), id, userID))
}

func (s *SQLStore) ListSummaries(ctx context.Context, userID int64) ([]models.Summarizer, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+summaryColumns+" FROM summaries WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Summarizer{}
	for rows.Next() {
		m, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (s *SQLStore) SetSummaryText(ctx context.Context, userID, id int64, summary string) error {
	return s.exec(ctx, s.db, "UPDATE summaries SET summary = ? WHERE id = ? AND user_id = ?", summary, id, userID)
}

func (s *SQLStore) DeleteSummary(ctx context.Context, userID, id int64) error {
	return s.exec(ctx, s.db, "DELETE FROM summaries WHERE id = ? AND user_id = ?", id, userID)
}
