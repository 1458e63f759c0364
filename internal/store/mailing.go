package store

import (
	"context"
	"fmt"
	"time"

	"shopbot/internal/models"
)

func (s *DBStore) ScheduleMailing(ctx context.Context, m *models.Mailing) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO mailings (content, send_at, status)
        VALUES ($1, $2, $3)
        RETURNING id`,
		m.Content, m.SendAt, models.MailingScheduled).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to schedule mailing: %w", err)
	}
	return id, nil
}

func (s *DBStore) Mailings(ctx context.Context) ([]models.Mailing, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, content, send_at, status
        FROM mailings
        ORDER BY send_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailings: %w", err)
	}
	defer rows.Close()

	var mailings []models.Mailing
	for rows.Next() {
		var m models.Mailing
		if err := rows.Scan(&m.ID, &m.Content, &m.SendAt, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan mailing: %w", err)
		}
		mailings = append(mailings, m)
	}
	return mailings, rows.Err()
}

// DueMailings returns scheduled mailings whose send time has passed.
func (s *DBStore) DueMailings(ctx context.Context, now time.Time) ([]models.Mailing, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, content, send_at, status
        FROM mailings
        WHERE status = $1 AND send_at <= $2
        ORDER BY send_at`, models.MailingScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due mailings: %w", err)
	}
	defer rows.Close()

	var mailings []models.Mailing
	for rows.Next() {
		var m models.Mailing
		if err := rows.Scan(&m.ID, &m.Content, &m.SendAt, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan mailing: %w", err)
		}
		mailings = append(mailings, m)
	}
	return mailings, rows.Err()
}

func (s *DBStore) SetMailingStatus(ctx context.Context, id int64, status string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE mailings SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set mailing status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DBStore) DeleteMailing(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM mailings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mailing %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
