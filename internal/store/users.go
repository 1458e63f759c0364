package store

import (
	"context"
	"database/sql"
	"fmt"

	"shopbot/internal/models"
)

// UpsertUser records a user profile, refreshing the username on repeat visits.
func (s *DBStore) UpsertUser(ctx context.Context, telegramID int64, username string) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO users (telegram_id, username)
        VALUES ($1, $2)
        ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username`,
		telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *DBStore) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT telegram_id FROM users ORDER BY telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *DBStore) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *DBStore) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	var exists int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM blocked_users WHERE user_id = $1`, userID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blocked user: %w", err)
	}
	return true, nil
}

// BlockUserCascade blocks a user and wipes their profile, cart and support
// requests in one transaction. Blocking an already blocked user is a no-op.
func (s *DBStore) BlockUserCascade(ctx context.Context, userID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO blocked_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("failed to block user %d: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart for blocked user %d: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM support_requests WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear support requests for blocked user %d: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE telegram_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete blocked user %d: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *DBStore) CreateSupportRequest(ctx context.Context, r *models.SupportRequest) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO support_requests (user_id, username, content)
        VALUES ($1, $2, $3)
        RETURNING id`,
		r.UserID, r.Username, r.Content).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create support request: %w", err)
	}
	return id, nil
}

func (s *DBStore) SupportRequests(ctx context.Context) ([]models.SupportRequest, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, user_id, username, content, created_at
        FROM support_requests
        ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list support requests: %w", err)
	}
	defer rows.Close()

	var requests []models.SupportRequest
	for rows.Next() {
		var r models.SupportRequest
		if err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan support request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *DBStore) DeleteSupportRequest(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM support_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete support request %d: %w", id, err)
	}
	return nil
}

func (s *DBStore) LogJoinRequest(ctx context.Context, userID int64, username, status string) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO join_requests (user_id, username, status)
        VALUES ($1, $2, $3)`,
		userID, username, status)
	if err != nil {
		return fmt.Errorf("failed to log join request: %w", err)
	}
	return nil
}

func (s *DBStore) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *DBStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO settings (key, value) VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}
	return nil
}
