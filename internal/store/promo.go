package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopbot/internal/models"
)

func (s *DBStore) Promotions(ctx context.Context) ([]models.Promotion, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, name, description, COALESCE(image_ref, ''), start_date, end_date, created_at
        FROM promotions
        ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	defer rows.Close()
	return scanPromotions(rows)
}

// ActivePromotions returns promotions whose date range covers the given day.
func (s *DBStore) ActivePromotions(ctx context.Context, day time.Time) ([]models.Promotion, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, name, description, COALESCE(image_ref, ''), start_date, end_date, created_at
        FROM promotions
        WHERE start_date <= $1 AND end_date >= $1
        ORDER BY start_date`, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list active promotions: %w", err)
	}
	defer rows.Close()
	return scanPromotions(rows)
}

func scanPromotions(rows *sql.Rows) ([]models.Promotion, error) {
	var promotions []models.Promotion
	for rows.Next() {
		var p models.Promotion
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageRef, &p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

func (s *DBStore) CreatePromotion(ctx context.Context, p *models.Promotion) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO promotions (name, description, image_ref, start_date, end_date)
        VALUES ($1, $2, NULLIF($3, ''), $4, $5)
        RETURNING id`,
		p.Name, p.Description, p.ImageRef, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02")).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create promotion: %w", err)
	}
	return id, nil
}

func (s *DBStore) DeletePromotion(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete promotion %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DBStore) PromoCodes(ctx context.Context) ([]models.PromoCode, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT pc.id, pc.code, pc.product_id, p.name, pc.discount_percentage,
               pc.start_date, pc.end_date, pc.created_at, pc.is_active
        FROM promo_codes pc
        JOIN products p ON p.id = pc.product_id
        WHERE pc.is_active
        ORDER BY pc.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	defer rows.Close()

	var codes []models.PromoCode
	for rows.Next() {
		var c models.PromoCode
		if err := rows.Scan(&c.ID, &c.Code, &c.ProductID, &c.ProductName, &c.DiscountPercentage,
			&c.StartDate, &c.EndDate, &c.CreatedAt, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan promo code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (s *DBStore) CreatePromoCode(ctx context.Context, c *models.PromoCode) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO promo_codes (code, product_id, discount_percentage, start_date, end_date)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`,
		c.Code, c.ProductID, c.DiscountPercentage,
		c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02")).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to create promo code: %w", err)
	}
	return id, nil
}

// DeactivatePromoCode retires a code; the row stays so cart lines keep their
// reference.
func (s *DBStore) DeactivatePromoCode(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE promo_codes SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate promo code %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ValidPromoCode looks up an active code valid for the given product on the
// given day.
func (s *DBStore) ValidPromoCode(ctx context.Context, code string, productID int64, day time.Time) (*models.PromoCode, error) {
	c := &models.PromoCode{}
	err := s.DB.QueryRowContext(ctx, `
        SELECT id, code, product_id, discount_percentage, start_date, end_date, created_at, is_active
        FROM promo_codes
        WHERE code = $1 AND product_id = $2 AND is_active
          AND start_date <= $3 AND end_date >= $3`,
		code, productID, day.Format("2006-01-02")).
		Scan(&c.ID, &c.Code, &c.ProductID, &c.DiscountPercentage, &c.StartDate, &c.EndDate, &c.CreatedAt, &c.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up promo code: %w", err)
	}
	return c, nil
}
