package store

import (
	"context"
	"database/sql"
	"fmt"

	"shopbot/internal/models"
)

func (s *DBStore) AddCartItem(ctx context.Context, userID, productID int64) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO cart_items (user_id, product_id) VALUES ($1, $2)`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (s *DBStore) CartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT ci.id, ci.user_id, ci.product_id, p.name, p.price,
               COALESCE(ci.promo_code_id, 0), COALESCE(pc.code, ''), COALESCE(pc.discount_percentage, 0)
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        LEFT JOIN promo_codes pc ON pc.id = ci.promo_code_id
        WHERE ci.user_id = $1
        ORDER BY ci.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.ProductName, &it.Price,
			&it.PromoCodeID, &it.PromoCode, &it.DiscountPercentage); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *DBStore) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ApplyPromoToFirstMatch attaches a promo code to the oldest cart line holding
// the code's product that has no code yet. ErrNotFound means no such line.
func (s *DBStore) ApplyPromoToFirstMatch(ctx context.Context, userID, productID, promoCodeID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var itemID int64
	err = tx.QueryRowContext(ctx, `
        SELECT id FROM cart_items
        WHERE user_id = $1 AND product_id = $2 AND promo_code_id IS NULL
        ORDER BY id
        LIMIT 1
        FOR UPDATE`, userID, productID).Scan(&itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find cart line for promo: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cart_items SET promo_code_id = $1 WHERE id = $2`, promoCodeID, itemID); err != nil {
		return fmt.Errorf("failed to apply promo to cart item %d: %w", itemID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
