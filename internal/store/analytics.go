package store

import (
	"context"
	"fmt"
	"time"

	"shopbot/internal/models"
)

// Cart lines stand in for orders in the analytics queries. since bounds the
// reporting window.

func (s *DBStore) SalesByDate(ctx context.Context, since time.Time) ([]models.SalesByDate, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT TO_CHAR(added_at::date, 'YYYY-MM-DD') AS order_date, COUNT(*) AS total_sales
        FROM cart_items
        WHERE added_at >= $1
        GROUP BY added_at::date
        ORDER BY order_date`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by date: %w", err)
	}
	defer rows.Close()

	var sales []models.SalesByDate
	for rows.Next() {
		var s models.SalesByDate
		if err := rows.Scan(&s.Date, &s.TotalSales); err != nil {
			return nil, fmt.Errorf("failed to scan sales row: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func (s *DBStore) TopProducts(ctx context.Context, since time.Time, limit int) ([]models.ProductSales, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT p.id, p.name, COUNT(*) AS total_sold
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        WHERE ci.added_at >= $1
        GROUP BY p.id, p.name
        ORDER BY total_sold DESC, p.id
        LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	var products []models.ProductSales
	for rows.Next() {
		var p models.ProductSales
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.TotalSold); err != nil {
			return nil, fmt.Errorf("failed to scan product sales row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *DBStore) UserActivity(ctx context.Context, since time.Time) ([]models.UserActivity, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT user_id, COUNT(*) AS orders_count
        FROM cart_items
        WHERE added_at >= $1
        GROUP BY user_id
        ORDER BY orders_count DESC, user_id`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query user activity: %w", err)
	}
	defer rows.Close()

	var activity []models.UserActivity
	for rows.Next() {
		var a models.UserActivity
		if err := rows.Scan(&a.UserID, &a.OrdersCount); err != nil {
			return nil, fmt.Errorf("failed to scan user activity row: %w", err)
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}
