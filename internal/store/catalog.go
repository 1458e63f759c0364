package store

import (
	"context"
	"database/sql"
	"fmt"

	"shopbot/internal/models"
)

func (s *DBStore) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *DBStore) CategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	c := &models.Category{}
	err := s.DB.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return c, nil
}

// CategoryByName does a case-sensitive exact-name lookup; nil,nil when absent.
func (s *DBStore) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	c := &models.Category{}
	err := s.DB.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE name = $1`, name).
		Scan(&c.ID, &c.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category %q: %w", name, err)
	}
	return c, nil
}

func (s *DBStore) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to create category: %w", err)
	}
	return id, nil
}

func (s *DBStore) ProductCountInCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products in category %d: %w", categoryID, err)
	}
	return count, nil
}

// DeleteCategoryCascade removes a category together with its products and
// every row referencing them, in one transaction. It returns the ids of the
// removed products so the caller can clean up their media directories.
func (s *DBStore) DeleteCategoryCascade(ctx context.Context, categoryID int64) ([]int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM products WHERE category_id = $1`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category products: %w", err)
	}
	var productIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		productIDs = append(productIDs, id)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to read category products: %w", err)
	}

	for _, productID := range productIDs {
		if err := deleteProductRows(ctx, tx, productID); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete category %d: %w", categoryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return productIDs, nil
}

func (s *DBStore) Products(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, category_id, name, description, price, size, material, COALESCE(photo_path, '')
        FROM products
        ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (s *DBStore) ProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, category_id, name, description, price, size, material, COALESCE(photo_path, '')
        FROM products
        WHERE category_id = $1
        ORDER BY id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products for category %d: %w", categoryID, err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Size, &p.Material, &p.PhotoPath); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *DBStore) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p := &models.Product{}
	err := s.DB.QueryRowContext(ctx, `
        SELECT id, category_id, name, description, price, size, material, COALESCE(photo_path, '')
        FROM products
        WHERE id = $1`, id).
		Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Size, &p.Material, &p.PhotoPath)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

func (s *DBStore) CreateProduct(ctx context.Context, p *models.Product) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO products (category_id, name, description, price, size, material)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		p.CategoryID, p.Name, p.Description, p.Price, p.Size, p.Material).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return id, nil
}

func (s *DBStore) SetProductPhoto(ctx context.Context, productID int64, photoPath string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE products SET photo_path = $1 WHERE id = $2`, photoPath, productID)
	if err != nil {
		return fmt.Errorf("failed to set product photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProductCascade removes a product plus its cart lines and promo codes
// as one atomic unit.
func (s *DBStore) DeleteProductCascade(ctx context.Context, productID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = $1`, productID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check product %d: %w", productID, err)
	}

	if err := deleteProductRows(ctx, tx, productID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func deleteProductRows(ctx context.Context, tx *sql.Tx, productID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete cart items for product %d: %w", productID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM promo_codes WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete promo codes for product %d: %w", productID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", productID, err)
	}
	return nil
}
