// Package media lays product photos out on disk, one directory per product.
package media

import (
	"fmt"
	"os"
	"path/filepath"
)

type Storage struct {
	Dir string
}

func NewStorage(dir string) *Storage {
	return &Storage{Dir: dir}
}

// ProductPhotoPath is where a product's photo lives relative to the media
// root: <dir>/<product_id>/product_<product_id>.jpg.
func (s *Storage) ProductPhotoPath(productID int64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%d", productID), fmt.Sprintf("product_%d.jpg", productID))
}

// SaveProductPhoto writes the photo bytes and returns the stored path.
func (s *Storage) SaveProductPhoto(productID int64, data []byte) (string, error) {
	path := s.ProductPhotoPath(productID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory for product %d: %w", productID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo for product %d: %w", productID, err)
	}
	return path, nil
}

// RemoveProductDir drops a product's media directory. Missing directories are
// not an error.
func (s *Storage) RemoveProductDir(productID int64) error {
	dir := filepath.Join(s.Dir, fmt.Sprintf("%d", productID))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove media directory for product %d: %w", productID, err)
	}
	return nil
}
