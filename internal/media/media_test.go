package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRemoveProductPhoto(t *testing.T) {
	s := NewStorage(t.TempDir())

	path, err := s.SaveProductPhoto(5, []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, s.ProductPhotoPath(5), path)
	assert.Equal(t, filepath.Join(s.Dir, "5", "product_5.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	require.NoError(t, s.RemoveProductDir(5))
	_, err = os.Stat(filepath.Join(s.Dir, "5"))
	assert.True(t, os.IsNotExist(err))

	// removing again is a no-op
	require.NoError(t, s.RemoveProductDir(5))
}
