package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-2.jpg", "frame-1.png", "notes.txt", "frame-3.WEBP"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755))

	paths, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "frame-1.png"),
		filepath.Join(dir, "frame-2.jpg"),
		filepath.Join(dir, "frame-3.WEBP"),
	}, paths)

	_, err = ListImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
