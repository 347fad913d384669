package reader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// closeShapefile closes w and moves the attribute file to the name shp.Open
// expects. go-shp v0.1.1 writes it as "<base>dbf".
func closeShapefile(t *testing.T, w *shp.Writer, path string) {
	t.Helper()
	w.Close()
	base := strings.TrimSuffix(path, filepath.Ext(path))
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestZIP(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for entry, content := range files {
		fw, err := w.Create(entry)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

// readAll drains r and closes it.
func readAll(t *testing.T, r RecordReader) ([]Record, error) {
	t.Helper()
	var recs []Record
	for r.Next() {
		recs = append(recs, r.Record())
	}
	err := r.Err()
	require.NoError(t, r.Close())
	return recs, err
}
