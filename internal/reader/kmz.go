package reader

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// kmzDocument is the archive entry holding the KML document.
const kmzDocument = "doc.kml"

// openKMZ extracts doc.kml to a private temp directory and streams it. The
// directory is removed when the reader is closed, or immediately if opening
// fails.
func openKMZ(path string, opts Options) (_ *kmlReader, err error) {
	dir, err := os.MkdirTemp(opts.TempDir, "kmz-*")
	if err != nil {
		return nil, eris.Wrap(err, "kmz: create temp dir")
	}
	cleanup := func() error { return os.RemoveAll(dir) }
	defer func() {
		if err != nil {
			cleanup() //nolint:errcheck
		}
	}()

	docPath, err := extractEntry(path, kmzDocument, dir)
	if err != nil {
		return nil, err
	}
	r, err := openKML(docPath)
	if err != nil {
		return nil, err
	}
	r.cleanup = cleanup
	return r, nil
}

// extractEntry extracts a single named file from a ZIP archive into destDir.
func extractEntry(zipPath, name, destDir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "kmz: open archive %s", zipPath)
	}
	defer zr.Close() //nolint:errcheck

	for _, f := range zr.File {
		if f.Name == name {
			return extractFile(f, destDir)
		}
	}
	return "", model.NotFound("kmz: %s has no %q entry", zipPath, name)
}

func extractFile(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("kmz: illegal path %q (zip slip attempt)", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "kmz: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "kmz: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "kmz: write file")
	}
	return destPath, nil
}
