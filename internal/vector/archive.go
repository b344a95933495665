package vector

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// readZippedShapefile extracts a zipped shapefile bundle to a temporary
// directory and reads the first .shp inside it.
func readZippedShapefile(zipPath string) (*Table, error) {
	dir, err := os.MkdirTemp("", "sustainfire-shp-*")
	if err != nil {
		return nil, eris.Wrap(err, "vector: create extract dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if err := extractZIP(zipPath, dir); err != nil {
		return nil, eris.Wrapf(err, "vector: extract %s", zipPath)
	}

	shpPath, err := findFileByExt(dir, ".shp")
	if err != nil {
		return nil, eris.Wrapf(err, "vector: %s", zipPath)
	}
	return ReadShapefile(shpPath)
}

// extractZIP extracts a ZIP archive into destDir, flattening directories.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		// Skip macOS resource forks.
		if strings.HasPrefix(name, "._") {
			continue
		}
		destPath := filepath.Join(destDir, name)

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found", ext)
}
