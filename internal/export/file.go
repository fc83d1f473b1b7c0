package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes through fn into a temp file next to path and renames it
// into place, so readers never see a partial artefact
func WriteFile(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after rename

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// CSVFile writes t to path as CSV
func CSVFile(path string, t Table) error {
	return WriteFile(path, func(w io.Writer) error { return WriteCSV(w, t) })
}

// XLSXFile writes tables to path as a workbook
func XLSXFile(path string, tables ...Table) error {
	return WriteFile(path, func(w io.Writer) error { return WriteXLSX(w, tables...) })
}
