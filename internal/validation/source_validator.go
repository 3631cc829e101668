// Package validation checks catalog sources and output directories before
// they are read or written, so that a wrong path fails with a clear reason
// instead of a parser error.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"retailbonds/internal/dataprocessing"
)

// FileValidator validates sources and output directories
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateSource resolves src and checks that its path can be extracted
// from. Failures are *dataprocessing.ExtractionError.
func (v *FileValidator) ValidateSource(src dataprocessing.Source) (dataprocessing.Source, error) {
	resolved, err := src.Resolve()
	if err != nil {
		return src, err
	}

	switch resolved.Kind {
	case dataprocessing.SourceWorkbook:
		err = v.ValidateWorkbook(resolved.Path)
	case dataprocessing.SourceDirectory:
		_, err = v.ValidateRecordDirectory(resolved.Path)
	}
	return resolved, err
}

// ValidateWorkbook checks that path is a readable .xlsx, .xlsm or legacy .xls
// workbook whose signature matches its extension. Editor lock files are
// rejected.
func (v *FileValidator) ValidateWorkbook(path string) error {
	fail := func(reason string, err error) error {
		v.logger.Error("Workbook rejected",
			slog.String("file", path),
			slog.String("reason", reason))
		return &dataprocessing.ExtractionError{Source: path, Row: -1, Column: -1, Reason: reason, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail("workbook is not readable", err)
	}
	if info.IsDir() {
		return fail("workbook path is a directory", nil)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fail("workbook is an editor lock file", nil)
	}
	var want dataprocessing.WorkbookFormat
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		want = dataprocessing.FormatOOXML
	case ".xls":
		want = dataprocessing.FormatBIFF
	default:
		return fail(fmt.Sprintf("unexpected workbook extension %q", ext), nil)
	}

	got, err := dataprocessing.DetectWorkbookFormat(path)
	if err != nil {
		return fail("workbook is not readable", err)
	}
	if got != want {
		if want == dataprocessing.FormatBIFF {
			return fail("file is not a legacy .xls workbook", nil)
		}
		return fail("file is not an OOXML workbook", nil)
	}

	v.logger.Debug("Workbook validated",
		slog.String("file", path),
		slog.String("format", got.String()),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateRecordDirectory checks that dir is a directory and returns how
// many record files it holds. An empty directory is not an error.
func (v *FileValidator) ValidateRecordDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		v.logger.Error("Record directory is not readable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return 0, &dataprocessing.ExtractionError{Source: dir, Row: -1, Column: -1, Reason: "record directory is not readable", Err: err}
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && dataprocessing.IsRecordFile(entry.Name()) {
			count++
		}
	}
	if count == 0 {
		v.logger.Warn("No record files found", slog.String("directory", dir))
		return 0, nil
	}

	v.logger.Debug("Record directory validated",
		slog.String("directory", dir),
		slog.Int("records", count))
	return count, nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	testFile.Close()
	os.Remove(testFile.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}
