package dataprocessing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookFormat is the container a workbook file is stored in.
type WorkbookFormat int

const (
	FormatUnknown WorkbookFormat = iota
	// FormatOOXML is a zip package: .xlsx or .xlsm.
	FormatOOXML
	// FormatBIFF is an OLE2 compound file holding a BIFF8 stream: legacy .xls.
	FormatBIFF
)

func (f WorkbookFormat) String() string {
	switch f {
	case FormatOOXML:
		return "ooxml"
	case FormatBIFF:
		return "biff"
	}
	return "unknown"
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectWorkbookFormat sniffs the file signature of path. A file too short
// for any signature is FormatUnknown, not an error.
func DetectWorkbookFormat(path string) (WorkbookFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	head := make([]byte, len(oleMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatOOXML, nil
	case bytes.Equal(head, oleMagic):
		return FormatBIFF, nil
	}
	return FormatUnknown, nil
}

// sheetSource is an open workbook that yields typed rows per worksheet.
type sheetSource interface {
	Rows(sheet string) ([][]Cell, error)
	Close() error
}

type ooxmlWorkbook struct{ f *excelize.File }

func (w ooxmlWorkbook) Rows(sheet string) ([][]Cell, error) { return ReadSheet(w.f, sheet) }
func (w ooxmlWorkbook) Close() error                        { return w.f.Close() }

// openWorkbook picks the reader by signature, falling back to the extension
// when the signature is not recognised.
func openWorkbook(path string) (sheetSource, error) {
	format, err := DetectWorkbookFormat(path)
	if err != nil {
		return nil, &ExtractionError{Source: path, Row: -1, Column: -1, Reason: "failed to open workbook", Err: err}
	}
	if format == FormatUnknown && strings.EqualFold(filepath.Ext(path), ".xls") {
		format = FormatBIFF
	}

	if format == FormatBIFF {
		return OpenXLS(path)
	}
	f, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ExtractionError{Source: path, Row: -1, Column: -1, Reason: "failed to open workbook", Err: err}
	}
	return ooxmlWorkbook{f: f}, nil
}

// extractWorkbook reads one worksheet per series label.
func (e *Extractor) extractWorkbook(ctx context.Context, path string, specs []SeriesSpec) (Definitions, error) {
	wb, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	defs := make(Definitions)
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := wb.Rows(spec.Label)
		if err != nil {
			return nil, err
		}
		series, err := ExtractRows(spec.Label, spec.TenorYears, rows)
		if err != nil {
			var xe *ExtractionError
			if errors.As(err, &xe) {
				xe.Source = path
			}
			return nil, err
		}
		if err := merge(defs, series, path); err != nil {
			return nil, err
		}
		e.logger.InfoContext(ctx, "series extracted",
			slog.String("series", spec.Label),
			slog.Int("tenor_years", spec.TenorYears),
			slog.Int("rows", len(rows)),
			slog.Int("instruments", len(series)))
	}
	return defs, nil
}

// ReadSheet returns the typed cells of a worksheet. The file must have been
// opened with RawCellValue so date cells keep their serial numbers.
func ReadSheet(f *excelize.File, sheet string) ([][]Cell, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &ExtractionError{Source: f.Path, Sheet: sheet, Row: -1, Column: -1, Reason: "worksheet not found", Err: err}
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ExtractionError{Source: f.Path, Sheet: sheet, Row: -1, Column: -1, Reason: "failed to read rows", Err: err}
	}

	rows := make([][]Cell, len(raw))
	for r, values := range raw {
		cells := make([]Cell, len(values))
		for c, value := range values {
			if value == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, cellError(sheet, r, c, err.Error())
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, cellError(sheet, r, c, err.Error())
			}
			cells[c] = cellFromRaw(value, typ)
		}
		rows[r] = cells
	}
	return rows, nil
}
