package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"retailbonds/pkg/contracts/domain"
)

// CSVWriter writes series projections into a directory, one file per instrument.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at dir.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger.With(slog.String("component", "csv_writer"))}
}

// PathFor returns the file an instrument is exported to. An id that is not
// a plain file name is refused so no export lands outside the directory.
func (w *CSVWriter) PathFor(id domain.InstrumentID) (string, error) {
	name := string(id)
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("instrument id %q is not a valid file name", name)
	}
	return filepath.Join(w.dir, name+".csv"), nil
}

// ExportAll writes <id>.csv for every instrument and returns the paths in the
// order of instruments. Files are written concurrently; the first error
// cancels the rest.
func (w *CSVWriter) ExportAll(ctx context.Context, instruments []domain.Instrument) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	paths := make([]string, len(instruments))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, inst := range instruments {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := w.PathFor(inst.ID)
			if err != nil {
				return err
			}
			if err := w.writeFile(path, inst); err != nil {
				return fmt.Errorf("export %s: %w", inst.ID, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w.logger.InfoContext(ctx, "instruments exported",
		slog.String("dir", w.dir),
		slog.Int("files", len(paths)))
	return paths, nil
}

func (w *CSVWriter) writeFile(path string, inst domain.Instrument) error {
	sw, err := CreateStreamWriter(path)
	if err != nil {
		return err
	}
	row := make([]string, 2)
	for day, v := range inst.Points() {
		row[0], row[1] = formatDate(day), formatValue(v)
		if err := sw.WriteRecord(row); err != nil {
			sw.Close()
			return err
		}
	}
	return sw.Close()
}

// StreamWriter writes a projection file row by row.
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter creates path and writes the projection header.
func CreateStreamWriter(path string) (*StreamWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	return &StreamWriter{file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
