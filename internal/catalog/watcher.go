package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"retailbonds/internal/dataprocessing"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before rebuilding.
const DefaultDebounce = 500 * time.Millisecond

// Watcher rebuilds the catalog when its source changes on disk and publishes
// the result through a Holder. A failed rebuild is logged and the previous
// catalog stays published.
type Watcher struct {
	builder  *Builder
	holder   *Holder
	source   dataprocessing.Source
	specs    []dataprocessing.SeriesSpec
	debounce time.Duration
	logger   *slog.Logger

	// OnReload, when set, is called after every rebuild attempt.
	OnReload func(c *Catalog, err error)
}

// NewWatcher creates a watcher for src. A debounce of zero selects DefaultDebounce.
func NewWatcher(builder *Builder, holder *Holder, src dataprocessing.Source, specs []dataprocessing.SeriesSpec, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		builder:  builder,
		holder:   holder,
		source:   src,
		specs:    specs,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "catalog_watcher")),
	}
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	src, err := w.source.Resolve()
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	// Workbooks are watched through their directory so that editors which
	// replace the file on save are still seen.
	dir, relevant := src.Path, func(name string) bool { return dataprocessing.IsRecordFile(name) }
	if src.Kind == dataprocessing.SourceWorkbook {
		abs, _ := filepath.Abs(src.Path)
		dir = filepath.Dir(abs)
		relevant = func(name string) bool {
			n, _ := filepath.Abs(name)
			return n == abs
		}
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.InfoContext(ctx, "watching catalog source",
		slog.String("source", src.String()),
		slog.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !relevant(ev.Name) {
				continue
			}
			w.logger.DebugContext(ctx, "source changed",
				slog.String("file", ev.Name),
				slog.String("op", ev.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "file watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			w.reload(ctx, src)
		}
	}
}

func (w *Watcher) reload(ctx context.Context, src dataprocessing.Source) {
	if _, err := os.Stat(src.Path); err != nil {
		w.logger.WarnContext(ctx, "source unavailable, keeping current catalog", slog.String("error", err.Error()))
		w.notify(nil, err)
		return
	}
	c, err := w.builder.Build(ctx, src, w.specs)
	if err != nil {
		w.logger.ErrorContext(ctx, "catalog reload failed, keeping current catalog", slog.String("error", err.Error()))
		w.notify(nil, err)
		return
	}
	old := w.holder.Swap(c)
	previous := 0
	if old != nil {
		previous = old.Len()
	}
	w.logger.InfoContext(ctx, "catalog reloaded",
		slog.Int("instruments", c.Len()),
		slog.Int("previous_instruments", previous))
	w.notify(c, nil)
}

func (w *Watcher) notify(c *Catalog, err error) {
	if w.OnReload != nil {
		w.OnReload(c, err)
	}
}
