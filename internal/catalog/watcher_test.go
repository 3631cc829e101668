package catalog

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"retailbonds/internal/dataprocessing"
	"retailbonds/internal/shared/testutil"
)

type reloadResult struct {
	catalog *Catalog
	err     error
}

func startWatcher(t *testing.T, dir string, logger *slog.Logger) (*Holder, <-chan reloadResult, func()) {
	t.Helper()
	src := dataprocessing.Source{Kind: dataprocessing.SourceDirectory, Path: dir}
	builder := NewBuilder(nil, nil)

	initial, err := builder.Build(context.Background(), src, dataprocessing.DefaultSeries())
	require.NoError(t, err)
	holder := NewHolder(initial)

	results := make(chan reloadResult, 8)
	w := NewWatcher(builder, holder, src, dataprocessing.DefaultSeries(), 20*time.Millisecond, logger)
	w.OnReload = func(c *Catalog, err error) { results <- reloadResult{c, err} }

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, w.Run(ctx))
	}()
	// let the watcher register before files change
	time.Sleep(50 * time.Millisecond)

	return holder, results, func() {
		cancel()
		wg.Wait()
	}
}

func waitReload(t *testing.T, results <-chan reloadResult) reloadResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
		return reloadResult{}
	}
}

func TestWatcherSwapsOnValidChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := testutil.WriteRecordDir(t, map[string]string{"EDO1233.json": edoDec})
	holder, results, stop := startWatcher(t, dir, nil)
	defer stop()
	before := holder.Current()

	testutil.WriteRecord(t, dir, "EDO0134.json", edoJan)

	r := waitReload(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, 2, holder.Current().Len())
	assert.NotSame(t, before, holder.Current())
	assert.Equal(t, 1, before.Len())
}

func TestWatcherKeepsCatalogOnInvalidChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, logs := testutil.NewTestLogger(t)
	dir := testutil.WriteRecordDir(t, map[string]string{"EDO1233.json": edoDec})
	holder, results, stop := startWatcher(t, dir, logger)
	defer stop()
	before := holder.Current()

	testutil.WriteRecord(t, dir, "EDO0334.json", edoMar)

	r := waitReload(t, results)
	assert.ErrorIs(t, r.err, ErrContinuity)
	assert.Same(t, before, holder.Current())
	testutil.AssertLogContains(t, logs, slog.LevelError, "keeping current catalog")
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := testutil.WriteRecordDir(t, map[string]string{"EDO1233.json": edoDec})
	_, results, stop := startWatcher(t, dir, nil)
	defer stop()

	testutil.WriteRecord(t, dir, "notes.txt", "hello")

	select {
	case r := <-results:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}
