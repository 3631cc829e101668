package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailbonds/pkg/contracts/domain"
)

func TestExportAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewCSVWriter(dir, nil)

	instruments := []domain.Instrument{
		instrument("EDO1233", "2023-12-01", "100", "100.02"),
		instrument("EDO0134", "2024-01-01", "100", "100.5"),
	}
	paths, err := w.ExportAll(context.Background(), instruments)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "EDO1233.csv"),
		filepath.Join(dir, "EDO0134.csv"),
	}, paths)

	for i, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, ToCSV(instruments[i]), string(data))
	}
}

func TestExportAllRefusesEscapingIDs(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "out")
	w := NewCSVWriter(dir, nil)

	for _, id := range []domain.InstrumentID{"../EDO1233", "EDO/../../x", `EDO\1233`, "..", ""} {
		_, err := w.PathFor(id)
		assert.Error(t, err, string(id))
	}

	_, err := w.ExportAll(context.Background(), []domain.Instrument{
		instrument("EDO1233", "2023-12-01", "100"),
		instrument("../escaped", "2024-01-01", "100"),
	})
	assert.ErrorContains(t, err, "not a valid file name")
	_, statErr := os.Stat(filepath.Join(root, "escaped.csv"))
	assert.True(t, os.IsNotExist(statErr))

	path, err := w.PathFor("EDO1233")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "EDO1233.csv"), path)
}

func TestExportAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVWriter(t.TempDir(), nil).ExportAll(ctx,
		[]domain.Instrument{instrument("EDO1233", "2023-12-01", "100")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportAllUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewCSVWriter(filepath.Join(file, "sub"), nil).ExportAll(context.Background(), nil)
	assert.Error(t, err)
}

func TestStreamWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	sw, err := CreateStreamWriter(path)
	require.NoError(t, err)
	require.NoError(t, sw.WriteRecord([]string{"2024-01-01", "100"}))
	require.NoError(t, sw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,value\n2024-01-01,100\n", string(data))
}
