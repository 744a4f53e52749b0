package logging

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVLoggerHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "val.csv")

	l, err := NewCSVLogger(path, []string{"stripes", "water"}, false)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	assert.Equal(t, []string{"epoch", "stripes", "water", "average"}, l.Columns())

	records := readCSV(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, l.Columns(), records[0])
}

func TestCSVLoggerLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "val.csv")

	l, err := NewCSVLogger(path, []string{"stripes", "water"}, false)
	require.NoError(t, err)

	require.NoError(t, l.Log(3, map[string]float64{
		"stripes": 0.5,
		"average": 0.75,
	}))
	require.NoError(t, l.Close())

	records := readCSV(t, path)
	require.Len(t, records, 2)
	// The water concept was not reported this epoch.
	assert.Equal(t, []string{"3", "0.5", "", "0.75"}, records[1])
}

func TestCSVLoggerRejectsUnknownColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "val.csv")

	l, err := NewCSVLogger(path, []string{"stripes"}, false)
	require.NoError(t, err)
	defer l.Close()

	err = l.Log(1, map[string]float64{"bogus": 1})
	assert.ErrorContains(t, err, "bogus")
}

func TestCSVLoggerAppendSkipsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "val.csv")

	l, err := NewCSVLogger(path, []string{"stripes"}, false)
	require.NoError(t, err)
	require.NoError(t, l.Log(1, map[string]float64{"stripes": 0.1}))
	require.NoError(t, l.Close())

	l, err = NewCSVLogger(path, []string{"stripes"}, true)
	require.NoError(t, err)
	require.NoError(t, l.Log(2, map[string]float64{"stripes": 0.2}))
	require.NoError(t, l.Close())

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "epoch", records[0][0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2", records[2][0])
}

func TestBatchCSVLoggerColumns(t *testing.T) {
	dir := t.TempDir()

	l, err := NewBatchCSVLogger(filepath.Join(dir, "train.csv"), 2, "waterbirds", false)
	require.NoError(t, err)
	defer l.Close()

	want := []string{
		"epoch", "batch",
		"avg_loss_group:0", "exp_avg_loss_group:0", "avg_acc_group:0",
		"processed_data_count_group:0", "update_data_count_group:0", "update_batch_count_group:0",
		"avg_loss_group:1", "exp_avg_loss_group:1", "avg_acc_group:1",
		"processed_data_count_group:1", "update_data_count_group:1", "update_batch_count_group:1",
		"avg_actual_loss", "avg_per_sample_loss", "avg_acc",
		"model_norm_sq", "reg_loss",
		"worst_group_acc", "mean_differences", "group_avg_acc",
	}
	assert.Equal(t, want, l.Columns())
	assert.Equal(t, 2, l.NumGroups())
}

func TestBatchCSVLoggerDatasetColumns(t *testing.T) {
	dir := t.TempDir()

	meta, err := NewBatchCSVLogger(filepath.Join(dir, "meta.csv"), 1, "MetaDataset", false)
	require.NoError(t, err)
	defer meta.Close()
	assert.Equal(t, "F1-score", meta.Columns()[len(meta.Columns())-1])

	isic, err := NewBatchCSVLogger(filepath.Join(dir, "isic.csv"), 1, "ISIC", false)
	require.NoError(t, err)
	defer isic.Close()
	assert.Equal(t, "roc_auc", isic.Columns()[len(isic.Columns())-1])
}

func TestBatchCSVLoggerLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")

	l, err := NewBatchCSVLogger(path, 1, "ISIC", false)
	require.NoError(t, err)

	require.NoError(t, l.Log(2, 7, map[string]float64{
		"avg_loss_group:0":             0.5,
		"avg_acc_group:0":              0.875,
		"processed_data_count_group:0": 128,
		"avg_acc":                      0.875,
		"worst_group_acc":              0.875,
		"roc_auc":                      0.93,
	}))
	require.NoError(t, l.Close())

	records := readCSV(t, path)
	require.Len(t, records, 2)

	header, row := records[0], records[1]
	byName := make(map[string]string, len(header))
	for i, col := range header {
		byName[col] = row[i]
	}
	assert.Equal(t, "2", byName["epoch"])
	assert.Equal(t, "7", byName["batch"])
	assert.Equal(t, "0.5", byName["avg_loss_group:0"])
	assert.Equal(t, "128", byName["processed_data_count_group:0"])
	assert.Equal(t, "0.93", byName["roc_auc"])
	// Columns that were not reported stay empty.
	assert.Equal(t, "", byName["exp_avg_loss_group:0"])
}

func TestBatchCSVLoggerArgsOverrideKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")

	l, err := NewBatchCSVLogger(path, 1, "", false)
	require.NoError(t, err)

	require.NoError(t, l.Log(5, 1, map[string]float64{"epoch": 99, "batch": 42}))
	require.NoError(t, l.Close())

	records := readCSV(t, path)
	assert.Equal(t, "5", records[1][0])
	assert.Equal(t, "1", records[1][1])
}
