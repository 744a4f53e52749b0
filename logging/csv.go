package logging

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// csvFile is the shared plumbing under both CSV loggers: a fixed column
// header written at creation, rows addressed by column name, unknown
// names rejected, missing names left empty.
type csvFile struct {
	path    string
	file    *os.File
	writer  *csv.Writer
	columns []string
	index   map[string]int
}

func newCSVFile(path string, columns []string, appendMode bool) (*csvFile, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}

	c := &csvFile{
		path:    path,
		file:    f,
		writer:  csv.NewWriter(f),
		columns: columns,
		index:   index,
	}

	// A resumed run appends below the header it wrote the first time.
	if !appendMode {
		if err := c.writer.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
		c.writer.Flush()
		if err := c.writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	return c, nil
}

// record builds a row from stats. Every stats key must be a column;
// columns without a value stay empty.
func (c *csvFile) record(stats map[string]float64) ([]string, error) {
	for name := range stats {
		if _, ok := c.index[name]; !ok {
			return nil, fmt.Errorf("%q is not a column of %s", name, c.path)
		}
	}
	row := make([]string, len(c.columns))
	for name, v := range stats {
		row[c.index[name]] = formatStat(v)
	}
	return row, nil
}

func (c *csvFile) write(row []string) error {
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	return nil
}

// Path returns the file the logger writes to.
func (c *csvFile) Path() string {
	return c.path
}

// Columns returns the header in write order.
func (c *csvFile) Columns() []string {
	return c.columns
}

// Flush pushes buffered rows through to the file.
func (c *csvFile) Flush() error {
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the file.
func (c *csvFile) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CSVLogger records one row per epoch with a column per tracked concept
// plus their average. Used for concept-sensitivity curves.
type CSVLogger struct {
	*csvFile
}

// NewCSVLogger creates a per-epoch CSV with columns
// epoch, <conceptNames...>, average.
func NewCSVLogger(path string, conceptNames []string, appendMode bool) (*CSVLogger, error) {
	columns := make([]string, 0, len(conceptNames)+2)
	columns = append(columns, "epoch")
	columns = append(columns, conceptNames...)
	columns = append(columns, "average")

	c, err := newCSVFile(path, columns, appendMode)
	if err != nil {
		return nil, err
	}
	return &CSVLogger{csvFile: c}, nil
}

// Log writes one epoch row. Keys of stats must match header columns; the
// epoch argument overrides any "epoch" key.
func (l *CSVLogger) Log(epoch int, stats map[string]float64) error {
	row, err := l.record(stats)
	if err != nil {
		return err
	}
	row[0] = strconv.Itoa(epoch)
	return l.write(row)
}

// BatchCSVLogger records per-batch group statistics: six running columns
// per group, overall loss/accuracy summaries, and the robustness columns
// (worst_group_acc, mean_differences, group_avg_acc). MetaDataset runs
// additionally report F1-score, ISIC runs roc_auc.
type BatchCSVLogger struct {
	*csvFile
	nGroups int
}

// NewBatchCSVLogger creates a per-batch CSV for nGroups groups. dataset
// selects the dataset-specific trailing column, if any.
func NewBatchCSVLogger(path string, nGroups int, dataset string, appendMode bool) (*BatchCSVLogger, error) {
	columns := []string{"epoch", "batch"}
	for idx := 0; idx < nGroups; idx++ {
		columns = append(columns,
			fmt.Sprintf("avg_loss_group:%d", idx),
			fmt.Sprintf("exp_avg_loss_group:%d", idx),
			fmt.Sprintf("avg_acc_group:%d", idx),
			fmt.Sprintf("processed_data_count_group:%d", idx),
			fmt.Sprintf("update_data_count_group:%d", idx),
			fmt.Sprintf("update_batch_count_group:%d", idx),
		)
	}
	columns = append(columns,
		"avg_actual_loss",
		"avg_per_sample_loss",
		"avg_acc",
		"model_norm_sq",
		"reg_loss",
		"worst_group_acc",
		"mean_differences",
		"group_avg_acc",
	)
	switch dataset {
	case "MetaDataset":
		columns = append(columns, "F1-score")
	case "ISIC":
		columns = append(columns, "roc_auc")
	}

	c, err := newCSVFile(path, columns, appendMode)
	if err != nil {
		return nil, err
	}
	return &BatchCSVLogger{csvFile: c, nGroups: nGroups}, nil
}

// NumGroups returns the group count the header was built for.
func (l *BatchCSVLogger) NumGroups() int {
	return l.nGroups
}

// Log writes one batch row. Keys of stats must match header columns; the
// epoch and batch arguments override any same-named keys.
func (l *BatchCSVLogger) Log(epoch, batch int, stats map[string]float64) error {
	row, err := l.record(stats)
	if err != nil {
		return err
	}
	row[0] = strconv.Itoa(epoch)
	row[1] = strconv.Itoa(batch)
	return l.write(row)
}
