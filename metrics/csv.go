package metrics

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// CSVSink appends one row per scalar to a metrics file. Logging never
// fails the caller; the first write error is kept and surfaced by
// Close.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	err    error
}

// NewCSVSink creates path and writes the header row.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics csv")
	}
	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"name", "step", "value"}); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "write metrics header")
	}
	return &CSVSink{file: file, writer: writer}, nil
}

func (c *CSVSink) Log(name string, value float64, step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = c.writer.Write([]string{
		name,
		strconv.Itoa(step),
		strconv.FormatFloat(value, 'g', -1, 64),
	})
}

// Close flushes and reports the first error seen, if any.
func (c *CSVSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	if c.err == nil {
		c.err = c.writer.Error()
	}
	if closeErr := c.file.Close(); c.err == nil {
		c.err = closeErr
	}
	return errors.Wrap(c.err, "metrics csv")
}
