// Package catalog reads Galaxy Zoo style vote catalogs: one CSV row
// per galaxy with an id, an image location and one integer vote-count
// column per schema answer.
package catalog

import (
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/natalines/zoobot/schema"
)

// Galaxy is one catalog row with its votes laid out in schema column
// order.
type Galaxy struct {
	ID      string
	FileLoc string
	Votes   []float64
}

// Catalog is an ordered collection of rows for one schema.
type Catalog struct {
	Schema   *schema.Schema
	Galaxies []Galaxy
}

// Len returns the number of galaxies.
func (c *Catalog) Len() int { return len(c.Galaxies) }

// Load reads a CSV catalog, requiring the id_str and file_loc columns
// plus every label column the schema declares. Vote counts must be
// non-negative integers; anything else is a data defect and fails the
// load.
func Load(path string, s *schema.Schema) (*Catalog, error) {
	labelCols := s.LabelCols()
	if len(labelCols) == 0 {
		return nil, errors.New("catalog: schema has no label columns (built from raw ranges?)")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer file.Close()

	rows, err := gocsv.CSVToMaps(file)
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog csv")
	}
	if len(rows) == 0 {
		return nil, errors.New("catalog: no rows")
	}

	galaxies := make([]Galaxy, 0, len(rows))
	for i, row := range rows {
		id, ok := row["id_str"]
		if !ok {
			return nil, errors.Errorf("catalog: row %d missing id_str column", i)
		}
		votes := make([]float64, len(labelCols))
		for col, name := range labelCols {
			raw, ok := row[name]
			if !ok {
				return nil, errors.Errorf("catalog: missing label column %q", name)
			}
			count, err := strconv.Atoi(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "catalog: row %s column %q", id, name)
			}
			if count < 0 {
				return nil, errors.Errorf("catalog: row %s column %q has negative count %d", id, name, count)
			}
			votes[col] = float64(count)
		}
		galaxies = append(galaxies, Galaxy{
			ID:      id,
			FileLoc: row["file_loc"],
			Votes:   votes,
		})
	}

	return &Catalog{Schema: s, Galaxies: galaxies}, nil
}

// VoteMatrix returns the per-galaxy vote vectors.
func (c *Catalog) VoteMatrix() [][]float64 {
	out := make([][]float64, len(c.Galaxies))
	for i, g := range c.Galaxies {
		out[i] = g.Votes
	}
	return out
}
