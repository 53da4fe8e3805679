// Package profile reduces CSV text to a bounded statistical summary that can be
// embedded in an LLM prompt in place of the raw rows.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedInput is returned when the CSV lacks a header plus at least one data row
var ErrMalformedInput = errors.New("CSV must have at least a header and one data row")

const (
	// MaxColumns is the number of columns profiled; the rest are only counted
	MaxColumns = 100
	// TopK is the number of most frequent values kept per column
	TopK = 5
	// SampleSize is the number of distinct sample values kept per column
	SampleSize = 5
	// MaxSampleLength truncates long column names, sample and top values, in runes
	MaxSampleLength = 80
)

// ColumnType is the inferred type of a column
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
	Date        ColumnType = "date"
	Text        ColumnType = "text"
)

// ValueCount is a value and how often it occurs among non-empty cells
type ValueCount struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Column summarizes one CSV column
type Column struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Count   int        `json:"count"`
	Missing int        `json:"missing"`
	Unique  int        `json:"unique"`

	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	StdDev *float64 `json:"stdDev,omitempty"`

	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`

	TopValues []ValueCount `json:"topValues,omitempty"`
	Samples   []string     `json:"samples,omitempty"`
}

// Profile is the summary of one CSV file. It is never mutated after construction.
type Profile struct {
	RowCount         int      `json:"rowCount"`
	ColumnCount      int      `json:"columnCount"`
	TruncatedColumns int      `json:"truncatedColumns,omitempty"`
	Columns          []Column `json:"columns"`
}

// FromCSV parses CSV text and summarizes it
func FromCSV(text string) (*Profile, error) {
	if n := nonEmptyLines(text); n < 2 {
		return nil, fmt.Errorf("%w (found %d non-empty lines)", ErrMalformedInput, n)
	}
	return Summarize(ParseCSV(text))
}

// Summarize builds a profile from parsed rows; the first row is the header
func Summarize(rows [][]string) (*Profile, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w (found %d rows)", ErrMalformedInput, len(rows))
	}

	header := rows[0]
	data := rows[1:]

	p := &Profile{
		RowCount:    len(data),
		ColumnCount: len(header),
	}

	profiled := len(header)
	if profiled > MaxColumns {
		p.TruncatedColumns = profiled - MaxColumns
		profiled = MaxColumns
	}

	p.Columns = make([]Column, 0, profiled)
	for i := 0; i < profiled; i++ {
		values := make([]string, len(data))
		for r, row := range data {
			if i < len(row) {
				values[r] = row[i]
			}
		}
		p.Columns = append(p.Columns, summarizeColumn(columnName(header[i], i), values))
	}

	return p, nil
}

func columnName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("column_%d", index+1)
	}
	return truncate(name)
}

// JSON returns the indented JSON form embedded in prompts
func (p *Profile) JSON() (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling data profile: %w", err)
	}
	return string(data), nil
}

// Column returns the named column, if profiled
func (p *Profile) Column(name string) (Column, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
