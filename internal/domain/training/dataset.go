// Package training fits the regression artifacts served by the prediction
// service: CSV loading and cleaning, derived columns, a standard scaler and
// an ordinary least squares model. It also compares pass/fail classifiers
// on the same data.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/grader/internal/domain/grading"
)

// Column names derived from subject marks.
const (
	ColumnTotal   = "total"
	ColumnAverage = "average"
	ColumnGrade   = "grade"
)

// SubjectColumns are averaged into ColumnAverage when it is absent.
var SubjectColumns = []string{"math", "science", "english"}

// Dataset is a column-oriented table read from CSV. Columns whose every
// non-empty cell parses as a number are numeric; missing numeric cells are
// NaN and missing text cells are "".
type Dataset struct {
	columns []string
	numeric map[string][]float64
	text    map[string][]string
	rows    int
}

// NewDataset returns an empty dataset with n rows.
func NewDataset(n int) *Dataset {
	return &Dataset{
		numeric: make(map[string][]float64),
		text:    make(map[string][]string),
		rows:    n,
	}
}

// ReadCSV parses a CSV document with a header row.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrEmptyDataset)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	ds := NewDataset(len(records))
	for c, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty column name at %d", ErrInvalidDataset, c)
		}
		if ds.Has(name) {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidDataset, name)
		}

		cells := make([]string, len(records))
		for i, rec := range records {
			if c < len(rec) {
				cells[i] = strings.TrimSpace(rec[c])
			}
		}

		if nums, ok := parseNumeric(cells); ok {
			ds.SetNumeric(name, nums)
		} else {
			ds.SetText(name, cells)
		}
	}
	return ds, nil
}

func parseNumeric(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	seen := false
	for i, s := range cells {
		if s == "" {
			out[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
		seen = true
	}
	return out, seen
}

// Columns returns column names in insertion order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int { return d.rows }

// Has reports whether the dataset has a column called name.
func (d *Dataset) Has(name string) bool {
	_, n := d.numeric[name]
	_, t := d.text[name]
	return n || t
}

// IsNumeric reports whether name is a numeric column.
func (d *Dataset) IsNumeric(name string) bool {
	_, ok := d.numeric[name]
	return ok
}

// Numeric returns a copy of a numeric column.
func (d *Dataset) Numeric(name string) ([]float64, bool) {
	col, ok := d.numeric[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, true
}

// Text returns a copy of a text column.
func (d *Dataset) Text(name string) ([]string, bool) {
	col, ok := d.text[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(col))
	copy(out, col)
	return out, true
}

// SetNumeric adds or replaces a numeric column. It panics when the length
// does not match the row count.
func (d *Dataset) SetNumeric(name string, vals []float64) {
	d.checkLen(name, len(vals))
	if !d.Has(name) {
		d.columns = append(d.columns, name)
	}
	delete(d.text, name)
	col := make([]float64, len(vals))
	copy(col, vals)
	d.numeric[name] = col
}

// SetText adds or replaces a text column. It panics when the length does
// not match the row count.
func (d *Dataset) SetText(name string, vals []string) {
	d.checkLen(name, len(vals))
	if !d.Has(name) {
		d.columns = append(d.columns, name)
	}
	delete(d.numeric, name)
	col := make([]string, len(vals))
	copy(col, vals)
	d.text[name] = col
}

func (d *Dataset) checkLen(name string, n int) {
	if n != d.rows {
		panic(fmt.Sprintf("training: column %q has %d values for %d rows", name, n, d.rows))
	}
}

// Clean fills missing numeric cells with the column median and missing
// text cells with the column mode. It returns the number of cells filled
// per column.
func (d *Dataset) Clean() map[string]int {
	filled := make(map[string]int)
	for _, name := range d.columns {
		if col, ok := d.numeric[name]; ok {
			med, ok := median(col)
			if !ok {
				continue
			}
			for i, v := range col {
				if math.IsNaN(v) {
					col[i] = med
					filled[name]++
				}
			}
			continue
		}
		col := d.text[name]
		m, ok := mode(col)
		if !ok {
			continue
		}
		for i, v := range col {
			if v == "" {
				col[i] = m
				filled[name]++
			}
		}
	}
	return filled
}

// Derive adds total and average from the subject columns when average is
// absent, and a grade column from scale when grade is absent. It returns
// the names of the added columns.
func (d *Dataset) Derive(scale grading.Scale) []string {
	var added []string

	if !d.Has(ColumnAverage) && d.hasSubjects() {
		total := make([]float64, d.rows)
		for _, s := range SubjectColumns {
			for i, v := range d.numeric[s] {
				total[i] += v
			}
		}
		avg := make([]float64, d.rows)
		for i, t := range total {
			avg[i] = t / float64(len(SubjectColumns))
		}
		if !d.Has(ColumnTotal) {
			d.SetNumeric(ColumnTotal, total)
			added = append(added, ColumnTotal)
		}
		d.SetNumeric(ColumnAverage, avg)
		added = append(added, ColumnAverage)
	}

	if !d.Has(ColumnGrade) && d.IsNumeric(ColumnAverage) {
		grades := make([]string, d.rows)
		for i, v := range d.numeric[ColumnAverage] {
			if math.IsNaN(v) {
				continue
			}
			grades[i] = string(scale.Grade(v))
		}
		d.SetText(ColumnGrade, grades)
		added = append(added, ColumnGrade)
	}
	return added
}

func (d *Dataset) hasSubjects() bool {
	for _, s := range SubjectColumns {
		if !d.IsNumeric(s) {
			return false
		}
	}
	return true
}

// WriteCSV writes the dataset with a header row. Missing numeric cells are
// written empty.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(d.columns))
	for i := 0; i < d.rows; i++ {
		for c, name := range d.columns {
			if col, ok := d.numeric[name]; ok {
				if math.IsNaN(col[i]) {
					rec[c] = ""
				} else {
					rec[c] = strconv.FormatFloat(col[i], 'f', -1, 64)
				}
				continue
			}
			rec[c] = d.text[name][i]
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func median(col []float64) (float64, bool) {
	vals := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}

// mode returns the most frequent non-empty value; ties go to the value
// that sorts first.
func mode(col []string) (string, bool) {
	counts := make(map[string]int)
	for _, v := range col {
		if v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}
