// Package frame provides a minimal named-column table for inference inputs.
//
// A Dataset is immutable once built: every accessor returns copies, so handing a
// Dataset to the pipeline never lets a model or a caller mutate another caller's data.
//
// Columns read from CSV that do not parse as numbers (product ids, dates, categories)
// are kept as raw text. They only become an error when a caller asks for them as
// numbers through Select or Floats.
package frame

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/demandcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a table of equally sized columns addressed by name.
type Dataset struct {
	names []string
	index map[string]int
	cols  [][]float64
	// text[j] holds the raw cells of column j when it is not numeric, nil otherwise.
	text [][]string
	rows int
}

// New builds a Dataset from parallel name and column slices. Columns are copied.
func New(names []string, columns [][]float64) (*Dataset, error) {
	if len(names) != len(columns) {
		return nil, errors.NewDimensionError("frame.New", len(names), len(columns), 1)
	}
	return build(names, columns, make([][]string, len(names)))
}

// FromColumns builds a Dataset from a name -> values map. Column order is sorted by name.
func FromColumns(columns map[string][]float64) (*Dataset, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([][]float64, len(names))
	for i, name := range names {
		values[i] = columns[name]
	}
	return New(names, values)
}

// FromRecords builds a Dataset from a header and string records. A column becomes
// numeric when every cell parses (see ReadCSV for the accepted spellings); any
// other column keeps its raw cells.
func FromRecords(header []string, records [][]string) (*Dataset, error) {
	cols := make([][]float64, len(header))
	text := make([][]string, len(header))
	for j := range header {
		raw := make([]string, len(records))
		for i, rec := range records {
			if len(rec) != len(header) {
				return nil, errors.NewDimensionError("frame.FromRecords", len(header), len(rec), 1)
			}
			raw[i] = rec[j]
		}

		values, err := parseColumn(raw)
		if err != nil {
			text[j] = raw
			continue
		}
		cols[j] = values
	}
	return build(header, cols, text)
}

func build(names []string, cols [][]float64, text [][]string) (*Dataset, error) {
	d := &Dataset{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		cols:  make([][]float64, len(names)),
		text:  make([][]string, len(names)),
	}

	for j, name := range names {
		if name == "" {
			return nil, errors.NewValidationError("names", "column name must not be empty", j)
		}
		if _, dup := d.index[name]; dup {
			return nil, errors.NewValidationError("names", "duplicate column name", name)
		}
		d.index[name] = j

		n := len(cols[j])
		if text[j] != nil {
			n = len(text[j])
		}
		if j == 0 {
			d.rows = n
		} else if n != d.rows {
			return nil, errors.NewDimensionError("frame.New", d.rows, n, 0)
		}

		if text[j] != nil {
			d.text[j] = append([]string(nil), text[j]...)
		} else {
			d.cols[j] = append([]float64(nil), cols[j]...)
		}
	}

	return d, nil
}

// NumRows returns the number of observations.
func (d *Dataset) NumRows() int {
	return d.rows
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	return len(d.names)
}

// Columns returns the column names in table order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.names...)
}

// Has reports whether the table has a column with the given name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// IsNumeric reports whether the named column exists and holds numbers.
func (d *Dataset) IsNumeric(name string) bool {
	j, ok := d.index[name]
	return ok && d.text[j] == nil
}

// Column returns a copy of the named numeric column. ok is false when the column
// is absent or holds text.
func (d *Dataset) Column(name string) ([]float64, bool) {
	j, ok := d.index[name]
	if !ok || d.text[j] != nil {
		return nil, false
	}
	return append([]float64(nil), d.cols[j]...), true
}

// Text returns a copy of the raw cells of a text column.
func (d *Dataset) Text(name string) ([]string, bool) {
	j, ok := d.index[name]
	if !ok || d.text[j] == nil {
		return nil, false
	}
	return append([]string(nil), d.text[j]...), true
}

// Floats returns a copy of the named column as numbers. A missing column is a
// SchemaValidationError and a text column a ValueError naming the first cell that
// does not parse.
func (d *Dataset) Floats(name string) ([]float64, error) {
	j, ok := d.index[name]
	if !ok {
		return nil, errors.NewSchemaValidationError("Floats", []string{name})
	}
	if d.text[j] != nil {
		return nil, notNumeric(name, d.text[j])
	}
	return append([]float64(nil), d.cols[j]...), nil
}

func notNumeric(name string, cells []string) error {
	for i, cell := range cells {
		if _, err := parseCell(cell); err != nil {
			return errors.NewValueError("frame",
				fmt.Sprintf("column %q is not numeric: row %d value %q", name, i, cell))
		}
	}
	return errors.NewValueError("frame", fmt.Sprintf("column %q is not numeric", name))
}

// Missing returns the names in required that are not columns of the table,
// in first-seen order and without duplicates.
func (d *Dataset) Missing(required []string) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, name := range required {
		if d.Has(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}
	return missing
}

// Select copies the named columns, in the given order, into a new rows × len(cols)
// matrix. Writes to the result never reach the Dataset. Every selected column must
// be numeric; the other columns of the table are not looked at.
func (d *Dataset) Select(cols []string) (*mat.Dense, error) {
	if missing := d.Missing(cols); len(missing) > 0 {
		return nil, errors.NewSchemaValidationError("Select", missing)
	}
	if len(cols) == 0 {
		return nil, errors.NewValueError("Select", "no columns requested")
	}
	for _, name := range cols {
		if j := d.index[name]; d.text[j] != nil {
			return nil, notNumeric(name, d.text[j])
		}
	}
	if d.rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Select")
	}

	X := mat.NewDense(d.rows, len(cols), nil)
	for j, name := range cols {
		X.SetCol(j, d.cols[d.index[name]])
	}
	return X, nil
}

// WithColumn returns a new Dataset with values appended as column name,
// or replacing it when name already exists.
func (d *Dataset) WithColumn(name string, values []float64) (*Dataset, error) {
	if len(d.names) > 0 && len(values) != d.rows {
		return nil, errors.NewDimensionError("WithColumn", d.rows, len(values), 0)
	}

	names := d.Columns()
	cols := append([][]float64(nil), d.cols...)
	text := append([][]string(nil), d.text...)
	if j, ok := d.index[name]; ok {
		cols[j], text[j] = values, nil
	} else {
		names = append(names, name)
		cols = append(cols, values)
		text = append(text, nil)
	}
	return build(names, cols, text)
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	c, _ := build(d.names, d.cols, d.text)
	return c
}

// Equal reports whether both tables have the same columns in the same order with
// identical values. NaN compares equal to NaN.
func (d *Dataset) Equal(o *Dataset) bool {
	if d.rows != o.rows || len(d.names) != len(o.names) {
		return false
	}
	for j := range d.names {
		if d.names[j] != o.names[j] {
			return false
		}
		if (d.text[j] == nil) != (o.text[j] == nil) {
			return false
		}
		for i, s := range d.text[j] {
			if s != o.text[j][i] {
				return false
			}
		}
		for i, v := range d.cols[j] {
			w := o.cols[j][i]
			if v != w && !(v != v && w != w) {
				return false
			}
		}
	}
	return true
}
