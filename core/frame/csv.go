package frame

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

// ReadCSVFile reads a headered CSV file into a Dataset. See ReadCSV.
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV reads a CSV stream whose first record is the header. A column whose cells
// all parse as numbers is numeric: empty cells and NA/NaN/null become NaN so that the
// model's missing-value routing applies, and true/false become 1/0. Any other column
// (ids, dates, categories) is kept as text. A UTF-8 byte order mark before the header
// is dropped.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReadCSV: missing header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV: header")
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records [][]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "ReadCSV: line %d", line)
		}
		records = append(records, record)
	}

	return FromRecords(header, records)
}

func parseColumn(cells []string) ([]float64, error) {
	values := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := parseCell(cell)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseCell(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteCSV writes the Dataset with a header row. NaN is written as an empty cell and
// text columns are written as read.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.names); err != nil {
		return errors.Wrap(err, "WriteCSV: header")
	}

	record := make([]string, len(d.names))
	for i := 0; i < d.rows; i++ {
		for j := range d.names {
			if d.text[j] != nil {
				record[j] = d.text[j][i]
				continue
			}
			v := d.cols[j][i]
			if math.IsNaN(v) {
				record[j] = ""
				continue
			}
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "WriteCSV: row %d", i)
		}
	}

	writer.Flush()
	return writer.Error()
}
