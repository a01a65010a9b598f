package data

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Load reads a credit CSV at path. See Read.
func Load(path string, schema Schema, expectedRows int) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "data: open %s", path)
	}
	defer file.Close()
	return Read(bufio.NewReader(file), schema, expectedRows)
}

// Read parses CSV input whose header must equal schema.Header(). Any empty
// cell is a *MissingValueError; header, type and row-count problems are
// *SchemaMismatchError. expectedRows <= 0 disables the row-count check.
func Read(r io.Reader, schema Schema, expectedRows int) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &SchemaMismatchError{Reason: "empty input"}
	}
	if err != nil {
		return nil, errors.Wrap(err, "data: read header")
	}
	if err := checkHeader(header, schema); err != nil {
		return nil, err
	}

	nCols := len(schema.Features) + 1
	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "data: read row %d", len(rows)+1)
		}
		row := len(rows) + 1
		if len(rec) != nCols {
			return nil, &SchemaMismatchError{Row: row, Reason: "expected " + strconv.Itoa(nCols) + " fields, got " + strconv.Itoa(len(rec))}
		}
		for j, v := range rec {
			v = strings.TrimSpace(v)
			if v == "" || v == "NA" {
				return nil, &MissingValueError{Row: row, Column: header[j]}
			}
			rec[j] = v
		}
		rows = append(rows, rec)
	}
	if expectedRows > 0 && len(rows) != expectedRows {
		return nil, &SchemaMismatchError{Reason: "expected " + strconv.Itoa(expectedRows) + " rows, got " + strconv.Itoa(len(rows))}
	}

	return build(rows, schema)
}

func checkHeader(header []string, schema Schema) error {
	want := schema.Header()
	if len(header) != len(want) {
		return &SchemaMismatchError{Reason: "expected " + strconv.Itoa(len(want)) + " columns, got " + strconv.Itoa(len(header))}
	}
	for j, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h != want[j] {
			return &SchemaMismatchError{Column: h, Reason: "expected column " + strconv.Quote(want[j]) + " at position " + strconv.Itoa(j+1)}
		}
	}
	return nil
}

// build types the raw cells column by column.
func build(rows [][]string, schema Schema) (*Dataset, error) {
	out := Schema{Label: schema.Label, Features: make([]Column, len(schema.Features))}
	recs := make([]Record, len(rows))
	for i := range recs {
		recs[i] = Record{ID: i, Origin: i, Values: make([]float64, len(schema.Features))}
	}

	for j, c := range schema.Features {
		out.Features[j] = Column{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case Categorical:
			col := make([]string, len(rows))
			for i, row := range rows {
				col[i] = row[j]
			}
			codes, levels := EncodeLevels(col)
			for i, code := range codes {
				recs[i].Values[j] = float64(code)
			}
			out.Features[j].Levels = levels
		default:
			for i, row := range rows {
				v, err := strconv.ParseFloat(row[j], 64)
				if err != nil {
					return nil, &SchemaMismatchError{Row: i + 1, Column: c.Name, Reason: "not numeric: " + strconv.Quote(row[j])}
				}
				recs[i].Values[j] = v
			}
		}
	}

	labelCol := len(schema.Features)
	for i, row := range rows {
		l, err := ParseLabel(row[labelCol])
		if err != nil {
			return nil, &SchemaMismatchError{Row: i + 1, Column: schema.Label, Reason: err.Error()}
		}
		recs[i].Label = l
	}
	return New(out, recs), nil
}
