package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrFormat indicates the uploaded stream could not be parsed as tabular data.
	ErrFormat = errors.New("unrecognized tabular format")
	// ErrEmptyDataset indicates the upload parsed but contained zero data rows.
	ErrEmptyDataset = errors.New("dataset contains no rows")
)

// Format is the declared upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a filename to a supported Format.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unsupported file extension %q", ErrFormat, filepath.Ext(filename))
	}
}

// Load reads an uploaded stream into a Dataset. The first row is treated as
// the header. Column kinds are decided here, once, by the predominant parsed
// type of each column's non-null cells.
func Load(r io.Reader, name string, format Format) (*Dataset, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch format {
	case FormatCSV:
		header, rows, err = readDelimited(r, name)
	case FormatXLSX:
		header, rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrFormat)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, name)
	}
	return build(name, header, rows), nil
}

func readDelimited(r io.Reader, name string) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = sniffDelimiter(name)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: %s", ErrEmptyDataset, name)
		}
		return nil, nil, fmt.Errorf("%w: read header: %v", ErrFormat, err)
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: read row %d: %v", ErrFormat, len(rows)+1, err)
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}
	return trimHeader(header), rows, nil
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		out[i] = h
	}
	return out
}

// build infers column kinds and materializes the Dataset.
func build(name string, header []string, rows [][]string) *Dataset {
	ncol := len(header)
	ds := &Dataset{Name: name, Rows: len(rows), Columns: make([]Column, ncol)}
	for j := 0; j < ncol; j++ {
		col := Column{Name: header[j], Values: make([]string, len(rows))}
		numCnt, dtCnt, txtCnt := 0, 0, 0
		for i, row := range rows {
			v := ""
			if j < len(row) {
				v = strings.TrimSpace(row[j])
			}
			col.Values[i] = v
			if v == "" {
				continue
			}
			if _, ok := parseNumeric(v); ok {
				numCnt++
			} else if _, ok := parseTimeMaybe(v); ok {
				dtCnt++
			} else {
				txtCnt++
			}
		}
		col.Kind = decideKind(col.Values, numCnt, dtCnt, txtCnt)
		if col.Kind == KindNumeric {
			col.Floats = make([]float64, len(col.Values))
			for i, v := range col.Values {
				if x, ok := parseNumeric(v); ok {
					col.Floats[i] = x
				} else {
					col.Floats[i] = math.NaN()
				}
			}
		}
		ds.Columns[j] = col
	}
	return ds
}

func decideKind(values []string, numCnt, dtCnt, txtCnt int) ColumnKind {
	switch {
	case numCnt > 0 && numCnt >= dtCnt && numCnt >= txtCnt:
		return KindNumeric
	case dtCnt > 0 && dtCnt >= txtCnt:
		return KindDatetime
	case txtCnt > 0:
		if isCategorical(values) {
			return KindCategorical
		}
		return KindText
	default:
		return KindText
	}
}

// isCategorical treats short, repetitive value sets as categories.
func isCategorical(values []string) bool {
	distinct := make(map[string]struct{})
	nonNull := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		nonNull++
		if len(v) > 64 {
			return false
		}
		distinct[v] = struct{}{}
	}
	if nonNull == 0 {
		return false
	}
	return len(distinct) <= nonNull/2+1
}

func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
