package upload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const sampleRowCount = 5

const (
	DtypeInt    = "int64"
	DtypeFloat  = "float64"
	DtypeBool   = "bool"
	DtypeObject = "object"
)

var ErrEmpty = errors.New("csv file is empty")

type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Preview describes a parsed CSV table.
type Preview struct {
	Columns      []string                       `json:"columns"`
	Dtypes       map[string]string              `json:"dtypes"`
	SampleRows   []map[string]any               `json:"sample_rows"`
	SummaryStats map[string]map[string]*float64 `json:"summary_stats"`
	RowCount     int                            `json:"-"`
}

// Markers read as missing values.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

// IsCSVFilename reports whether name carries the .csv suffix.
func IsCSVFilename(name string) bool {
	return strings.HasSuffix(name, ".csv")
}

// Inspect parses a UTF-8 CSV with a header row and summarizes it. Nothing is
// kept after it returns.
func Inspect(r io.Reader) (*Preview, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if !utf8.Valid(raw) {
		return nil, &ParseError{Err: errors.New("file is not valid UTF-8")}
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: errors.New("no columns to parse from file")}
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	columns := uniqueColumns(header)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		if len(rec) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{Err: fmt.Errorf("expected %d fields in line %d, saw %d", len(columns), line, len(rec))}
		}
		for len(rec) < len(columns) {
			rec = append(rec, "")
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	cols := make([]column, len(columns))
	for i, name := range columns {
		cols[i] = inferColumn(name, rows, i)
	}

	p := &Preview{
		Columns:      columns,
		Dtypes:       make(map[string]string, len(cols)),
		SampleRows:   make([]map[string]any, 0, sampleRowCount),
		SummaryStats: map[string]map[string]*float64{},
		RowCount:     len(rows),
	}
	for _, c := range cols {
		p.Dtypes[c.name] = c.dtype
		if c.numeric() {
			p.SummaryStats[c.name] = describe(c.numbers)
		}
	}
	for r := 0; r < len(rows) && r < sampleRowCount; r++ {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c.name] = c.values[r]
		}
		p.SampleRows = append(p.SampleRows, row)
	}
	return p, nil
}

// uniqueColumns names blank headers "Unnamed: i" and suffixes repeats with
// ".1", ".2", ... A suffixed name that is itself taken is suffixed again
// ("x", "x", "x.1" becomes "x", "x.1", "x.1.1"). Header text is kept as is.
func uniqueColumns(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		n := counts[name]
		for n > 0 {
			counts[name] = n + 1
			name = name + "." + strconv.Itoa(n)
			n = counts[name]
		}
		counts[name] = n + 1
		out[i] = name
	}
	return out
}

type column struct {
	name    string
	dtype   string
	values  []any
	numbers []float64 // non-missing values of numeric columns
}

func (c column) numeric() bool {
	return c.dtype == DtypeInt || c.dtype == DtypeFloat
}

func inferColumn(name string, rows [][]string, idx int) column {
	cells := make([]string, len(rows))
	missing := 0
	for i, rec := range rows {
		cells[i] = rec[idx]
		if naValues[cells[i]] {
			missing++
		}
	}

	allInt, allFloat, allBool := true, true, true
	for _, s := range cells {
		if naValues[s] {
			continue
		}
		t := strings.TrimSpace(s)
		if _, err := strconv.ParseInt(t, 10, 64); err != nil {
			allInt = false
		}
		if f, err := strconv.ParseFloat(t, 64); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			allFloat = false
		}
		if _, ok := parseBool(t); !ok {
			allBool = false
		}
	}

	c := column{name: name, values: make([]any, len(cells))}
	switch {
	case missing == len(cells):
		// nothing but missing values reads as an all-NaN float column
		c.dtype = DtypeFloat
	case allInt && missing == 0:
		c.dtype = DtypeInt
	case allInt || allFloat:
		c.dtype = DtypeFloat
	case allBool && missing == 0:
		c.dtype = DtypeBool
	default:
		c.dtype = DtypeObject
	}

	for i, s := range cells {
		if naValues[s] {
			c.values[i] = nil
			continue
		}
		t := strings.TrimSpace(s)
		switch c.dtype {
		case DtypeInt:
			n, _ := strconv.ParseInt(t, 10, 64)
			c.values[i] = n
			c.numbers = append(c.numbers, float64(n))
		case DtypeFloat:
			f, _ := strconv.ParseFloat(t, 64)
			c.values[i] = f
			c.numbers = append(c.numbers, f)
		case DtypeBool:
			b, _ := parseBool(t)
			c.values[i] = b
		default:
			c.values[i] = s
		}
	}
	return c
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// describe returns count, mean, std (sample), min, quartiles and max. Stats
// that are undefined for the sample size are nil.
func describe(values []float64) map[string]*float64 {
	n := len(values)
	count := float64(n)
	stats := map[string]*float64{
		"count": &count,
		"mean":  nil, "std": nil, "min": nil,
		"25%": nil, "50%": nil, "75%": nil, "max": nil,
	}
	if n == 0 {
		return stats
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / count
	stats["mean"] = ptr(mean)

	if n > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		stats["std"] = ptr(math.Sqrt(sq / float64(n-1)))
	}

	stats["min"] = ptr(sorted[0])
	stats["25%"] = ptr(quantile(sorted, 0.25))
	stats["50%"] = ptr(quantile(sorted, 0.50))
	stats["75%"] = ptr(quantile(sorted, 0.75))
	stats["max"] = ptr(sorted[n-1])
	return stats
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func ptr(v float64) *float64 { return &v }
