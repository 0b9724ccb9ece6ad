package profile

import (
	"math"
	"sort"

	"datavista-backend/internal/dataset"
)

// NumericSummary holds the descriptive statistics of a numeric column.
type NumericSummary struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ValueCount is a categorical value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile holds the per-column statistics of a Report.
type ColumnProfile struct {
	Name      string             `json:"name"`
	Kind      dataset.ColumnKind `json:"kind"`
	Count     int                `json:"count"`
	NullCount int                `json:"null_count"`
	Numeric   *NumericSummary    `json:"numeric,omitempty"`
	TopValues []ValueCount       `json:"top_values,omitempty"`
}

// Correlation is a symmetric Pearson correlation matrix with unit diagonal,
// covering the numeric columns only.
type Correlation struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// PairAt returns the correlation between columns i and j.
func (c *Correlation) PairAt(i, j int) float64 { return c.Values[i][j] }

// StrongestPair returns the off-diagonal pair with the largest |r|, or ok=false
// when the matrix has fewer than two columns.
func (c *Correlation) StrongestPair() (a, b string, r float64, ok bool) {
	if c == nil || len(c.Columns) < 2 {
		return "", "", 0, false
	}
	best := math.Inf(-1)
	for i := 0; i < len(c.Columns); i++ {
		for j := i + 1; j < len(c.Columns); j++ {
			if abs := math.Abs(c.Values[i][j]); abs > best {
				best = abs
				a, b, r = c.Columns[i], c.Columns[j], c.Values[i][j]
			}
		}
	}
	return a, b, r, true
}

// Report is the full descriptive profile of a Dataset. It is derived
// deterministically: re-profiling an unchanged Dataset yields an identical
// Report, and every Dataset column appears exactly once, in column order.
type Report struct {
	DatasetName   string          `json:"dataset_name"`
	Rows          int             `json:"rows"`
	Cols          int             `json:"cols"`
	MissingTotal  int             `json:"missing_total"`
	DuplicateRows int             `json:"duplicate_rows"`
	Columns       []ColumnProfile `json:"columns"`
	Correlation   *Correlation    `json:"correlation,omitempty"`
}

const maxTopValues = 8

// Profile computes the descriptive statistics of a Dataset. Pure function: it
// does not mutate the Dataset and has no side effects.
func Profile(ds *dataset.Dataset) *Report {
	rep := &Report{
		DatasetName:   ds.Name,
		Rows:          ds.Rows,
		Cols:          len(ds.Columns),
		DuplicateRows: ds.DuplicateRows(),
		Columns:       make([]ColumnProfile, 0, len(ds.Columns)),
	}

	for i := range ds.Columns {
		col := &ds.Columns[i]
		cp := ColumnProfile{
			Name:      col.Name,
			Kind:      col.Kind,
			Count:     len(col.Values),
			NullCount: col.NullCount(),
		}
		rep.MissingTotal += cp.NullCount
		switch col.Kind {
		case dataset.KindNumeric:
			cp.Numeric = summarize(col.Floats)
		case dataset.KindCategorical:
			cp.TopValues = topValues(col.Values, maxTopValues)
		}
		rep.Columns = append(rep.Columns, cp)
	}

	rep.Correlation = correlate(ds)
	return rep
}

// summarize computes min/max/mean/std over the non-NaN values using Welford's
// algorithm for the mean and variance.
func summarize(vals []float64) *NumericSummary {
	s := &NumericSummary{Min: math.Inf(1), Max: math.Inf(-1)}
	n := 0
	m2 := 0.0
	for _, x := range vals {
		if math.IsNaN(x) {
			continue
		}
		n++
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
		delta := x - s.Mean
		s.Mean += delta / float64(n)
		m2 += delta * (x - s.Mean)
	}
	if n == 0 {
		return &NumericSummary{}
	}
	if n > 1 {
		s.Std = math.Sqrt(m2 / float64(n-1))
	}
	return s
}

func topValues(values []string, limit int) []ValueCount {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	tops := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		tops = append(tops, ValueCount{Value: v, Count: c})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// pairAcc accumulates the sums needed for an exact pairwise Pearson r over
// rows where both values are present.
type pairAcc struct {
	n, sumX, sumY, sumXX, sumYY, sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

func (p *pairAcc) r() float64 {
	if p.n < 2 {
		return 0
	}
	denom := math.Sqrt((p.n*p.sumXX - p.sumX*p.sumX) * (p.n*p.sumYY - p.sumY*p.sumY))
	if denom == 0 {
		return 0
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// correlate builds the Pearson matrix across numeric columns, or returns nil
// when fewer than two numeric columns exist.
func correlate(ds *dataset.Dataset) *Correlation {
	numIdx := ds.NumericColumns()
	if len(numIdx) < 2 {
		return nil
	}
	n := len(numIdx)
	accs := make([][]pairAcc, n)
	for i := range accs {
		accs[i] = make([]pairAcc, n)
	}
	for row := 0; row < ds.Rows; row++ {
		for a := 0; a < n; a++ {
			x := ds.Columns[numIdx[a]].Floats[row]
			if math.IsNaN(x) {
				continue
			}
			for b := a + 1; b < n; b++ {
				y := ds.Columns[numIdx[b]].Floats[row]
				if math.IsNaN(y) {
					continue
				}
				accs[a][b].add(x, y)
			}
		}
	}

	corr := &Correlation{
		Columns: make([]string, n),
		Values:  make([][]float64, n),
	}
	for i, idx := range numIdx {
		corr.Columns[i] = ds.Columns[idx].Name
		corr.Values[i] = make([]float64, n)
		corr.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := accs[a][b].r()
			corr.Values[a][b] = r
			corr.Values[b][a] = r
		}
	}
	return corr
}
