package profile

import (
	"fmt"
	"strings"
)

// DefaultSummaryLimit bounds the size of the text summary handed to the
// narrative generator.
const DefaultSummaryLimit = 4000

// Summary renders the report as a sectioned plain-text summary, bounded to at
// most limit characters. It is the narrative prompt payload and doubles as the
// locally generated fallback narrative.
func (r *Report) Summary(limit int) string {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	var b strings.Builder

	b.WriteString("Dataset Overview:\n")
	fmt.Fprintf(&b, "- The dataset has %d rows and %d columns.\n", r.Rows, r.Cols)
	missingPct := 0.0
	if r.Rows*r.Cols > 0 {
		missingPct = float64(r.MissingTotal) * 100 / float64(r.Rows*r.Cols)
	}
	fmt.Fprintf(&b, "- Contains %d missing values (%.2f%% of data) and %d duplicate rows.\n",
		r.MissingTotal, missingPct, r.DuplicateRows)

	numeric := r.columnsOfKind("numeric")
	b.WriteString("\nNumeric Insights:\n")
	if len(numeric) == 0 {
		b.WriteString("- No numeric columns detected.\n")
	} else {
		fmt.Fprintf(&b, "- Numeric columns include %s.\n", joinLimited(numeric, 5))
		for _, cp := range r.Columns {
			if cp.Numeric == nil {
				continue
			}
			fmt.Fprintf(&b, "- %s: min %.4g, max %.4g, mean %.4g, std %.4g.\n",
				cp.Name, cp.Numeric.Min, cp.Numeric.Max, cp.Numeric.Mean, cp.Numeric.Std)
		}
		if a, bb, rr, ok := r.Correlation.StrongestPair(); ok {
			fmt.Fprintf(&b, "- The strongest relationship (r = %.2f) is between %s and %s.\n", rr, a, bb)
		} else {
			b.WriteString("- No correlations available (fewer than two numeric columns).\n")
		}
	}

	categorical := r.columnsOfKind("categorical")
	b.WriteString("\nCategorical Insights:\n")
	if len(categorical) == 0 {
		b.WriteString("- No categorical columns detected.\n")
	} else {
		fmt.Fprintf(&b, "- Key categorical columns are %s.\n", joinLimited(categorical, 5))
		for _, cp := range r.Columns {
			if len(cp.TopValues) == 0 {
				continue
			}
			parts := make([]string, 0, len(cp.TopValues))
			for _, tv := range cp.TopValues {
				parts = append(parts, fmt.Sprintf("%s(%d)", tv.Value, tv.Count))
			}
			fmt.Fprintf(&b, "- %s top values: %s.\n", cp.Name, strings.Join(parts, ", "))
		}
	}

	b.WriteString("\nData Health:\n")
	if r.DuplicateRows == 0 {
		b.WriteString("- No duplicate rows detected.\n")
	} else {
		fmt.Fprintf(&b, "- %d duplicate rows found.\n", r.DuplicateRows)
	}
	fmt.Fprintf(&b, "- %d missing values need to be handled (%.2f%% of total data points).\n",
		r.MissingTotal, missingPct)

	out := b.String()
	if len(out) > limit {
		out = out[:limit]
		if i := strings.LastIndexByte(out, '\n'); i > 0 {
			out = out[:i+1]
		}
	}
	return out
}

func (r *Report) columnsOfKind(kind string) []string {
	var names []string
	for _, cp := range r.Columns {
		if string(cp.Kind) == kind {
			names = append(names, cp.Name)
		}
	}
	return names
}

func joinLimited(names []string, limit int) string {
	if len(names) <= limit {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:limit], ", ") + " and more"
}
