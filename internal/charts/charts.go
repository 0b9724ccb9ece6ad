package charts

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"datavista-backend/internal/dataset"
	"datavista-backend/internal/profile"
)

// Artifact is an encoded chart image with a caption. Immutable once produced.
type Artifact struct {
	Caption string `json:"caption"`
	PNG     []byte `json:"png"`
}

// maxHistograms caps how many distribution plots a single dataset produces.
const maxHistograms = 6

// Render produces the chart artifacts for a profiled dataset: a correlation
// heatmap when the profile has a correlation matrix, and a histogram per
// numeric column. A dataset without numeric columns yields an empty list, not
// an error; that is a reporting degradation rather than a failure.
func Render(rep *profile.Report, ds *dataset.Dataset) ([]Artifact, error) {
	var tasks []renderTask
	for _, idx := range ds.NumericColumns() {
		if len(tasks) >= maxHistograms {
			break
		}
		col := &ds.Columns[idx]
		vals := col.Numbers()
		if len(vals) == 0 {
			continue
		}
		tasks = append(tasks, renderTask{slot: len(tasks), name: col.Name, vals: vals})
	}

	hists := make([]Artifact, len(tasks))
	if err := renderAll(tasks, hists); err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(hists)+1)
	if rep.Correlation != nil {
		heat, err := Heatmap(rep.Correlation)
		if err != nil {
			return nil, fmt.Errorf("render heatmap: %w", err)
		}
		artifacts = append(artifacts, heat)
	}
	return append(artifacts, hists...), nil
}

// Histogram renders the distribution of a numeric column as a bar chart.
func Histogram(name string, vals []float64) (Artifact, error) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	// Sturges' rule, clamped to a readable bar count.
	bins := int(math.Ceil(math.Log2(float64(len(vals))))) + 1
	if bins < 1 {
		bins = 1
	}
	if bins > 12 {
		bins = 12
	}
	if hi == lo {
		bins = 1
	}

	counts := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range vals {
		idx := 0
		if width > 0 {
			idx = int((v - lo) / width)
			if idx >= bins {
				idx = bins - 1
			}
		}
		counts[idx]++
	}

	bars := make([]chart.Value, bins)
	maxCount := 0
	for i, c := range counts {
		label := fmt.Sprintf("%.3g", lo+width*(float64(i)+0.5))
		if bins == 1 {
			label = fmt.Sprintf("%.3g", lo)
		}
		bars[i] = chart.Value{Value: float64(c), Label: label}
		if c > maxCount {
			maxCount = c
		}
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Distribution of %s", name),
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      640,
		Height:     420,
		BarWidth:   (560 / bins) - 10,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount) + 1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Caption: fmt.Sprintf("Distribution of %s (%d values, %d bins)", name, len(vals), bins),
		PNG:     buf.Bytes(),
	}, nil
}
