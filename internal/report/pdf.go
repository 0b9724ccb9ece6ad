package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"datavista-backend/internal/charts"
	"datavista-backend/internal/profile"
)

// Options selects which optional sections the document includes.
type Options struct {
	IncludeCharts    bool `schema:"charts"`
	IncludeNarrative bool `schema:"narrative"`
}

// DefaultOptions includes every section.
func DefaultOptions() Options {
	return Options{IncludeCharts: true, IncludeNarrative: true}
}

// Build assembles the profile, chart artifacts, and narrative into a single
// PDF and writes it to w. A missing narrative or an empty artifact list
// degrades the document (the section is omitted); it never fails the build.
func Build(w io.Writer, rep *profile.Report, arts []charts.Artifact, narrativeText string, opts Options) error {
	pdf := fpdf.New("P", "mm", "A4", "")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 16)
		pdf.SetTextColor(26, 188, 156)
		pdf.CellFormat(0, 10, "DataVista - AI Insight Report", "", 1, "C", false, 0, "")
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(169, 169, 169)
		generated := fmt.Sprintf("Generated on %s", time.Now().Format("January 2, 2006"))
		pdf.CellFormat(0, 10, generated, "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	addSection(pdf, "Dataset Overview", overviewText(rep))

	if opts.IncludeNarrative && narrativeText != "" {
		addSection(pdf, "AI-Generated Insights", narrativeText)
	}

	addSection(pdf, "Data Types Analysis", dataTypesText(rep))
	addSection(pdf, "Statistical Analysis", statsText(rep))

	if opts.IncludeCharts {
		for i, art := range arts {
			if err := addChart(pdf, i, art); err != nil {
				return fmt.Errorf("embed chart %q: %w", art.Caption, err)
			}
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func addSection(pdf *fpdf.Fpdf, title, content string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(0, 191, 166)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(50, 50, 50)
	pdf.MultiCell(0, 6, sanitize(content), "", "L", false)
	pdf.Ln(4)
}

func addChart(pdf *fpdf.Fpdf, idx int, art charts.Artifact) error {
	name := fmt.Sprintf("chart-%d", idx)
	imgOpts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(art.PNG))
	if pdf.Err() {
		return pdf.Error()
	}
	pdf.SetFont("Arial", "I", 10)
	pdf.SetTextColor(50, 50, 50)
	pdf.CellFormat(0, 8, sanitize(art.Caption), "", 1, "L", false, 0, "")
	pdf.ImageOptions(name, 15, -1, 170, 0, true, imgOpts, 0, "")
	pdf.Ln(6)
	return pdf.Error()
}

func overviewText(rep *profile.Report) string {
	return fmt.Sprintf(
		"Dataset: %s\n- Total Records: %d\n- Total Features: %d\n- Missing Values: %d\n- Duplicate Rows: %d",
		rep.DatasetName, rep.Rows, rep.Cols, rep.MissingTotal, rep.DuplicateRows,
	)
}

func dataTypesText(rep *profile.Report) string {
	byKind := map[string][]string{}
	for _, cp := range rep.Columns {
		byKind[string(cp.Kind)] = append(byKind[string(cp.Kind)], cp.Name)
	}
	var b strings.Builder
	for _, kind := range []string{"numeric", "categorical", "datetime", "text"} {
		names := byKind[kind]
		if len(names) == 0 {
			continue
		}
		label := strings.ToUpper(kind[:1]) + kind[1:]
		fmt.Fprintf(&b, "%s features (%d): %s\n", label, len(names), strings.Join(names, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func statsText(rep *profile.Report) string {
	var b strings.Builder
	for _, cp := range rep.Columns {
		fmt.Fprintf(&b, "%s (%s): count %d, missing %d", cp.Name, cp.Kind, cp.Count, cp.NullCount)
		if cp.Numeric != nil {
			fmt.Fprintf(&b, ", min %.4g, max %.4g, mean %.4g, std %.4g",
				cp.Numeric.Min, cp.Numeric.Max, cp.Numeric.Mean, cp.Numeric.Std)
		}
		b.WriteString("\n")
	}
	if a, bb, r, ok := rep.Correlation.StrongestPair(); ok {
		fmt.Fprintf(&b, "\nStrongest correlation: %s ~ %s (r = %.3f)", a, bb, r)
	}
	return strings.TrimRight(b.String(), "\n")
}
