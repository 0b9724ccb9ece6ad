package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// readXLSX extracts the header and rows of the first worksheet of an xlsx
// stream. Only the workbook parts needed for tabular extraction are read:
// xl/workbook.xml, the workbook relationships, xl/sharedStrings.xml, and the
// target sheet.
func readXLSX(r io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open xlsx: %v", ErrFormat, err)
	}

	target := firstSheetPath(zr)
	sheetXML := readZipFile(zr, target)
	if len(sheetXML) == 0 {
		return nil, nil, fmt.Errorf("%w: missing worksheet %s", ErrFormat, target)
	}
	shared := parseSharedStrings(readZipFile(zr, "xl/sharedStrings.xml"))

	rows, err := parseSheetRows(sheetXML, shared)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: worksheet is empty", ErrEmptyDataset)
	}
	return trimHeader(rows[0]), rows[1:], nil
}

type wbSheet struct {
	Name string `xml:"name,attr"`
	RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type wbRel struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// firstSheetPath resolves the archive path of the workbook's first sheet,
// falling back to the conventional xl/worksheets/sheet1.xml.
func firstSheetPath(zr *zip.Reader) string {
	var wb struct {
		Sheets []wbSheet `xml:"sheets>sheet"`
	}
	var rels struct {
		Rels []wbRel `xml:"Relationship"`
	}
	_ = xml.Unmarshal(readZipFile(zr, "xl/workbook.xml"), &wb)
	_ = xml.Unmarshal(readZipFile(zr, "xl/_rels/workbook.xml.rels"), &rels)

	if len(wb.Sheets) > 0 {
		for _, rel := range rels.Rels {
			if rel.ID == wb.Sheets[0].RID && rel.Target != "" {
				t := rel.Target
				if !strings.HasPrefix(t, "xl/") {
					t = path.Join("xl", t)
				}
				return path.Clean(t)
			}
		}
	}
	return "xl/worksheets/sheet1.xml"
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				return nil
			}
			return b
		}
	}
	return nil
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var sst struct {
		Items []struct {
			T     string   `xml:"t"`
			Runs  []string `xml:"r>t"`
		} `xml:"si"`
	}
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil
	}
	out := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		if len(si.Runs) > 0 {
			out[i] = strings.Join(si.Runs, "")
		} else {
			out[i] = si.T
		}
	}
	return out
}

type sheetCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline string `xml:"is>t"`
}

type sheetRow struct {
	Cells []sheetCell `xml:"c"`
}

func parseSheetRows(data []byte, shared []string) ([][]string, error) {
	var sheet struct {
		Rows []sheetRow `xml:"sheetData>row"`
	}
	if err := xml.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("%w: parse worksheet: %v", ErrFormat, err)
	}
	var rows [][]string
	width := 0
	for _, sr := range sheet.Rows {
		row := make([]string, 0, len(sr.Cells))
		for _, c := range sr.Cells {
			idx := cellColumn(c.Ref)
			for len(row) < idx {
				row = append(row, "")
			}
			row = append(row, cellValue(c, shared))
		}
		if len(row) > width {
			width = len(row)
		}
		rows = append(rows, row)
	}
	// Pad ragged rows to the sheet width so every column has equal length.
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	return rows, nil
}

func cellValue(c sheetCell, shared []string) string {
	switch c.Type {
	case "s":
		var idx int
		if _, err := fmt.Sscanf(c.Value, "%d", &idx); err == nil && idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
		return ""
	case "inlineStr":
		return c.Inline
	case "b":
		if c.Value == "1" {
			return "true"
		}
		return "false"
	default:
		return c.Value
	}
}

// cellColumn converts the letter portion of an A1-style reference to a
// zero-based column index.
func cellColumn(ref string) int {
	col := 0
	for _, ch := range ref {
		if ch >= 'A' && ch <= 'Z' {
			col = col*26 + int(ch-'A') + 1
		} else if ch >= 'a' && ch <= 'z' {
			col = col*26 + int(ch-'a') + 1
		} else {
			break
		}
	}
	if col == 0 {
		return 0
	}
	return col - 1
}
