package dataset

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	csvData := "age,city,signup,notes\n" +
		"25,Lisbon,2023-01-02,first tester account\n" +
		"30,Lisbon,2023-02-10,asked about enterprise pricing plans\n" +
		"35,Porto,2023-03-15,churned after the second billing cycle ended\n" +
		",Porto,2023-04-01,reactivated following the spring campaign emails\n"

	ds, err := Load(strings.NewReader(csvData), "users.csv", FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Rows)
	require.Len(t, ds.Columns, 4)

	assert.Equal(t, KindNumeric, ds.Columns[0].Kind)
	assert.Equal(t, KindCategorical, ds.Columns[1].Kind)
	assert.Equal(t, KindDatetime, ds.Columns[2].Kind)
	assert.Equal(t, KindText, ds.Columns[3].Kind)

	assert.Equal(t, 1, ds.Columns[0].NullCount())
	assert.Equal(t, []float64{25, 30, 35}, ds.Columns[0].Numbers())
}

func TestLoadTSV(t *testing.T) {
	ds, err := Load(strings.NewReader("a\tb\n1\t2\n3\t4\n"), "data.tsv", FormatCSV)
	require.NoError(t, err)
	require.Len(t, ds.Columns, 2)
	assert.Equal(t, KindNumeric, ds.Columns[0].Kind)
	assert.Equal(t, KindNumeric, ds.Columns[1].Kind)
}

func TestLoadEmptyDataset(t *testing.T) {
	_, err := Load(strings.NewReader("a,b,c\n"), "empty.csv", FormatCSV)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Load(strings.NewReader(""), "blank.csv", FormatCSV)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestLoadRaggedRowsArePadded(t *testing.T) {
	ds, err := Load(strings.NewReader("a,b,c\n1,2\n4,5,6\n"), "ragged.csv", FormatCSV)
	require.NoError(t, err)
	require.Len(t, ds.Columns, 3)
	assert.Equal(t, 1, ds.Columns[2].NullCount())
	for _, col := range ds.Columns {
		assert.Len(t, col.Values, 2)
	}
}

func TestDetectFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"data.csv":  FormatCSV,
		"data.TSV":  FormatCSV,
		"book.xlsx": FormatXLSX,
	} {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := DetectFormat("report.pdf")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoadXLSX(t *testing.T) {
	ds, err := Load(bytes.NewReader(buildXLSX(t)), "book.xlsx", FormatXLSX)
	require.NoError(t, err)

	require.Len(t, ds.Columns, 2)
	assert.Equal(t, "age", ds.Columns[0].Name)
	assert.Equal(t, "score", ds.Columns[1].Name)
	assert.Equal(t, 3, ds.Rows)
	assert.Equal(t, KindNumeric, ds.Columns[0].Kind)
	assert.Equal(t, []float64{25, 30, 35}, ds.Columns[0].Numbers())
}

func TestLoadXLSXGarbage(t *testing.T) {
	_, err := Load(strings.NewReader("definitely not a zip archive"), "bad.xlsx", FormatXLSX)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestDuplicateRows(t *testing.T) {
	ds, err := Load(strings.NewReader("a,b\n1,x\n1,x\n2,y\n1,x\n"), "dup.csv", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.DuplicateRows())
}

// buildXLSX writes a minimal workbook with one sheet: header (age, score) and
// three numeric rows.
func buildXLSX(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0"?>` +
			`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" ` +
			`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
			`<sheets><sheet name="Data" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>` +
			`</Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0"?>` +
			`<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">` +
			`<si><t>age</t></si><si><t>score</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?>` +
			`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>` +
			`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
			`<row r="2"><c r="A2"><v>25</v></c><c r="B2"><v>1</v></c></row>` +
			`<row r="3"><c r="A3"><v>30</v></c><c r="B3"><v>2</v></c></row>` +
			`<row r="4"><c r="A4"><v>35</v></c><c r="B4"><v>3</v></c></row>` +
			`</sheetData></worksheet>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
