package charts_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datavista-backend/internal/charts"
	"datavista-backend/internal/dataset"
	"datavista-backend/internal/profile"
)

func loadCSV(t *testing.T, raw string) (*dataset.Dataset, *profile.Report) {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(raw), "test.csv", dataset.FormatCSV)
	require.NoError(t, err)
	return ds, profile.Profile(ds)
}

func TestRenderProducesHeatmapAndHistograms(t *testing.T) {
	ds, rep := loadCSV(t, "age,score\n25,1\n30,2\n35,3\n40,5\n")
	arts, err := charts.Render(rep, ds)
	require.NoError(t, err)

	// One heatmap plus one histogram per numeric column.
	require.Len(t, arts, 3)
	assert.Contains(t, arts[0].Caption, "Correlation heatmap")
	assert.Contains(t, arts[1].Caption, "age")
	assert.Contains(t, arts[2].Caption, "score")

	for _, a := range arts {
		img, err := png.Decode(bytes.NewReader(a.PNG))
		require.NoError(t, err, a.Caption)
		assert.Positive(t, img.Bounds().Dx())
	}
}

func TestRenderNoNumericColumns(t *testing.T) {
	ds, rep := loadCSV(t, "city,notes\nLisbon,first visit of the year\nPorto,second visit of the year\n")
	arts, err := charts.Render(rep, ds)
	require.NoError(t, err)
	assert.Empty(t, arts)
}

func TestRenderSingleNumericColumnSkipsHeatmap(t *testing.T) {
	ds, rep := loadCSV(t, "n,city\n1,Lisbon\n2,Porto\n3,Porto\n")
	arts, err := charts.Render(rep, ds)
	require.NoError(t, err)

	require.Len(t, arts, 1)
	assert.Contains(t, arts[0].Caption, "Distribution of n")
}

func TestHistogramConstantColumn(t *testing.T) {
	art, err := charts.Histogram("flat", []float64{5, 5, 5, 5})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(art.PNG))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Contains(t, art.Caption, "1 bins")
}

func TestHeatmapDimensions(t *testing.T) {
	_, rep := loadCSV(t, "a,b,c\n1,2,9\n2,4,8\n3,6,7\n")
	require.NotNil(t, rep.Correlation)

	art, err := charts.Heatmap(rep.Correlation)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(art.PNG))
	require.NoError(t, err)
	// Three cells of 56px plus margins.
	assert.Equal(t, 96+3*56, img.Bounds().Dx())
}
