package profile_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datavista-backend/internal/dataset"
	"datavista-backend/internal/profile"
)

func loadCSV(t *testing.T, raw string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(raw), "test.csv", dataset.FormatCSV)
	require.NoError(t, err)
	return ds
}

func TestProfileExample(t *testing.T) {
	ds := loadCSV(t, "age,score\n25,1\n30,2\n35,3\n")
	rep := profile.Profile(ds)

	require.Len(t, rep.Columns, 2)
	require.NotNil(t, rep.Columns[0].Numeric)
	assert.Equal(t, 30.0, rep.Columns[0].Numeric.Mean)
	assert.Equal(t, 25.0, rep.Columns[0].Numeric.Min)
	assert.Equal(t, 35.0, rep.Columns[0].Numeric.Max)
	assert.InDelta(t, 5.0, rep.Columns[0].Numeric.Std, 1e-9)

	require.NotNil(t, rep.Correlation)
	assert.InDelta(t, 1.0, rep.Correlation.PairAt(0, 1), 1e-9)
}

func TestProfileCompleteness(t *testing.T) {
	ds := loadCSV(t, "a,b,c,d,e\n1,x,2023-01-01,hello there my friend,2\n2,y,2023-01-02,another free form remark,3\n")
	rep := profile.Profile(ds)

	require.Len(t, rep.Columns, len(ds.Columns))
	for i, cp := range rep.Columns {
		assert.Equal(t, ds.Columns[i].Name, cp.Name)
		assert.Equal(t, ds.Columns[i].Kind, cp.Kind)
	}
}

func TestProfileDeterminism(t *testing.T) {
	ds := loadCSV(t, "x,y,z\n1,4,a\n2,5,b\n3,,a\n4,7,b\n")
	first := profile.Profile(ds)
	second := profile.Profile(ds)
	assert.Equal(t, first, second)
}

func TestCorrelationSymmetryAndDiagonal(t *testing.T) {
	ds := loadCSV(t, "a,b,c\n1,9,2\n2,7,4\n3,8,8\n4,2,16\n5,1,32\n")
	rep := profile.Profile(ds)

	corr := rep.Correlation
	require.NotNil(t, corr)
	n := len(corr.Columns)
	require.Equal(t, 3, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, corr.Values[i][i])
		for j := 0; j < n; j++ {
			assert.Equal(t, corr.Values[i][j], corr.Values[j][i])
			assert.LessOrEqual(t, corr.Values[i][j], 1.0)
			assert.GreaterOrEqual(t, corr.Values[i][j], -1.0)
		}
	}
}

func TestCorrelationOmittedForSingleNumericColumn(t *testing.T) {
	ds := loadCSV(t, "n,label\n1,a\n2,b\n3,a\n")
	rep := profile.Profile(ds)
	assert.Nil(t, rep.Correlation)
}

func TestCorrelationSkipsMissingPairs(t *testing.T) {
	ds := loadCSV(t, "a,b\n1,2\n2,\n3,6\n4,8\n")
	rep := profile.Profile(ds)
	require.NotNil(t, rep.Correlation)
	assert.InDelta(t, 1.0, rep.Correlation.PairAt(0, 1), 1e-9)
}

func TestProfileCountsMissingAndDuplicates(t *testing.T) {
	ds := loadCSV(t, "a,b\n1,x\n1,x\n,y\n")
	rep := profile.Profile(ds)

	assert.Equal(t, 1, rep.MissingTotal)
	assert.Equal(t, 1, rep.DuplicateRows)
	assert.Equal(t, 1, rep.Columns[0].NullCount)
}

func TestStrongestPair(t *testing.T) {
	ds := loadCSV(t, "up,down,noise\n1,9,5\n2,8,1\n3,7,9\n4,6,2\n")
	rep := profile.Profile(ds)

	a, b, r, ok := rep.Correlation.StrongestPair()
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"up", "down"}, []string{a, b})
	assert.InDelta(t, -1.0, r, 1e-9)
}

func TestSummaryBoundedAndSectioned(t *testing.T) {
	ds := loadCSV(t, "age,score,city\n25,1,Lisbon\n30,2,Lisbon\n35,3,Porto\n")
	rep := profile.Profile(ds)

	summary := rep.Summary(0)
	assert.Contains(t, summary, "Dataset Overview:")
	assert.Contains(t, summary, "Numeric Insights:")
	assert.Contains(t, summary, "Categorical Insights:")
	assert.Contains(t, summary, "Data Health:")
	assert.Contains(t, summary, "r = 1.00")

	bounded := rep.Summary(120)
	assert.LessOrEqual(t, len(bounded), 120)
	assert.True(t, strings.HasSuffix(bounded, "\n"))
}
