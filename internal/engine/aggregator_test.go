package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotals(t *testing.T) {
	tab := newTestTable()
	v := tab.Filter([]string{"A", "B", "C"}, 1990, 1992)

	totals := Totals(v, []string{"X", "Y"})
	assert.Equal(t, []ColumnTotal{{"X", 172}, {"Y", 21}}, totals)

	// Unknown column sums to zero
	assert.Equal(t, []ColumnTotal{{"Nope", 0}}, Totals(v, []string{"Nope"}))
}

func TestTotalsAdditivity(t *testing.T) {
	tab := newTestTable()
	cols := []string{"X", "Y"}

	whole := Totals(tab.Filter([]string{"A", "B", "C"}, 1990, 1992), cols)
	partA := Totals(tab.Filter([]string{"A"}, 1990, 1992), cols)
	partBC := Totals(tab.Filter([]string{"B", "C"}, 1990, 1992), cols)

	for i := range cols {
		assert.InDelta(t, whole[i].Value, partA[i].Value+partBC[i].Value, 1e-9, cols[i])
	}
}

func TestMeans(t *testing.T) {
	tab := newTestTable()
	v := tab.Filter([]string{"A"}, 1990, 1992)
	means := Means(v, []string{"X"})
	assert.InDelta(t, 20.0, means[0].Value, 1e-9)

	// Zero rows means zero, not NaN
	empty := Means(tab.Filter(nil, 1990, 1992), []string{"X"})
	assert.Equal(t, 0.0, empty[0].Value)
}

func TestTopKTieBreak(t *testing.T) {
	tab := NewTable("ties", []string{"Q", "P", "R"})
	tab.AddRow("A", "", 1990, []float64{30, 30, 10})
	v := tab.Filter([]string{"A"}, 1990, 1990)

	// P and Q tie at 30; Q is listed first, so Q wins
	top := TopK(v, tab.Columns, 3)
	assert.Equal(t, []ColumnTotal{{"Q", 30}, {"P", 30}, {"R", 10}}, top)
}

func TestTopKBounds(t *testing.T) {
	tab := newTestTable()
	v := tab.Filter([]string{"A", "B", "C"}, 1990, 1992)

	// k <= 0 falls back to the default; fewer columns than k returns all
	assert.Len(t, TopK(v, tab.Columns, 0), 2)
	assert.Len(t, TopK(v, tab.Columns, 50), 2)
	assert.Len(t, TopK(v, tab.Columns, 1), 1)
}

func TestTopKConsistency(t *testing.T) {
	tab := NewTable("many", []string{"a", "b", "c", "d", "e"})
	tab.AddRow("A", "", 1990, []float64{3, 9, 1, 9, 4})
	v := tab.Filter([]string{"A"}, 1990, 1990)

	for k := 1; k < len(tab.Columns); k++ {
		smaller := TopK(v, tab.Columns, k)
		larger := TopK(v, tab.Columns, k+1)
		assert.Equal(t, smaller, larger[:k], "TopK(%d) must prefix TopK(%d)", k, k+1)
	}
}

func TestSeriesByYear(t *testing.T) {
	// Scenario: rows [(A,1990,10), (A,1991,20), (B,1990,5)] on column X
	tab := NewTable("scenario", []string{"X"})
	tab.AddRow("A", "", 1990, []float64{10})
	tab.AddRow("A", "", 1991, []float64{20})
	tab.AddRow("B", "", 1990, []float64{5})

	v := tab.Filter([]string{"A"}, 1990, 1991)
	require.Equal(t, 2, v.Len())
	assert.Equal(t, []ColumnTotal{{"X", 30}}, Totals(v, []string{"X"}))
	assert.Equal(t, []YearPoint{{1990, 10}, {1991, 20}}, SeriesByYear(v, "X"))
}

func TestSeriesByYearAscendingWithGaps(t *testing.T) {
	tab := NewTable("gaps", []string{"X"})
	tab.AddRow("A", "", 1992, []float64{3})
	tab.AddRow("A", "", 1990, []float64{1})

	v := tab.Filter([]string{"A"}, 1990, 1992)
	// 1991 has no rows and does not appear
	assert.Equal(t, []YearPoint{{1990, 1}, {1992, 3}}, SeriesByYear(v, "X"))
}

func TestSeriesByEntity(t *testing.T) {
	tab := newTestTable()
	v := tab.Filter([]string{"A", "B", "C"}, 1990, 1992)

	// First-appearance order: A, B, C
	assert.Equal(t, []EntityPoint{{"A", 60}, {"B", 12}, {"C", 100}}, SeriesByEntity(v, "X"))
}

func TestCorrelation(t *testing.T) {
	tab := NewTable("corr", []string{"up", "double", "down", "flat"})
	tab.AddRow("A", "", 1990, []float64{1, 2, 30, 5})
	tab.AddRow("A", "", 1991, []float64{2, 4, 20, 5})
	tab.AddRow("A", "", 1992, []float64{3, 6, 10, 5})
	v := tab.Filter([]string{"A"}, 1990, 1992)

	m := Correlation(v, tab.Columns)
	require.Equal(t, tab.Columns, m.Columns)

	assert.InDelta(t, 1.0, m.Cells[0][0], 1e-9)
	assert.InDelta(t, 1.0, m.Cells[0][1], 1e-9)  // perfectly correlated
	assert.InDelta(t, -1.0, m.Cells[0][2], 1e-9) // perfectly anti-correlated

	// Zero variance is undefined against everything, itself included
	for i := range m.Columns {
		assert.True(t, math.IsNaN(m.Cells[3][i]), "flat vs %s", m.Columns[i])
		assert.True(t, math.IsNaN(m.Cells[i][3]))
	}

	// Symmetry
	for i := range m.Cells {
		for j := range m.Cells {
			if !math.IsNaN(m.Cells[i][j]) {
				assert.Equal(t, m.Cells[i][j], m.Cells[j][i])
			}
		}
	}
}

func TestEmptyViewSafety(t *testing.T) {
	tab := newTestTable()
	v := tab.Filter(nil, 1990, 1992)
	require.Equal(t, 0, v.Len())

	assert.Equal(t, []ColumnTotal{{"X", 0}, {"Y", 0}}, Totals(v, tab.Columns))
	assert.Equal(t, []ColumnTotal{{"X", 0}, {"Y", 0}}, Means(v, tab.Columns))
	assert.Len(t, TopK(v, tab.Columns, 5), 2)
	assert.Empty(t, SeriesByYear(v, "X"))
	assert.Empty(t, SeriesByEntity(v, "X"))

	m := Correlation(v, tab.Columns)
	for i := range m.Cells {
		for j := range m.Cells[i] {
			assert.True(t, math.IsNaN(m.Cells[i][j]))
		}
	}
}

func TestPipelineIdempotence(t *testing.T) {
	tab := newTestTable()
	run := func() ([]ColumnTotal, []YearPoint, []YearChange) {
		v := tab.Filter([]string{"A", "B"}, 1990, 1992)
		totals := Totals(v, tab.Columns)
		series := SeriesByYear(v, "X")
		return totals, series, YearOverYear(series)
	}

	t1, s1, y1 := run()
	t2, s2, y2 := run()
	assert.Equal(t, t1, t2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, y1, y2)
}
