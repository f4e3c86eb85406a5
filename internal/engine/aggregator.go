package engine

import (
	"math"
	"sort"
)

// DefaultTopK is the ranking size when the caller does not ask for one.
const DefaultTopK = 10

// ColumnTotal is one measure column with its aggregated value.
type ColumnTotal struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// YearPoint is one step of a per-year time series.
type YearPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// EntityPoint is one entry of a per-entity breakdown.
type EntityPoint struct {
	Entity string  `json:"entity"`
	Value  float64 `json:"value"`
}

// Matrix is a symmetric pairwise-correlation matrix. NaN cells mark
// undefined coefficients (zero-variance input); the API boundary converts
// them to null.
type Matrix struct {
	Columns []string
	Cells   [][]float64
}

// sumColumn sums one measure column across the view. Unknown columns sum
// to zero.
func sumColumn(v *View, column string) float64 {
	c, ok := v.table.ColumnIndex(column)
	if !ok {
		return 0
	}
	col := v.table.Values[c]
	var total float64
	for _, r := range v.rows {
		total += col[r]
	}
	return total
}

// Totals computes per-column sums. The result preserves the input column
// order; that order carries the tie-break rule for rankings. An empty view
// yields all-zero totals, never an error.
func Totals(v *View, columns []string) []ColumnTotal {
	out := make([]ColumnTotal, len(columns))
	for i, c := range columns {
		out[i] = ColumnTotal{Column: c, Value: sumColumn(v, c)}
	}
	return out
}

// Means computes per-column means over the view's rows. Zero rows means
// zero, not NaN.
func Means(v *View, columns []string) []ColumnTotal {
	out := Totals(v, columns)
	n := float64(v.Len())
	if n == 0 {
		return out
	}
	for i := range out {
		out[i].Value /= n
	}
	return out
}

// TopK ranks columns by total, descending. The sort is stable over the
// input column order, so on equal totals the first-listed column wins.
// k <= 0 falls back to DefaultTopK; fewer columns than k returns them all.
func TopK(v *View, columns []string, k int) []ColumnTotal {
	if k <= 0 {
		k = DefaultTopK
	}
	totals := Totals(v, columns)
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Value > totals[j].Value })
	if len(totals) > k {
		totals = totals[:k]
	}
	return totals
}

// SeriesByYear sums one column per year, ascending by year. Years with no
// rows in the view do not appear.
func SeriesByYear(v *View, column string) []YearPoint {
	c, ok := v.table.ColumnIndex(column)
	if !ok || v.Len() == 0 {
		return []YearPoint{}
	}

	// Array instead of map: the observed year range is small.
	t := v.table
	span := t.MaxYear - t.MinYear + 1
	sums := make([]float64, span)
	seen := make([]bool, span)
	col := t.Values[c]
	for _, r := range v.rows {
		i := int(t.Years[r]) - t.MinYear
		sums[i] += col[r]
		seen[i] = true
	}

	out := make([]YearPoint, 0, span)
	for i := 0; i < span; i++ {
		if seen[i] {
			out = append(out, YearPoint{Year: t.MinYear + i, Value: sums[i]})
		}
	}
	return out
}

// SeriesByEntity sums one column per entity, in first-appearance order.
func SeriesByEntity(v *View, column string) []EntityPoint {
	c, ok := v.table.ColumnIndex(column)
	if !ok {
		return []EntityPoint{}
	}

	t := v.table
	col := t.Values[c]
	pos := make(map[int32]int)
	out := make([]EntityPoint, 0)
	for _, r := range v.rows {
		id := t.EntityIDs[r]
		i, ok := pos[id]
		if !ok {
			i = len(out)
			pos[id] = i
			out = append(out, EntityPoint{Entity: t.EntityDict[id]})
		}
		out[i].Value += col[r]
	}
	return out
}

// Correlation computes the pairwise Pearson matrix over the view's rows.
// A zero-variance column (including the zero-row and one-row cases) gets NaN
// against every column rather than a division-by-zero blowup.
func Correlation(v *View, columns []string) Matrix {
	n := len(columns)
	m := Matrix{Columns: columns, Cells: make([][]float64, n)}

	// Materialize the filtered columns once; pairwise passes then walk
	// flat slices.
	rows := v.Len()
	vals := make([][]float64, n)
	means := make([]float64, n)
	for i, name := range columns {
		vals[i] = make([]float64, rows)
		if c, ok := v.table.ColumnIndex(name); ok {
			col := v.table.Values[c]
			for j, r := range v.rows {
				vals[i][j] = col[r]
			}
		}
		if rows > 0 {
			var sum float64
			for _, x := range vals[i] {
				sum += x
			}
			means[i] = sum / float64(rows)
		}
	}

	for i := range m.Cells {
		m.Cells[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := pearson(vals[i], vals[j], means[i], means[j])
			m.Cells[i][j] = r
			m.Cells[j][i] = r
		}
	}
	return m
}

func pearson(xs, ys []float64, mx, my float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var cov, vx, vy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}
