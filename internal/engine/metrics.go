package engine

// Derived metrics are pure functions over aggregator outputs. Degenerate
// inputs (empty totals, zero denominators) come back as explicit "no data"
// results, never as errors or infinities.

// GrandTotal sums all entries of a totals result.
func GrandTotal(totals []ColumnTotal) float64 {
	var sum float64
	for _, t := range totals {
		sum += t.Value
	}
	return sum
}

// TopContributor returns the entry with the maximum value. On equal values
// the first-listed column wins, matching TopK's tie-break. The second
// return is false when totals is empty.
func TopContributor(totals []ColumnTotal) (ColumnTotal, bool) {
	if len(totals) == 0 {
		return ColumnTotal{}, false
	}
	top := totals[0]
	for _, t := range totals[1:] {
		if t.Value > top.Value {
			top = t
		}
	}
	return top, true
}

// YearChange is one year's percentage change against the previous point in
// the series. Pct is nil for the first year and whenever the previous value
// is zero — an undefined change, not +Inf and not 0.
type YearChange struct {
	Year int      `json:"year"`
	Pct  *float64 `json:"pct"`
}

// YearOverYear computes percentage changes along a per-year series. The
// result aligns 1:1 with the input.
func YearOverYear(series []YearPoint) []YearChange {
	out := make([]YearChange, len(series))
	for i, p := range series {
		out[i].Year = p.Year
		if i == 0 {
			continue
		}
		prev := series[i-1].Value
		if prev == 0 {
			continue
		}
		pct := (p.Value - prev) / prev * 100
		out[i].Pct = &pct
	}
	return out
}

// Summary is the dashboard's headline metrics row for one filtered view.
type Summary struct {
	LatestYear     int          `json:"latest_year"`
	TotalDeaths    float64      `json:"total_deaths"`
	TopContributor *ColumnTotal `json:"top_contributor,omitempty"`
	Countries      int          `json:"countries"`
	YearsCovered   int          `json:"years_covered"`

	// Share of the focus columns in the latest year's total, in percent.
	// Nil when no focus columns were given or the total is zero.
	FocusPct *float64 `json:"focus_pct,omitempty"`
}

// Summarize computes the headline metrics: totals and top contributor are
// taken over the latest year present in the view, as the dashboard's metric
// cards do.
func Summarize(v *View, columns []string, focus []string) Summary {
	var s Summary
	if v.Len() == 0 {
		return s
	}

	years := make(map[int]bool)
	entities := make(map[string]bool)
	for i := 0; i < v.Len(); i++ {
		y := v.Year(i)
		years[y] = true
		entities[v.Entity(i)] = true
		if y > s.LatestYear {
			s.LatestYear = y
		}
	}
	s.Countries = len(entities)
	s.YearsCovered = len(years)

	latest := v.WhereYear(s.LatestYear)
	totals := Totals(latest, columns)
	s.TotalDeaths = GrandTotal(totals)
	if top, ok := TopContributor(totals); ok {
		s.TopContributor = &top
	}

	if len(focus) > 0 && s.TotalDeaths > 0 {
		pct := GrandTotal(Totals(latest, focus)) / s.TotalDeaths * 100
		s.FocusPct = &pct
	}
	return s
}
