package engine

// Filter returns the view of rows whose entity is in entities and whose year
// lies in [yearLo, yearHi]. Bounds are clamped to the table's observed range
// first; out-of-range bounds clip silently. An empty entity set yields an
// empty view. Row order is the table's row order — a single pass, no
// reordering, no copies.
func (t *Table) Filter(entities []string, yearLo, yearHi int) *View {
	if yearLo < t.MinYear {
		yearLo = t.MinYear
	}
	if yearHi > t.MaxYear {
		yearHi = t.MaxYear
	}

	want := make(map[int32]bool, len(entities))
	for _, e := range entities {
		if id, ok := t.entityIndex[e]; ok {
			want[id] = true
		}
	}

	v := &View{table: t, rows: []int{}}
	if len(want) == 0 || yearLo > yearHi {
		return v
	}
	for i, y := range t.Years {
		if int(y) >= yearLo && int(y) <= yearHi && want[t.EntityIDs[i]] {
			v.rows = append(v.rows, i)
		}
	}
	return v
}
