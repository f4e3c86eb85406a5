package engine

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Table holds one mortality dataset in Struct-of-Arrays format.
// Rows are country-year observations; measure columns are column-major
// so per-column aggregation walks a flat slice.
type Table struct {
	Name string

	// Row-aligned columns
	EntityIDs []int32
	Years     []int32

	// Measure columns, column-major: Values[c][row]
	Columns []string
	Values  [][]float64

	// Dictionary (ID -> String); Codes aligned with EntityDict
	EntityDict []string
	Codes      []string

	// Observed year range
	MinYear int
	MaxYear int

	entityIndex map[string]int32
	columnIndex map[string]int
}

// NewTable builds an empty table with the given measure columns.
func NewTable(name string, columns []string) *Table {
	t := &Table{
		Name:        name,
		Columns:     columns,
		Values:      make([][]float64, len(columns)),
		entityIndex: make(map[string]int32),
		columnIndex: make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		t.columnIndex[c] = i
	}
	return t
}

// AddRow appends one country-year observation. Missing trailing values are
// zero-filled, extras dropped.
func (t *Table) AddRow(entity, code string, year int, values []float64) {
	id, ok := t.entityIndex[entity]
	if !ok {
		id = int32(len(t.EntityDict))
		t.EntityDict = append(t.EntityDict, entity)
		t.Codes = append(t.Codes, code)
		t.entityIndex[entity] = id
	}
	t.EntityIDs = append(t.EntityIDs, id)
	t.Years = append(t.Years, int32(year))
	for c := range t.Columns {
		var v float64
		if c < len(values) {
			v = values[c]
		}
		t.Values[c] = append(t.Values[c], v)
	}
	if t.MinYear == 0 || year < t.MinYear {
		t.MinYear = year
	}
	if year > t.MaxYear {
		t.MaxYear = year
	}
}

// NumRows returns the number of observations in the table.
func (t *Table) NumRows() int { return len(t.Years) }

// Entity returns the entity name for a row.
func (t *Table) Entity(row int) string { return t.EntityDict[t.EntityIDs[row]] }

// ColumnIndex resolves a measure column name to its position.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.columnIndex[name]
	return i, ok
}

// View is a non-owning row subset of a Table. It holds indices into the
// parent, in original row order — no data is copied.
type View struct {
	table *Table
	rows  []int
}

// Len returns the number of rows in the view.
func (v *View) Len() int { return len(v.rows) }

// Table returns the parent table.
func (v *View) Table() *Table { return v.table }

// Year returns the year of the i-th view row.
func (v *View) Year(i int) int { return int(v.table.Years[v.rows[i]]) }

// Entity returns the entity of the i-th view row.
func (v *View) Entity(i int) string { return v.table.Entity(v.rows[i]) }

// Value returns the i-th view row's value in measure column c.
func (v *View) Value(i, c int) float64 { return v.table.Values[c][v.rows[i]] }

// WhereYear narrows the view to rows of a single year.
func (v *View) WhereYear(year int) *View {
	rows := make([]int, 0, len(v.rows))
	for _, r := range v.rows {
		if int(v.table.Years[r]) == year {
			rows = append(rows, r)
		}
	}
	return &View{table: v.table, rows: rows}
}

// Store holds both datasets for the process lifetime. It is built once at
// startup and handed to request handlers; nothing mutates it afterwards.
type Store struct {
	Risk   *Table
	Causes *Table

	// Countries present in both datasets, sorted
	Countries []string

	// Year range shared by both datasets
	MinYear int
	MaxYear int
}

// NewStore derives the shared country list and year range from the two
// loaded tables.
func NewStore(risk, causes *Table) *Store {
	s := &Store{Risk: risk, Causes: causes}

	inCauses := make(map[string]bool, len(causes.EntityDict))
	for _, e := range causes.EntityDict {
		inCauses[e] = true
	}
	for _, e := range risk.EntityDict {
		if inCauses[e] {
			s.Countries = append(s.Countries, e)
		}
	}
	sort.Strings(s.Countries)

	s.MinYear = risk.MinYear
	if causes.MinYear > s.MinYear {
		s.MinYear = causes.MinYear
	}
	s.MaxYear = risk.MaxYear
	if causes.MaxYear < s.MaxYear {
		s.MaxYear = causes.MaxYear
	}
	return s
}

// Dataset resolves a dataset name from the API path.
func (s *Store) Dataset(name string) (*Table, bool) {
	switch name {
	case "risk":
		return s.Risk, true
	case "causes":
		return s.Causes, true
	}
	return nil, false
}

// LoadStore loads both datasets concurrently. Either failure aborts the
// whole load — the pipeline never runs on partial data.
func LoadStore(ctx context.Context, riskPath, causesPath string) (*Store, error) {
	var risk, causes *Table
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := Load(riskPath, "risk", "Entity")
		if err != nil {
			return err
		}
		risk = t
		return nil
	})
	g.Go(func() error {
		t, err := Load(causesPath, "causes", "Country/Territory")
		if err != nil {
			return err
		}
		causes = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewStore(risk, causes), nil
}
