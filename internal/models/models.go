package models

import (
	"math"

	"mortality/internal/engine"
)

// Filter echoes the filter actually applied to a request, after defaulting
// and clamping.
type Filter struct {
	Dataset   string   `json:"dataset"`
	Countries []string `json:"countries"`
	From      int      `json:"from"`
	To        int      `json:"to"`
	Rows      int      `json:"rows"`
}

// DatasetMeta describes one loaded dataset.
type DatasetMeta struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// Meta describes the whole store: what the UI can filter on.
type Meta struct {
	Countries []string      `json:"countries"`
	MinYear   int           `json:"min_year"`
	MaxYear   int           `json:"max_year"`
	Datasets  []DatasetMeta `json:"datasets"`
}

type SummaryResponse struct {
	Filter  Filter         `json:"filter"`
	Summary engine.Summary `json:"summary"`
}

type TotalsResponse struct {
	Filter Filter               `json:"filter"`
	Agg    string               `json:"agg"`
	Totals []engine.ColumnTotal `json:"totals"`
}

type TopResponse struct {
	Filter Filter               `json:"filter"`
	K      int                  `json:"k"`
	Top    []engine.ColumnTotal `json:"top"`
}

type SeriesResponse struct {
	Filter   Filter               `json:"filter"`
	Column   string               `json:"column"`
	By       string               `json:"by"`
	Years    []engine.YearPoint   `json:"years,omitempty"`
	Entities []engine.EntityPoint `json:"entities,omitempty"`
}

type YoYResponse struct {
	Filter  Filter              `json:"filter"`
	Column  string              `json:"column"`
	Changes []engine.YearChange `json:"changes"`
}

type CorrelationResponse struct {
	Filter  Filter       `json:"filter"`
	Columns []string     `json:"columns"`
	Cells   [][]*float64 `json:"cells"`
}

// CompareSide is one dataset's half of the compare view.
type CompareSide struct {
	Dataset string               `json:"dataset"`
	Totals  []engine.ColumnTotal `json:"totals"`
}

type CompareResponse struct {
	Countries []string    `json:"countries"`
	From      int         `json:"from"`
	To        int         `json:"to"`
	Risk      CompareSide `json:"risk"`
	Causes    CompareSide `json:"causes"`
}

// CorrelationCells converts a matrix to JSON-safe cells: NaN (undefined
// coefficient) becomes null.
func CorrelationCells(m engine.Matrix) [][]*float64 {
	cells := make([][]*float64, len(m.Cells))
	for i, row := range m.Cells {
		cells[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				cells[i][j] = &v
			}
		}
	}
	return cells
}
