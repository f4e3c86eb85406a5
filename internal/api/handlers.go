package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"mortality/internal/engine"
	"mortality/internal/models"
)

// Handler serves the dashboard API. The store is nil until the background
// load finishes; every endpoint answers 503 in that window.
type Handler struct {
	mu    sync.RWMutex
	store *engine.Store
	topK  int
}

func NewHandler(store *engine.Store, topK int) *Handler {
	if topK <= 0 {
		topK = engine.DefaultTopK
	}
	return &Handler{store: store, topK: topK}
}

// SetStore publishes the loaded datasets to the live API.
func (h *Handler) SetStore(s *engine.Store) {
	h.mu.Lock()
	h.store = s
	h.mu.Unlock()
}

func (h *Handler) getStore() *engine.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/meta", h.GetMeta)
	api.GET("/compare/summary", h.GetCompareSummary)

	ds := api.Group("/:dataset")
	ds.GET("/summary", h.GetSummary)
	ds.GET("/totals", h.GetTotals)
	ds.GET("/top", h.GetTop)
	ds.GET("/series", h.GetSeries)
	ds.GET("/yoy", h.GetYearOverYear)
	ds.GET("/correlation", h.GetCorrelation)
}

// --- PARAMETER HELPERS ---

var errLoading = echo.NewHTTPError(http.StatusServiceUnavailable, "datasets are still loading")

func (h *Handler) dataset(c echo.Context) (*engine.Store, *engine.Table, error) {
	s := h.getStore()
	if s == nil {
		return nil, nil, errLoading
	}
	name := c.Param("dataset")
	t, ok := s.Dataset(name)
	if !ok {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "unknown dataset: "+name)
	}
	return s, t, nil
}

// countriesParam distinguishes an absent parameter (all shared countries,
// the dashboard's select-all default) from an empty one (none selected).
func countriesParam(c echo.Context, s *engine.Store) []string {
	raw, ok := c.QueryParams()["countries"]
	if !ok {
		return s.Countries
	}
	var out []string
	for _, chunk := range raw {
		for _, name := range strings.Split(chunk, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}

func columnsParam(c echo.Context, t *engine.Table) []string {
	raw := c.QueryParam("columns")
	if raw == "" {
		return t.Columns
	}
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// filterView runs the filter stage for one request.
func filterView(c echo.Context, s *engine.Store, t *engine.Table, name string) (*engine.View, models.Filter, error) {
	countries := countriesParam(c, s)
	from, err := intParam(c, "from", s.MinYear)
	if err != nil {
		return nil, models.Filter{}, err
	}
	to, err := intParam(c, "to", s.MaxYear)
	if err != nil {
		return nil, models.Filter{}, err
	}

	view := t.Filter(countries, from, to)
	return view, models.Filter{
		Dataset:   name,
		Countries: countries,
		From:      from,
		To:        to,
		Rows:      view.Len(),
	}, nil
}

// --- HANDLERS ---

func (h *Handler) GetMeta(c echo.Context) error {
	s := h.getStore()
	if s == nil {
		return errLoading
	}
	return c.JSON(http.StatusOK, models.Meta{
		Countries: s.Countries,
		MinYear:   s.MinYear,
		MaxYear:   s.MaxYear,
		Datasets: []models.DatasetMeta{
			{Name: "risk", Columns: s.Risk.Columns, Rows: s.Risk.NumRows()},
			{Name: "causes", Columns: s.Causes.Columns, Rows: s.Causes.NumRows()},
		},
	})
}

func (h *Handler) GetSummary(c echo.Context) error {
	s, t, err := h.dataset(c)
	if err != nil {
		return err
	}
	view, filt, err := filterView(c, s, t, c.Param("dataset"))
	if err != nil {
		return err
	}

	focus := c.QueryParam("focus")
	if focus == "" && t == s.Causes {
		focus = "Cardio,Heart"
	}
	var focusCols []string
	if focus != "" {
		focusCols = matchColumns(t.Columns, strings.Split(focus, ","))
	}

	return c.JSON(http.StatusOK, models.SummaryResponse{
		Filter:  filt,
		Summary: engine.Summarize(view, t.Columns, focusCols),
	})
}

func (h *Handler) GetTotals(c echo.Context) error {
	s, t, err := h.dataset(c)
	if err != nil {
		return err
	}
	view, filt, err := filterView(c, s, t, c.Param("dataset"))
	if err != nil {
		return err
	}
	columns := columnsParam(c, t)

	agg := c.QueryParam("agg")
	var totals []engine.ColumnTotal
	switch agg {
	case "", "sum":
		agg = "sum"
		totals = engine.Totals(view, columns)
	case "mean":
		totals = engine.Means(view, columns)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "agg must be sum or mean")
	}

	return c.JSON(http.StatusOK, models.TotalsResponse{Filter: filt, Agg: agg, Totals: totals})
}

func (h *Handler) GetTop(c echo.Context) error {
	s, t, err := h.dataset(c)
	if err != nil {
		return err
	}
	view, filt, err := filterView(c, s, t, c.Param("dataset"))
	if err != nil {
		return err
	}
	k, err := intParam(c, "k", h.topK)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.TopResponse{
		Filter: filt,
		K:      k,
		Top:    engine.TopK(view, columnsParam(c, t), k),
	})
}

func (h *Handler) GetSeries(c echo.Context) error {
	s, t, err := h.dataset(c)
	if err != nil {
		return err
	}
	view, filt, err := filterView(c, s, t, c.Param("dataset"))
	if err != nil {
		return err
	}
	column := c.QueryParam("column")
	if column == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "column is required")
	}

	resp := models.SeriesResponse{Filter: filt, Column: column}
	switch by := c.QueryParam("by"); by {
	case "", "year":
		resp.By = "year"
		resp.Years = engine.SeriesByYear(view, column)
	case "entity":
		resp.By = "entity"
		resp.Entities = engine.SeriesByEntity(view, column)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "by must be year or entity")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetYearOverYear(c echo.Context) error {
	s, t, err := h.dataset(c)
	if err != nil {
		return err
	}
	view, filt, err := filterView(c, s, t, c.Param("dataset"))
	if err != nil {
		return err
	}
	column := c.QueryParam("column")
	if column == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "column is required")
	}

	return c.JSON(http.StatusOK, models.YoYResponse{
		Filter:  filt,
		Column:  column,
		Changes: engine.YearOverYear(engine.SeriesByYear(view, column)),
	})
}

func (h *Handler) GetCorrelation(c echo.Context) error {
	s, t, err := h.dataset(c)
	if err != nil {
		return err
	}
	view, filt, err := filterView(c, s, t, c.Param("dataset"))
	if err != nil {
		return err
	}

	// Default to the first 10 columns, as the dashboard's matrix does.
	columns := columnsParam(c, t)
	if c.QueryParam("columns") == "" && len(columns) > 10 {
		columns = columns[:10]
	}

	m := engine.Correlation(view, columns)
	return c.JSON(http.StatusOK, models.CorrelationResponse{
		Filter:  filt,
		Columns: m.Columns,
		Cells:   models.CorrelationCells(m),
	})
}

// GetCompareSummary serves the "compare both" view: each dataset's totals
// over its first five measure columns, side by side.
func (h *Handler) GetCompareSummary(c echo.Context) error {
	s := h.getStore()
	if s == nil {
		return errLoading
	}

	countries := countriesParam(c, s)
	from, err := intParam(c, "from", s.MinYear)
	if err != nil {
		return err
	}
	to, err := intParam(c, "to", s.MaxYear)
	if err != nil {
		return err
	}

	side := func(t *engine.Table, name string) models.CompareSide {
		cols := t.Columns
		if len(cols) > 5 {
			cols = cols[:5]
		}
		return models.CompareSide{
			Dataset: name,
			Totals:  engine.Totals(t.Filter(countries, from, to), cols),
		}
	}

	return c.JSON(http.StatusOK, models.CompareResponse{
		Countries: countries,
		From:      from,
		To:        to,
		Risk:      side(s.Risk, "risk"),
		Causes:    side(s.Causes, "causes"),
	})
}

// matchColumns returns the columns containing any of the given substrings.
func matchColumns(columns, substrings []string) []string {
	var out []string
	for _, col := range columns {
		for _, sub := range substrings {
			if sub = strings.TrimSpace(sub); sub != "" && strings.Contains(col, sub) {
				out = append(out, col)
				break
			}
		}
	}
	return out
}
