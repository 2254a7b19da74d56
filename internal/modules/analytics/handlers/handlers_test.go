package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebook/journal/internal/modules/analytics"
	"github.com/tradebook/journal/internal/modules/journal"
)

// staticSource serves a fixed trade set.
type staticSource struct {
	trades []journal.Trade
}

func (s *staticSource) GetAll() ([]journal.Trade, error) { return s.trades, nil }
func (s *staticSource) CountAll() (int, error)           { return len(s.trades), nil }
func (s *staticSource) LastChangedAt() (*time.Time, error) {
	if len(s.trades) == 0 {
		return nil, nil
	}
	t := s.trades[0].Date
	return &t, nil
}

func setupRouter(trades []journal.Trade) *chi.Mux {
	log := zerolog.Nop()
	service := analytics.NewService(&staticSource{trades: trades}, nil, time.Minute, log)
	handler := NewHandler(service, log)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func doGet(t *testing.T, router *chi.Mux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func aprilTrades() []journal.Trade {
	return []journal.Trade{
		{Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), PnL: 5000, Symbol: "NIFTYCE", Mood: "calm"},
		{Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), PnL: -2000, Symbol: "NIFTYPE", Mood: "anxious"},
		{Date: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), PnL: 3000, Symbol: "NIFTYCE", Mood: "calm"},
	}
}

func TestHandleReport(t *testing.T) {
	router := setupRouter(aprilTrades())

	rec := doGet(t, router, "/api/analytics/report?from=2024-04-01&to=2024-04-14")
	require.Equal(t, http.StatusOK, rec.Code)

	var report analytics.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.Equal(t, 6000.0, report.Summary.TotalPnL)
	assert.Equal(t, 67, report.Summary.WinRate)
	assert.Equal(t, 3, report.Summary.TradeCount)
	require.Len(t, report.Series, 2)
	assert.Equal(t, 3000.0, report.Series[0].PnL)
	assert.Equal(t, 3000.0, report.Series[1].PnL)
	assert.Len(t, report.Weekdays, 7)
}

func TestHandleReport_NoRange(t *testing.T) {
	router := setupRouter(aprilTrades())

	rec := doGet(t, router, "/api/analytics/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var report analytics.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Series, 12, "no range returns the month-of-year axis")
}

func TestHandleReport_EmptyJournalStillWellFormed(t *testing.T) {
	router := setupRouter(nil)

	rec := doGet(t, router, "/api/analytics/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var report analytics.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Zero(t, report.Summary.TotalPnL)
	assert.Len(t, report.Weekdays, 7)
}

func TestHandleReport_BadDate(t *testing.T) {
	router := setupRouter(nil)

	rec := doGet(t, router, "/api/analytics/report?from=April-1st")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGet(t, router, "/api/analytics/report?from=2024-04-01&to=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSummary(t *testing.T) {
	router := setupRouter(aprilTrades())

	rec := doGet(t, router, "/api/analytics/summary?from=2024-04-01&to=2024-04-14")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary analytics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 6000.0, summary.TotalPnL)
}

func TestHandleBreakdown(t *testing.T) {
	router := setupRouter(aprilTrades())

	rec := doGet(t, router, "/api/analytics/breakdown/mood")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []analytics.CategoryStat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "calm", stats[0].Key)

	rec = doGet(t, router, "/api/analytics/breakdown/options")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "Call", stats[0].Key)
}

func TestHandleBreakdown_UnknownDimension(t *testing.T) {
	router := setupRouter(nil)

	rec := doGet(t, router, "/api/analytics/breakdown/astrology")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEquityCurve(t *testing.T) {
	router := setupRouter(aprilTrades())

	rec := doGet(t, router, "/api/analytics/equity-curve")
	require.Equal(t, http.StatusOK, rec.Code)

	var curve []analytics.EquityPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &curve))
	require.Len(t, curve, 3)
	assert.Equal(t, 6000.0, curve[2].Equity)
}

func TestHandleEquityCurve_BadWindow(t *testing.T) {
	router := setupRouter(nil)

	rec := doGet(t, router, "/api/analytics/equity-curve?window=-3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGet(t, router, "/api/analytics/equity-curve?window=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
