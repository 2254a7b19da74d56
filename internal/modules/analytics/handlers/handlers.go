// Package handlers provides HTTP handlers for analytics reports.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradebook/journal/internal/modules/analytics"
)

// dateLayout is the wire format for from/to query parameters.
const dateLayout = "2006-01-02"

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleReport handles GET /api/analytics/report
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	startTime := time.Now()
	report, err := h.service.Report(dateRange)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to compute report: "+err.Error())
		return
	}

	h.log.Debug().
		Str("range", analytics.RangeKey(dateRange)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Report computed")

	h.writeJSON(w, http.StatusOK, report)
}

// HandleSummary handles GET /api/analytics/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Report(dateRange)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to compute summary: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report.Summary)
}

// HandleSeries handles GET /api/analytics/series
func (h *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Report(dateRange)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to compute series: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report.Series)
}

// HandleWeekdays handles GET /api/analytics/weekdays
func (h *Handler) HandleWeekdays(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Report(dateRange)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to compute weekday buckets: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report.Weekdays)
}

// HandleHours handles GET /api/analytics/hours
func (h *Handler) HandleHours(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Report(dateRange)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to compute hour buckets: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report.Hours)
}

// HandleEquityCurve handles GET /api/analytics/equity-curve
func (h *Handler) HandleEquityCurve(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := 0
	if raw := r.URL.Query().Get("window"); raw != "" {
		window, err = strconv.Atoi(raw)
		if err != nil || window < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid window parameter: "+raw)
			return
		}
	}

	curve, err := h.service.EquityCurve(dateRange, window)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to compute equity curve: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, curve)
}

// breakdownKeys maps the URL dimension to its key function.
var breakdownKeys = map[string]analytics.KeyFunc{
	"mood":        analytics.MoodKey,
	"strategy":    analytics.StrategyKey,
	"options":     analytics.OptionTypeKey,
	"risk-reward": analytics.RiskRewardKey,
	"holding":     analytics.HoldingBucketKey,
}

// HandleBreakdown handles GET /api/analytics/breakdown/{dimension}
func (h *Handler) HandleBreakdown(w http.ResponseWriter, r *http.Request) {
	dimension := chi.URLParam(r, "dimension")

	key, ok := breakdownKeys[dimension]
	if !ok {
		h.writeError(w, http.StatusNotFound, "Unknown breakdown dimension: "+dimension)
		return
	}

	dateRange, err := parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.service.Breakdown(dateRange, key)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to compute breakdown: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// parseRange reads optional from/to query parameters. A missing or empty
// "from" means no range (all trades); a missing "to" leaves the range open
// until now.
func parseRange(r *http.Request) (*analytics.DateRange, error) {
	from := r.URL.Query().Get("from")
	if from == "" {
		return nil, nil
	}

	fromTime, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, &rangeError{param: "from", value: from}
	}

	dateRange := &analytics.DateRange{From: fromTime}

	if to := r.URL.Query().Get("to"); to != "" {
		toTime, err := time.Parse(dateLayout, to)
		if err != nil {
			return nil, &rangeError{param: "to", value: to}
		}
		dateRange.To = toTime
	}

	return dateRange, nil
}

type rangeError struct {
	param string
	value string
}

func (e *rangeError) Error() string {
	return "Invalid " + e.param + " date (want YYYY-MM-DD): " + e.value
}

// writeJSON writes a JSON response with the given status
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
