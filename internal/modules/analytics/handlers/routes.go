package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/analytics", func(r chi.Router) {
		r.Get("/report", h.HandleReport)
		r.Get("/summary", h.HandleSummary)
		r.Get("/series", h.HandleSeries)
		r.Get("/weekdays", h.HandleWeekdays)
		r.Get("/hours", h.HandleHours)
		r.Get("/equity-curve", h.HandleEquityCurve)
		r.Get("/breakdown/{dimension}", h.HandleBreakdown)
	})
}
