// Package handlers provides HTTP handlers for the trade journal.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradebook/journal/internal/events"
	"github.com/tradebook/journal/internal/modules/analytics"
	"github.com/tradebook/journal/internal/modules/journal"
)

// maxImportBatch caps a single import request.
const maxImportBatch = 10000

// Handler handles journal HTTP requests
type Handler struct {
	repo *journal.TradeRepository
	bus  *events.Bus
	log  zerolog.Logger
}

// NewHandler creates a new journal handler
func NewHandler(repo *journal.TradeRepository, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		bus:  bus,
		log:  log.With().Str("handler", "journal").Logger(),
	}
}

// HandleList handles GET /api/journal/trades
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	var trades []journal.Trade
	var err error

	if from != "" && to != "" {
		trades, err = h.repo.GetAllInRange(from, to)
	} else {
		trades, err = h.repo.GetAll()
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list trades: "+err.Error())
		return
	}

	if trades == nil {
		trades = []journal.Trade{}
	}

	h.writeJSON(w, http.StatusOK, trades)
}

// HandleGet handles GET /api/journal/trades/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	trade, err := h.repo.GetByID(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get trade: "+err.Error())
		return
	}
	if trade == nil {
		h.writeError(w, http.StatusNotFound, "Trade not found: "+id)
		return
	}

	h.writeJSON(w, http.StatusOK, trade)
}

// HandleCreate handles POST /api/journal/trades
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var trade journal.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := trade.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid trade: "+err.Error())
		return
	}

	id, err := h.repo.Create(trade)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to create trade: "+err.Error())
		return
	}

	h.publishChanged("create", 1)
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// HandleUpdate handles PUT /api/journal/trades/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var trade journal.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	trade.ID = id

	if err := trade.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid trade: "+err.Error())
		return
	}

	if err := h.repo.Update(trade); err != nil {
		if errors.Is(err, journal.ErrTradeNotFound) {
			h.writeError(w, http.StatusNotFound, "Trade not found: "+id)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to update trade: "+err.Error())
		return
	}

	h.publishChanged("update", 1)
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// HandleDelete handles DELETE /api/journal/trades/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(id); err != nil {
		if errors.Is(err, journal.ErrTradeNotFound) {
			h.writeError(w, http.StatusNotFound, "Trade not found: "+id)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to delete trade: "+err.Error())
		return
	}

	h.publishChanged("delete", 1)
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// ImportResponse reports the outcome of a bulk import.
type ImportResponse struct {
	Imported int `json:"imported"`
	Dropped  int `json:"dropped"`
}

// HandleImport handles POST /api/journal/trades/import
//
// Accepts a batch of raw records in loose formats (string dates, unix
// timestamps, numeric strings). Records with unusable dates or P&L values
// are dropped and counted, never failing the batch.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var raw []analytics.RawTrade
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(raw) == 0 {
		h.writeError(w, http.StatusBadRequest, "No records provided")
		return
	}

	if len(raw) > maxImportBatch {
		h.writeError(w, http.StatusBadRequest, "Too many records (max 10000)")
		return
	}

	trades, dropped := analytics.NormalizeAll(raw)

	imported, err := h.repo.BulkImport(trades)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to import trades: "+err.Error())
		return
	}

	h.log.Info().
		Int("imported", imported).
		Int("dropped", dropped).
		Msg("Trade import completed")

	if imported > 0 {
		h.publishChanged("import", imported)
	}

	h.writeJSON(w, http.StatusOK, ImportResponse{
		Imported: imported,
		Dropped:  dropped,
	})
}

func (h *Handler) publishChanged(action string, count int) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(events.EventJournalChanged, map[string]interface{}{
		"action": action,
		"count":  count,
	})
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
