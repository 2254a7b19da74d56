package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/tradebook/journal/internal/events"
)

// wsWriteTimeout bounds a single frame write.
const wsWriteTimeout = 10 * time.Second

// WSStreamHandler streams bus events to clients over a websocket, for
// clients that can't use SSE.
type WSStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewWSStreamHandler creates a new websocket stream handler
func NewWSStreamHandler(bus *events.Bus, log zerolog.Logger) *WSStreamHandler {
	return &WSStreamHandler{
		bus: bus,
		log: log.With().Str("component", "ws_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws requests.
func (h *WSStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	id, eventChan := h.bus.Subscribe()
	defer h.bus.Unsubscribe(id)

	h.log.Info().Int("subscriber", id).Msg("Client connected to websocket stream")

	ctx := r.Context()

	// Drain reads so close frames and pings are processed. The stream is
	// one-way; any client message beyond control frames ends the session.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-readDone:
			h.log.Info().Int("subscriber", id).Msg("Client disconnected from websocket stream")
			return

		case event, ok := <-eventChan:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()

			if err != nil {
				h.log.Debug().Err(err).Int("subscriber", id).Msg("Websocket write failed")
				return
			}
		}
	}
}
