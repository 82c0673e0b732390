package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	stdhttp "net/http"

	"pos-hardware/internal/bridge"
	"pos-hardware/internal/observability/metrics"
)

// IngestHandler receives hardware events delivered by the local bridge
// agent and feeds them into the in-process emitter.
type IngestHandler struct {
	emitter *bridge.Emitter
	logger  *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(emitter *bridge.Emitter, logger *log.Logger) (*IngestHandler, error) {
	if emitter == nil {
		return nil, errors.New("bridge ingest: nil emitter")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{emitter: emitter, logger: logger}, nil
}

type ingestRequest struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// ServeHTTP ingests one bridge event.
func (h *IngestHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if r.Method != stdhttp.MethodPost {
		w.WriteHeader(stdhttp.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("bridge ingest: read body error: %v", err)
		stdhttp.Error(w, "read body error", stdhttp.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("bridge ingest: decode error: %v", err)
		metrics.IncBridgeEvent("unknown", metrics.ResultError)
		stdhttp.Error(w, "invalid json", stdhttp.StatusBadRequest)
		return
	}

	switch req.Event {
	case bridge.EventConnected:
		h.emitter.SetConnected(true)
	case bridge.EventDisconnected:
		h.emitter.SetConnected(false)
	case bridge.EventHopperLevel:
		var payload bridge.HopperLevelPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			metrics.IncBridgeEvent(req.Event, metrics.ResultError)
			stdhttp.Error(w, "invalid payload", stdhttp.StatusBadRequest)
			return
		}
		for _, hopper := range payload.Hoppers {
			metrics.SetHopperLevel(int64(math.Round(hopper.Denomination*100)), hopper.CurrentLevel)
		}
		h.emitter.Emit(bridge.EventHopperLevel, payload)
	case bridge.EventJam:
		var payload bridge.JamPayload
		if len(req.Payload) > 0 {
			if err := json.Unmarshal(req.Payload, &payload); err != nil {
				metrics.IncBridgeEvent(req.Event, metrics.ResultError)
				stdhttp.Error(w, "invalid payload", stdhttp.StatusBadRequest)
				return
			}
		}
		h.logger.Printf("bridge ingest: hopper jam: denom=%.2f msg=%s", payload.Denomination, payload.Message)
		metrics.IncJamEvent()
		h.emitter.Emit(bridge.EventJam, payload)
	default:
		metrics.IncBridgeEvent(req.Event, metrics.ResultError)
		stdhttp.Error(w, "unknown event", stdhttp.StatusBadRequest)
		return
	}

	metrics.IncBridgeEvent(req.Event, metrics.ResultSuccess)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"accepted": true})
}
