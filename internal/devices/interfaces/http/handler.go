package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	stdhttp "net/http"
	"strings"
	"time"

	devices "pos-hardware/internal/devices/domain"
)

// Heartbeater accepts device self-reports.
type Heartbeater interface {
	Heartbeat(ctx context.Context, deviceID string) error
}

// Handler serves the device registry API.
type Handler struct {
	repo      devices.DeviceRepository
	heartbeat Heartbeater
	logger    *log.Logger
}

// NewHandler constructs a device handler.
func NewHandler(repo devices.DeviceRepository, heartbeat Heartbeater, logger *log.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("device handler: nil repository")
	}
	if heartbeat == nil {
		return nil, errors.New("device handler: nil heartbeater")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{repo: repo, heartbeat: heartbeat, logger: logger}, nil
}

// ServeHTTP routes device API requests.
func (h *Handler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/devices" && r.Method == stdhttp.MethodGet:
		h.list(w, r)
	case strings.HasPrefix(path, "/api/v1/devices/") && strings.HasSuffix(path, "/heartbeat") && r.Method == stdhttp.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/devices/"), "/heartbeat")
		h.handleHeartbeat(w, r, id)
	default:
		stdhttp.NotFound(w, r)
	}
}

type deviceResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	IPAddress     string `json:"ip_address,omitempty"`
	Status        string `json:"status"`
	LastSeen      string `json:"last_seen,omitempty"`
	CheckInterval int    `json:"health_check_interval_seconds"`
}

func (h *Handler) list(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	registry, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Printf("device handler: list error: %v", err)
		stdhttp.Error(w, "list error", stdhttp.StatusInternalServerError)
		return
	}

	result := make([]deviceResponse, 0, len(registry))
	for _, device := range registry {
		item := deviceResponse{
			ID:            device.ID,
			Name:          device.Name,
			Role:          string(device.Role),
			IPAddress:     device.IPAddress,
			Status:        string(device.Status),
			CheckInterval: int(device.CheckInterval / time.Second),
		}
		if !device.LastSeen.IsZero() {
			item.LastSeen = device.LastSeen.UTC().Format(time.RFC3339)
		}
		result = append(result, item)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"devices": result})
}

func (h *Handler) handleHeartbeat(w stdhttp.ResponseWriter, r *stdhttp.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		stdhttp.Error(w, "invalid device id", stdhttp.StatusBadRequest)
		return
	}
	if err := h.heartbeat.Heartbeat(r.Context(), id); err != nil {
		h.logger.Printf("device handler: heartbeat error: %v", err)
		stdhttp.Error(w, "heartbeat error", stdhttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": string(devices.StatusOnline)})
}
