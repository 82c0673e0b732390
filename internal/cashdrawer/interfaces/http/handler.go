package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	stdhttp "net/http"
	"time"

	"pos-hardware/internal/audit"
	"pos-hardware/internal/auth"
	"pos-hardware/internal/bridge"
	"pos-hardware/internal/cashdrawer/application"
	cashdrawer "pos-hardware/internal/cashdrawer/domain"
	"pos-hardware/internal/changemaker"
	"pos-hardware/internal/observability/metrics"
)

// KickSender delivers resolved kick commands to the print bridge agent.
type KickSender interface {
	SendKick(ctx context.Context, cmd cashdrawer.KickCommand) error
}

// Handler serves cash drawer settings, manual open and change planning.
type Handler struct {
	service    *application.Service
	calculator *changemaker.Calculator
	snapshots  *bridge.SnapshotStore
	sender     KickSender
	audit      audit.Logger
	logger     *log.Logger
}

// NewHandler constructs a cash drawer handler.
func NewHandler(service *application.Service, calculator *changemaker.Calculator, snapshots *bridge.SnapshotStore, sender KickSender, auditLogger audit.Logger, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("cash drawer handler: nil service")
	}
	if calculator == nil {
		return nil, errors.New("cash drawer handler: nil calculator")
	}
	if snapshots == nil {
		return nil, errors.New("cash drawer handler: nil snapshot store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		service:    service,
		calculator: calculator,
		snapshots:  snapshots,
		sender:     sender,
		audit:      auditLogger,
		logger:     logger,
	}, nil
}

// ServeHTTP routes cash drawer API requests.
func (h *Handler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	switch {
	case r.URL.Path == "/api/v1/cash-drawer/settings" && r.Method == stdhttp.MethodGet:
		h.getSettings(w, r)
	case r.URL.Path == "/api/v1/cash-drawer/settings" && r.Method == stdhttp.MethodPut:
		h.updateSettings(w, r)
	case r.URL.Path == "/api/v1/cash-drawer/open" && r.Method == stdhttp.MethodPost:
		h.manualOpen(w, r)
	case r.URL.Path == "/api/v1/change-plan" && r.Method == stdhttp.MethodPost:
		h.changePlan(w, r)
	default:
		stdhttp.NotFound(w, r)
	}
}

func (h *Handler) getSettings(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.logger.Printf("cash drawer handler: get settings error: %v", err)
		stdhttp.Error(w, "settings error", stdhttp.StatusInternalServerError)
		return
	}
	writeJSON(w, settings)
}

func (h *Handler) updateSettings(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var patch cashdrawer.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		stdhttp.Error(w, "invalid body", stdhttp.StatusBadRequest)
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		h.logger.Printf("cash drawer handler: update settings error: %v", err)
		stdhttp.Error(w, err.Error(), stdhttp.StatusBadRequest)
		return
	}

	h.writeAudit(r, "cash_drawer.settings.update", "cash_drawer_settings", "cash_drawer", patch)
	writeJSON(w, settings)
}

type manualOpenResponse struct {
	Opened  bool                   `json:"opened"`
	Command cashdrawer.KickCommand `json:"command"`
	Reason  string                 `json:"reason,omitempty"`
}

func (h *Handler) manualOpen(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.logger.Printf("cash drawer handler: manual open settings error: %v", err)
		stdhttp.Error(w, "settings error", stdhttp.StatusInternalServerError)
		return
	}

	if settings.RequireManagerPinForManualOpen && !auth.RoleAtLeast(auth.RoleFromContext(r.Context()), auth.RoleManager) {
		metrics.IncDrawerKick("manual", metrics.ResultError)
		stdhttp.Error(w, "manager approval required", stdhttp.StatusForbidden)
		return
	}

	cmd := application.ResolveKickCommand(settings)
	h.writeAudit(r, "cash_drawer.manual_open", "cash_drawer", "cash_drawer", cmd)

	if cmd.NoOp {
		metrics.IncDrawerKick("manual", metrics.ResultSuccess)
		writeJSON(w, manualOpenResponse{Opened: false, Command: cmd, Reason: "no drawer command configured"})
		return
	}
	if h.sender == nil {
		metrics.IncDrawerKick("manual", metrics.ResultError)
		stdhttp.Error(w, "print bridge unavailable", stdhttp.StatusServiceUnavailable)
		return
	}
	if err := h.sender.SendKick(r.Context(), cmd); err != nil {
		h.logger.Printf("cash drawer handler: kick error: %v", err)
		metrics.IncDrawerKick("manual", metrics.ResultError)
		stdhttp.Error(w, "kick failed", stdhttp.StatusBadGateway)
		return
	}

	metrics.IncDrawerKick("manual", metrics.ResultSuccess)
	writeJSON(w, manualOpenResponse{Opened: true, Command: cmd})
}

type changePlanRequest struct {
	Amount float64 `json:"amount"`
}

type changePlanResponse struct {
	changemaker.Plan
	SnapshotAt string `json:"snapshotAt,omitempty"`
}

func (h *Handler) changePlan(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req changePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		stdhttp.Error(w, "invalid body", stdhttp.StatusBadRequest)
		return
	}

	levels, at := h.snapshots.Snapshot()
	hoppers := make([]changemaker.Hopper, 0, len(levels))
	for _, level := range levels {
		hoppers = append(hoppers, changemaker.Hopper{
			Denomination: level.Denomination,
			Available:    level.CurrentLevel,
			LowThreshold: level.LowThreshold,
		})
	}

	plan := h.calculator.CalculateOptimalChange(req.Amount, hoppers)
	metrics.ObserveChangePlan(plan.Feasible, plan.TotalCoins)

	resp := changePlanResponse{Plan: plan}
	if !at.IsZero() {
		resp.SnapshotAt = at.UTC().Format(time.RFC3339)
	}
	writeJSON(w, resp)
}

func (h *Handler) writeAudit(r *stdhttp.Request, action, resourceType, resourceID string, payload any) {
	if h.audit == nil {
		return
	}
	metadata, _ := json.Marshal(payload)
	entry := audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Printf("cash drawer handler: audit error: %v", err)
	}
}

func writeJSON(w stdhttp.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
