package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pos-hardware/internal/auth"
	"pos-hardware/internal/bridge"
	"pos-hardware/internal/cashdrawer/application"
	cashdrawer "pos-hardware/internal/cashdrawer/domain"
	"pos-hardware/internal/changemaker"
)

type memorySettingsRepo struct {
	stored *cashdrawer.Settings
}

func (r *memorySettingsRepo) Load(ctx context.Context) (*cashdrawer.Settings, error) {
	return r.stored, nil
}

func (r *memorySettingsRepo) Save(ctx context.Context, settings cashdrawer.Settings) error {
	copied := settings
	r.stored = &copied
	return nil
}

type stubKickSender struct {
	sent []cashdrawer.KickCommand
	err  error
}

func (s *stubKickSender) SendKick(ctx context.Context, cmd cashdrawer.KickCommand) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, cmd)
	return nil
}

func newTestHandler(t *testing.T, repo *memorySettingsRepo, sender KickSender) (*Handler, *bridge.SnapshotStore) {
	t.Helper()
	service, err := application.NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	snapshots := bridge.NewSnapshotStore()
	handler, err := NewHandler(service, changemaker.NewCalculator(), snapshots, sender, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, snapshots
}

func requestAs(method, path, body string, role auth.Role) *stdhttp.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	return req.WithContext(auth.WithIdentity(req.Context(), role, "user-1"))
}

func TestGetSettingsEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, &memorySettingsRepo{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodGet, "/api/v1/cash-drawer/settings", "", auth.RoleViewer))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var settings cashdrawer.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !settings.Enabled || settings.T1 != 25 || settings.T2 != 250 {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestUpdateSettingsEndpoint(t *testing.T) {
	repo := &memorySettingsRepo{}
	handler, _ := newTestHandler(t, repo, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPut, "/api/v1/cash-drawer/settings", `{"printerName":"front-printer","kickMode":1}`, auth.RoleManager))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.stored == nil || repo.stored.PrinterName != "front-printer" || repo.stored.KickMode != 1 {
		t.Fatalf("expected persisted merge, got %+v", repo.stored)
	}
	if repo.stored.T1 != 25 {
		t.Fatalf("expected untouched defaults persisted, got %+v", repo.stored)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPut, "/api/v1/cash-drawer/settings", `{"kickMode":7}`, auth.RoleManager))
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for invalid kick mode, got %d", rec.Code)
	}
}

func TestManualOpenSendsKick(t *testing.T) {
	stored := cashdrawer.DefaultSettings()
	stored.PrinterName = "front-printer"
	sender := &stubKickSender{}
	handler, _ := newTestHandler(t, &memorySettingsRepo{stored: &stored}, sender)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPost, "/api/v1/cash-drawer/open", "", auth.RoleCashier))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sender.sent) != 1 || sender.sent[0].PrinterName != "front-printer" {
		t.Fatalf("unexpected kicks: %+v", sender.sent)
	}

	var resp manualOpenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Opened {
		t.Fatalf("expected opened, got %+v", resp)
	}
}

func TestManualOpenWithoutPrinterIsInert(t *testing.T) {
	sender := &stubKickSender{}
	handler, _ := newTestHandler(t, &memorySettingsRepo{}, sender)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPost, "/api/v1/cash-drawer/open", "", auth.RoleCashier))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no kick sent, got %+v", sender.sent)
	}

	var resp manualOpenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Opened || !resp.Command.NoOp {
		t.Fatalf("expected inert no-op, got %+v", resp)
	}
}

func TestManualOpenRequiresManagerWhenPinEnforced(t *testing.T) {
	stored := cashdrawer.DefaultSettings()
	stored.PrinterName = "front-printer"
	stored.RequireManagerPinForManualOpen = true
	sender := &stubKickSender{}
	handler, _ := newTestHandler(t, &memorySettingsRepo{stored: &stored}, sender)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPost, "/api/v1/cash-drawer/open", "", auth.RoleCashier))
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no kick sent, got %+v", sender.sent)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPost, "/api/v1/cash-drawer/open", "", auth.RoleManager))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 for manager, got %d", rec.Code)
	}
}

func TestChangePlanEndpoint(t *testing.T) {
	handler, snapshots := newTestHandler(t, &memorySettingsRepo{}, nil)
	snapshots.Update([]bridge.HopperLevel{
		{Denomination: 1.00, CurrentLevel: 10, LowThreshold: 2},
		{Denomination: 0.20, CurrentLevel: 3, LowThreshold: 1},
		{Denomination: 0.10, CurrentLevel: 5, LowThreshold: 2},
	}, time.Now().UTC())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPost, "/api/v1/change-plan", `{"amount":1.30}`, auth.RoleCashier))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp changePlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Feasible || resp.TotalCoins != 3 {
		t.Fatalf("unexpected plan: %+v", resp.Plan)
	}
	if resp.SnapshotAt == "" {
		t.Fatal("expected snapshot timestamp")
	}
}

func TestChangePlanWithoutSnapshotFallsBack(t *testing.T) {
	handler, _ := newTestHandler(t, &memorySettingsRepo{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(stdhttp.MethodPost, "/api/v1/change-plan", `{"amount":1.30}`, auth.RoleCashier))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp changePlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Feasible || !resp.UseDrawer {
		t.Fatalf("expected drawer fallback with no inventory, got %+v", resp.Plan)
	}
	if resp.SnapshotAt != "" {
		t.Fatalf("expected empty snapshot timestamp, got %q", resp.SnapshotAt)
	}
}
