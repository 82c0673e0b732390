package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"pos-hardware/internal/audit"
	"pos-hardware/internal/auth"
	"pos-hardware/internal/bridge"
	bridgehttp "pos-hardware/internal/bridge/interfaces/http"
	drawerapp "pos-hardware/internal/cashdrawer/application"
	drawerrepo "pos-hardware/internal/cashdrawer/infrastructure/postgres"
	drawerhttp "pos-hardware/internal/cashdrawer/interfaces/http"
	"pos-hardware/internal/changemaker"
	deviceapp "pos-hardware/internal/devices/application"
	devicerepo "pos-hardware/internal/devices/infrastructure/postgres"
	devicehttp "pos-hardware/internal/devices/interfaces/http"
	devicenotify "pos-hardware/internal/devices/notify"
	"pos-hardware/internal/observability/metrics"
	"pos-hardware/internal/printbridge"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	deviceRepo := devicerepo.NewDeviceRepository(db)
	healthLogRepo := devicerepo.NewHealthLogRepository(db)
	settingsRepo := drawerrepo.NewSettingsRepository(db)

	monitorCfg, err := deviceapp.LoadConfig()
	if err != nil {
		logger.Fatalf("monitor config error: %v", err)
	}
	checks := deviceapp.NewCheckSet(monitorCfg, deviceapp.SystemClock{}, nil)

	monitorOpts := []deviceapp.MonitorOption{}
	if monitorCfg.WebhookURL != "" {
		monitorOpts = append(monitorOpts, deviceapp.WithNotifier(devicenotify.NewWebhookNotifier(monitorCfg.WebhookURL, logger)))
	}
	monitor, err := deviceapp.NewMonitor(deviceRepo, healthLogRepo, checks, monitorCfg, logger, monitorOpts...)
	if err != nil {
		logger.Fatalf("monitor error: %v", err)
	}
	if err := monitor.Start(context.Background()); err != nil {
		logger.Fatalf("monitor start error: %v", err)
	}
	defer monitor.Stop()

	emitter := bridge.NewEmitter()
	snapshots := bridge.NewSnapshotStore()
	snapshots.Attach(emitter)
	ingestHandler, err := bridgehttp.NewIngestHandler(emitter, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	drawerService, err := drawerapp.NewService(settingsRepo)
	if err != nil {
		logger.Fatalf("cash drawer service error: %v", err)
	}

	calculatorOpts := []changemaker.Option{}
	if cfg.MaxChangeAmount > 0 {
		calculatorOpts = append(calculatorOpts, changemaker.WithMaxAmount(cfg.MaxChangeAmount))
	}
	if len(cfg.CriticalDenominations) > 0 {
		calculatorOpts = append(calculatorOpts, changemaker.WithCriticalDenominations(cfg.CriticalDenominations...))
	}
	calculator := changemaker.NewCalculator(calculatorOpts...)

	var kickSender drawerhttp.KickSender
	if cfg.PrintBridgeURL != "" {
		client, err := printbridge.NewClient(cfg.PrintBridgeURL)
		if err != nil {
			logger.Fatalf("print bridge client error: %v", err)
		}
		kickSender = client
	}

	drawerHandler, err := drawerhttp.NewHandler(drawerService, calculator, snapshots, kickSender, auditRepo, logger)
	if err != nil {
		logger.Fatalf("cash drawer handler error: %v", err)
	}
	deviceHandler, err := devicehttp.NewHandler(deviceRepo, monitor, logger)
	if err != nil {
		logger.Fatalf("device handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	bridgeAuth := auth.NewBridgeAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/bridge/events", bridgeAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/devices", deviceHandler)
	mux.Handle("/api/v1/devices/", deviceHandler)
	mux.Handle("/api/v1/cash-drawer/settings", drawerHandler)
	mux.Handle("/api/v1/cash-drawer/open", drawerHandler)
	mux.Handle("/api/v1/change-plan", drawerHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL           string
	HTTPAddr              string
	PrintBridgeURL        string
	MaxChangeAmount       float64
	CriticalDenominations []float64
	JWTSecret             string
	IngestSecret          string
	IngestSkewSeconds     int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:           getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:              getenvDefault("HTTP_ADDR", ":8080"),
		PrintBridgeURL:        getenvDefault("PRINT_BRIDGE_URL", ""),
		MaxChangeAmount:       getenvFloatDefault("CHANGE_MAX_AMOUNT", 0),
		CriticalDenominations: getenvFloats("CHANGE_CRITICAL_DENOMINATIONS"),
		JWTSecret:             getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:          getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds:     getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	if cfg.IngestSecret == "" {
		log.Fatal("INGEST_HMAC_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloats(key string) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var result []float64
	for _, part := range strings.Split(value, ",") {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		result = append(result, parsed)
	}
	return result
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
