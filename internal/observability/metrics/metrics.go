package metrics

import (
	"database/sql"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "pos_hardware_"

	resultSuccess = "success"
	resultError   = "error"

	planOutcomeFeasible = "feasible"
	planOutcomeDrawer   = "drawer"
)

var (
	registerOnce sync.Once

	healthChecks       *prometheus.CounterVec
	healthCheckLatency *prometheus.HistogramVec
	deviceUp           *prometheus.GaugeVec

	changePlans     *prometheus.CounterVec
	changePlanCoins prometheus.Histogram

	drawerKicks *prometheus.CounterVec

	hopperLevel  *prometheus.GaugeVec
	jamEvents    prometheus.Counter
	bridgeEvents *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		healthChecks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "health_checks_total",
				Help: "Total device health checks by role and resulting status",
			},
			[]string{"role", "status"},
		)
		healthCheckLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "health_check_latency_seconds",
				Help:    "Health check latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"role"},
		)
		deviceUp = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "device_up",
				Help: "1 when a device's last known status is online",
			},
			[]string{"device_id"},
		)

		changePlans = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "change_plans_total",
				Help: "Total change plan computations by outcome",
			},
			[]string{"outcome"},
		)
		changePlanCoins = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "change_plan_coins",
				Help:    "Coins dispensed per feasible change plan",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
			},
		)

		drawerKicks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "drawer_kicks_total",
				Help: "Total drawer kick commands by trigger and result",
			},
			[]string{"trigger", "result"},
		)

		hopperLevel = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "hopper_level",
				Help: "Last reported coin count per hopper denomination (cents)",
			},
			[]string{"denomination"},
		)
		jamEvents = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "hopper_jam_events_total",
				Help: "Total hopper jam events reported by the bridge",
			},
		)
		bridgeEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bridge_events_total",
				Help: "Total bridge events ingested by type and result",
			},
			[]string{"event", "result"},
		)

		prometheus.MustRegister(
			healthChecks,
			healthCheckLatency,
			deviceUp,
			changePlans,
			changePlanCoins,
			drawerKicks,
			hopperLevel,
			jamEvents,
			bridgeEvents,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveHealthCheck records one health check outcome and latency.
func ObserveHealthCheck(role, status string, duration time.Duration) {
	if role == "" {
		role = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	if healthChecks != nil {
		healthChecks.WithLabelValues(role, status).Inc()
	}
	if healthCheckLatency != nil {
		healthCheckLatency.WithLabelValues(role).Observe(duration.Seconds())
	}
}

// SetDeviceUp records the last known online state of a device.
func SetDeviceUp(deviceID string, up bool) {
	if deviceID == "" || deviceUp == nil {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	deviceUp.WithLabelValues(deviceID).Set(value)
}

// ObserveChangePlan records a change plan computation outcome.
func ObserveChangePlan(feasible bool, totalCoins int) {
	outcome := planOutcomeDrawer
	if feasible {
		outcome = planOutcomeFeasible
	}
	if changePlans != nil {
		changePlans.WithLabelValues(outcome).Inc()
	}
	if feasible && changePlanCoins != nil {
		changePlanCoins.Observe(float64(totalCoins))
	}
}

// IncDrawerKick records a drawer kick command by trigger and result.
func IncDrawerKick(trigger, result string) {
	if trigger == "" {
		trigger = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if drawerKicks != nil {
		drawerKicks.WithLabelValues(trigger, result).Inc()
	}
}

// SetHopperLevel records the last reported level for a denomination.
func SetHopperLevel(denominationCents int64, level int) {
	if hopperLevel == nil {
		return
	}
	hopperLevel.WithLabelValues(strconv.FormatInt(denominationCents, 10)).Set(float64(level))
}

// IncJamEvent counts a hopper jam report.
func IncJamEvent() {
	if jamEvents != nil {
		jamEvents.Inc()
	}
}

// IncBridgeEvent counts an ingested bridge event.
func IncBridgeEvent(event, result string) {
	if event == "" {
		event = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if bridgeEvents != nil {
		bridgeEvents.WithLabelValues(event, result).Inc()
	}
}

// Exported result constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
