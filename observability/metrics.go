package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	vaultMetricsOnce sync.Once
	vaultRegistry    *VaultMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record read
// API activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "acre",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total read API requests segmented by module and route.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "acre",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total read API errors segmented by module, route, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "acre",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for read API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "acre",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of read API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// VaultMetrics wraps collectors tracking vault engine health.
type VaultMetrics struct {
	operations     *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	totalAssets    prometheus.Gauge
	totalShares    prometheus.Gauge
	idleAssets     prometheus.Gauge
	depositBalance prometheus.Gauge
	pauseEngaged   prometheus.Gauge
	feesCollected  *prometheus.CounterVec
}

// Vault exposes the metrics registry for the vault engine host.
func Vault() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = newVaultMetrics()
		prometheus.MustRegister(vaultRegistry.collectors()...)
	})
	return vaultRegistry
}

func newVaultMetrics() *VaultMetrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "acre",
			Subsystem: "vault",
			Name:      name,
			Help:      help,
		})
	}
	return &VaultMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acre",
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Count of engine operations segmented by operation and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "acre",
			Subsystem: "vault",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acre",
			Subsystem: "vault",
			Name:      "errors_total",
			Help:      "Count of reverted engine operations segmented by operation and reason.",
		}, []string{"operation", "reason"}),
		totalAssets:    gauge("total_assets", "Idle assets plus principal delegated to the allocator, in base units."),
		totalShares:    gauge("total_shares", "Outstanding vault shares in base units."),
		idleAssets:     gauge("idle_assets", "Assets held directly by the vault, in base units."),
		depositBalance: gauge("deposit_balance", "Principal delegated to the yield venue, in base units."),
		pauseEngaged:   gauge("pause_engaged", "Indicates whether the vault is paused (1) or not (0)."),
		feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acre",
			Subsystem: "vault",
			Name:      "fees_collected_total",
			Help:      "Fees routed to the treasury segmented by direction, in base units.",
		}, []string{"direction"}),
	}
}

func (m *VaultMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operations,
		m.latency,
		m.errors,
		m.totalAssets,
		m.totalShares,
		m.idleAssets,
		m.depositBalance,
		m.pauseEngaged,
		m.feesCollected,
	}
}

// Observe records the execution of an engine operation. Reason should be a
// stable error class and is ignored on success.
func (m *VaultMetrics) Observe(operation string, duration time.Duration, reason string) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if reason != "" {
		outcome = "error"
		m.errors.WithLabelValues(op, reason).Inc()
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// VaultState is the set of balances published as gauges.
type VaultState struct {
	TotalAssets    *uint256.Int
	TotalShares    *uint256.Int
	IdleAssets     *uint256.Int
	DepositBalance *uint256.Int
	Paused         bool
}

// RecordState updates the balance gauges.
func (m *VaultMetrics) RecordState(s VaultState) {
	if m == nil {
		return
	}
	m.totalAssets.Set(uintToFloat(s.TotalAssets))
	m.totalShares.Set(uintToFloat(s.TotalShares))
	m.idleAssets.Set(uintToFloat(s.IdleAssets))
	m.depositBalance.Set(uintToFloat(s.DepositBalance))
	if s.Paused {
		m.pauseEngaged.Set(1)
	} else {
		m.pauseEngaged.Set(0)
	}
}

// RecordFee adds a routed fee to the collected counter.
func (m *VaultMetrics) RecordFee(direction string, fee *uint256.Int) {
	if m == nil || fee == nil || fee.IsZero() {
		return
	}
	if direction = strings.TrimSpace(direction); direction == "" {
		direction = "unknown"
	}
	m.feesCollected.WithLabelValues(direction).Add(uintToFloat(fee))
}

func uintToFloat(value *uint256.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value.ToBig()).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
