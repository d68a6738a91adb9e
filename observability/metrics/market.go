package metrics

import (
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"paylock/core/events"
	"paylock/native/market"
)

// MarketMetrics tracks marketplace activity derived from committed events.
type MarketMetrics struct {
	events       *prometheus.CounterVec
	volume       *prometheus.CounterVec
	protocolFees prometheus.Counter
	withdrawals  *prometheus.CounterVec
	roundingDust prometheus.Counter
	vaultOutflow prometheus.Counter
	paused       prometheus.Gauge
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the lazily registered marketplace metrics. The registry
// implements events.Emitter so it can be attached to the node directly.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = newMarketMetrics()
		prometheus.MustRegister(marketRegistry.collectors()...)
	})
	return marketRegistry
}

func (m *MarketMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.events,
		m.volume,
		m.protocolFees,
		m.withdrawals,
		m.roundingDust,
		m.vaultOutflow,
		m.paused,
	}
}

func newMarketMetrics() *MarketMetrics {
	return &MarketMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paylock",
			Subsystem: "market",
			Name:      "events_total",
			Help:      "Committed marketplace events by type.",
		}, []string{"type"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paylock",
			Subsystem: "market",
			Name:      "volume_total",
			Help:      "Value moved by purchases, keeps and refunds in base units.",
		}, []string{"flow"}),
		protocolFees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paylock",
			Subsystem: "market",
			Name:      "protocol_fees_total",
			Help:      "Protocol fees accrued from keeps and refunds.",
		}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paylock",
			Subsystem: "market",
			Name:      "withdrawals_total",
			Help:      "Withdrawn fee balances by ledger kind.",
		}, []string{"kind"}),
		roundingDust: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paylock",
			Subsystem: "market",
			Name:      "rounding_dust_total",
			Help:      "Owner share remainders forfeited by integer division.",
		}),
		vaultOutflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paylock",
			Subsystem: "market",
			Name:      "vault_outflow_total",
			Help:      "Native value paid out of the market vault.",
		}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "paylock",
			Subsystem: "market",
			Name:      "paused",
			Help:      "1 while the market module is paused.",
		}),
	}
}

// Emit implements events.Emitter.
func (m *MarketMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	payload, ok := evt.(events.Payload)
	if !ok {
		return
	}
	raw := payload.Event()
	if raw == nil || raw.Type == "" {
		return
	}
	m.events.WithLabelValues(raw.Type).Inc()
	attrs := raw.Attributes

	switch raw.Type {
	case market.EventTypeContentPurchased:
		m.volume.WithLabelValues("purchase").Add(amountAttr(attrs, "amountPaid"))
	case market.EventTypeContentKept:
		m.volume.WithLabelValues("keep").Add(amountAttr(attrs, "price"))
		m.protocolFees.Add(amountAttr(attrs, "protocolPayment"))
		m.roundingDust.Add(amountAttr(attrs, "forfeitedDust"))
	case market.EventTypeContentRefunded:
		m.volume.WithLabelValues("refund").Add(amountAttr(attrs, "amountReturned"))
		m.protocolFees.Add(amountAttr(attrs, "protocolFee"))
	case market.EventTypeFeesWithdrawn:
		kind := strings.TrimSpace(attrs["kind"])
		if kind == "" {
			kind = "unknown"
		}
		m.withdrawals.WithLabelValues(kind).Add(amountAttr(attrs, "amount"))
	case market.EventTypePaused:
		m.paused.Set(1)
	case market.EventTypeUnpaused:
		m.paused.Set(0)
	case events.TypeTransfer:
		m.vaultOutflow.Add(amountAttr(attrs, "amount"))
	}
}

func amountAttr(attrs map[string]string, key string) float64 {
	value, ok := new(big.Int).SetString(strings.TrimSpace(attrs[key]), 10)
	if !ok || value.Sign() <= 0 {
		return 0
	}
	return bigToFloat(value)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
