package observability

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics records engine activity for the /metrics endpoint.
type StakingMetrics struct {
	Syncs        *prometheus.CounterVec
	Stakes       *prometheus.CounterVec
	Unstakes     *prometheus.CounterVec
	Claims       *prometheus.CounterVec
	GlobalWeight *prometheus.GaugeVec
	Reserve      *prometheus.GaugeVec
}

type httpMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics

	httpOnce     sync.Once
	httpRegistry *httpMetrics
)

// Staking returns the lazily-initialised engine metrics registry.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			Syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldhub",
				Subsystem: "stake",
				Name:      "syncs_total",
				Help:      "Accumulator syncs segmented by pool.",
			}, []string{"pool"}),
			Stakes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldhub",
				Subsystem: "stake",
				Name:      "stakes_total",
				Help:      "Stake operations segmented by pool and kind.",
			}, []string{"pool", "kind"}),
			Unstakes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldhub",
				Subsystem: "stake",
				Name:      "unstakes_total",
				Help:      "Unstake operations segmented by pool and kind.",
			}, []string{"pool", "kind"}),
			Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldhub",
				Subsystem: "stake",
				Name:      "claims_total",
				Help:      "Reward claims segmented by pool and escrow flag.",
			}, []string{"pool", "escrow"}),
			GlobalWeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "yieldhub",
				Subsystem: "stake",
				Name:      "global_weight",
				Help:      "Total staked weight per pool.",
			}, []string{"pool"}),
			Reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "yieldhub",
				Subsystem: "stake",
				Name:      "pool_token_reserve",
				Help:      "Tracked deposit reserve per pool.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			stakingRegistry.Syncs,
			stakingRegistry.Stakes,
			stakingRegistry.Unstakes,
			stakingRegistry.Claims,
			stakingRegistry.GlobalWeight,
			stakingRegistry.Reserve,
		)
	})
	return stakingRegistry
}

// HTTP returns the lazily-initialised gateway metrics registry.
func HTTP() (requests *prometheus.CounterVec, latency *prometheus.HistogramVec) {
	httpOnce.Do(func() {
		httpRegistry = &httpMetrics{
			Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldhub",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Gateway requests segmented by route and status.",
			}, []string{"route", "status"}),
			Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "yieldhub",
				Subsystem: "http",
				Name:      "request_seconds",
				Help:      "Gateway request latency by route.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(httpRegistry.Requests, httpRegistry.Latency)
	})
	return httpRegistry.Requests, httpRegistry.Latency
}

// GaugeBig sets a gauge from a big.Int, saturating at the float64 range.
func GaugeBig(gauge prometheus.Gauge, v *big.Int) {
	if v == nil {
		gauge.Set(0)
		return
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) {
		f = math.MaxFloat64
	}
	gauge.Set(f)
}
