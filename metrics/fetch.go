package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAssetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendingscope_fetch_assets_total",
		Help: "Number of reserve fetches by network and status",
	}, []string{"network", "status"})
	fetchNetworksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendingscope_fetch_networks_total",
		Help: "Number of network fetches by status",
	}, []string{"status"})
	fetchNetworkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lendingscope_fetch_network_duration_seconds",
		Help:    "Time spent fetching all reserves of a network",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"network"})
	symbolFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendingscope_symbol_fallbacks_total",
		Help: "Number of symbol lookups that fell back to a placeholder, by reason",
	}, []string{"reason"})
	multicallTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendingscope_multicall_total",
		Help: "Number of aggregate3 network fetches by network and outcome",
	}, []string{"network", "outcome"})
	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lendingscope_cache_local_entries",
		Help: "Number of entries in the local response cache",
	})
	cacheHitRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lendingscope_cache_local_hit_rate",
		Help: "Hit rate of the local response cache",
	})
)

func ObserveAsset(network string, status string) {
	fetchAssetsTotal.WithLabelValues(network, status).Inc()
}

func ObserveNetwork(network string, status string, duration time.Duration) {
	fetchNetworksTotal.WithLabelValues(status).Inc()
	fetchNetworkDuration.WithLabelValues(network).Observe(duration.Seconds())
}

func ObserveSymbolFallback(reason string) {
	symbolFallbacksTotal.WithLabelValues(reason).Inc()
}

func ObserveMulticall(network string, outcome string) {
	multicallTotal.WithLabelValues(network, outcome).Inc()
}

func SetCacheStats(entries int64, hitRate float64) {
	cacheEntries.Set(float64(entries))
	cacheHitRate.Set(hitRate)
}
