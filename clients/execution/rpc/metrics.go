package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendingscope_rpc_calls_total",
		Help: "Number of rpc attempts by endpoint host and outcome",
	}, []string{"endpoint", "outcome"})
	rpcCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lendingscope_rpc_call_duration_seconds",
		Help:    "Duration of single rpc attempts",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"endpoint"})
	rpcRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendingscope_rpc_retries_total",
		Help: "Number of rpc attempts that were scheduled for a retry",
	}, []string{"endpoint"})
	rpcFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lendingscope_rpc_fallbacks_total",
		Help: "Number of times a call moved on to a fallback endpoint",
	})
)
