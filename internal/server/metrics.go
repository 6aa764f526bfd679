package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudsync_http_requests_total",
			Help: "Total HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudsync_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	filesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudsync_files_total",
			Help: "Number of file records as of the last storage computation.",
		},
	)

	storageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudsync_storage_bytes",
			Help: "Sum of recorded file sizes as of the last storage computation.",
		},
	)

	blobDirBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudsync_blob_dir_bytes",
			Help: "Bytes on disk in the blob directory as of the last health check.",
		},
	)

	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudsync_operations_total",
			Help: "File operations by outcome.",
		},
		[]string{"operation", "result"},
	)

	uploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cloudsync_uploaded_bytes_total",
			Help: "Bytes committed by successful uploads.",
		},
	)
)

func recordOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newResponseRecorder(w)
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
