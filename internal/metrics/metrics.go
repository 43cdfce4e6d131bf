// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Marks counts write-path outcomes by path (scan, manual, correct),
	// status and whether a new record was created.
	Marks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weekendschool",
		Name:      "attendance_marks_total",
		Help:      "Attendance write-path outcomes.",
	}, []string{"path", "status", "created"})

	// Rejections counts write-path requests refused before reaching the ledger.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weekendschool",
		Name:      "attendance_rejections_total",
		Help:      "Attendance writes rejected, by reason.",
	}, []string{"path", "reason"})

	// Conflicts counts inserts that lost the unique-key race and fell back to the winner.
	Conflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weekendschool",
		Name:      "attendance_insert_conflicts_total",
		Help:      "Ledger inserts resolved by reading the concurrent winner.",
	})

	// EventsProcessed counts worker messages by type and result.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weekendschool",
		Name:      "worker_events_total",
		Help:      "Queue messages handled by the worker.",
	}, []string{"type", "result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weekendschool",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
)

// GinMiddleware observes request latency keyed by the matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
