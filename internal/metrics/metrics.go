// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presensi",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "presensi",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	AttendanceRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presensi",
		Name:      "attendance_recorded_total",
		Help:      "Attendance records created, by status.",
	}, []string{"status"})

	AttendanceConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presensi",
		Name:      "attendance_conflicts_total",
		Help:      "Check-ins rejected because the day was already recorded.",
	})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presensi",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})
)
