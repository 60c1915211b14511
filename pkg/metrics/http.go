package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and latencies per chi route
// pattern, method and status code.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(float64(elapsed.Milliseconds()))
	})
}

// ObserveBlockBytes records bytes moved through the block store.
// direction is "read" or "write".
func ObserveBlockBytes(direction string, n int) {
	if !IsEnabled() || n <= 0 {
		return
	}
	blockBytesTotal.WithLabelValues(direction).Add(float64(n))
}

// ObserveVaultStats records how long a vault statistics computation took.
func ObserveVaultStats(d time.Duration) {
	if !IsEnabled() {
		return
	}
	vaultStatsDuration.Observe(float64(d.Milliseconds()))
}
