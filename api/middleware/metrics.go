package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/metrics"
)

// Metrics records request count and latency keyed by the matched chi route
// pattern, so path parameters do not explode label cardinality.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			m.Observe(r.Method, routePattern(r), rec.status, time.Since(start))
		})
	}
}
