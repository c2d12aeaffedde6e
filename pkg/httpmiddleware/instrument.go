package httpmiddleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument records request count and latency per route and status.
func Instrument(meter metric.Meter) (Middleware, error) {
	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests served"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "requests counter")
	}
	duration, err := meter.Float64Histogram("http.server.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("HTTP request latency"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route(r)),
				attribute.String("http.status_code", strconv.Itoa(sw.code())),
			)
			ctx := r.Context()
			requests.Add(ctx, 1, attrs)
			duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		})
	}, nil
}
