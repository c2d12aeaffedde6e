package httpmiddleware

import (
	"net/http"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

// RateLimit enforces l per client IP. Rejected requests get 429 with a JSON
// body; every response carries the X-RateLimit-* headers.
func RateLimit(l *limiter.Limiter) Middleware {
	mw := stdlib.NewMiddleware(l,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":429,"message":"rate limit exceeded"}`))
		}),
	)
	return mw.Handler
}
