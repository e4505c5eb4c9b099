package middleware

import (
	"net/http"
	"time"

	"constkit/internal/platform/logger"
	pnet "constkit/internal/platform/net"
	phttp "constkit/internal/platform/net/http"
)

// AccessLogOptions configures the zerolog access log
type AccessLogOptions struct {
	// Slow marks requests taking >= Slow as warn level, 0 disables slow marking
	Slow time.Duration
	// Observe, when set, receives every finished request keyed by its route pattern
	Observe func(route, method string, status int, elapsed time.Duration)
}

// captureWriter wraps the original ResponseWriter and records status & bytes
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	if n > 0 {
		cw.bytes += n
	}
	return n, err
}

// AccessLog logs method, route, status, elapsed and bytes written. It must sit after
// RequestID so the request logger carries the id
func AccessLog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(logger.WithRequest(r.Context(), pnet.RequestID(r.Context())))
			start := time.Now()

			next.ServeHTTP(cw, r)

			elapsed := time.Since(start)
			route := phttp.RoutePattern(r)
			if opt.Observe != nil {
				opt.Observe(route, r.Method, cw.status, elapsed)
			}

			log := logger.C(r.Context())
			evt := log.Info()
			if opt.Slow > 0 && elapsed >= opt.Slow {
				evt = log.Warn()
			}
			evt.Int("status", cw.status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", route).
				Int("bytes", cw.bytes).
				Msg("request done")
		})
	}
}
