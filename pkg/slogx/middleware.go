package slogx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/mona-chen/jean/pkg/idx"
)

// quietPaths are logged at debug; probes and scrapes would drown everything
// else at info.
var quietPaths = map[string]bool{
	"/livez":   true,
	"/readyz":  true,
	"/metrics": true,
}

// HTTPMiddleware assigns a request id, attaches a request logger to the
// context, logs the outcome and turns panics into a 500.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqID := r.Header.Get(RequestIDHeader)
			if !validRequestID(reqID) {
				reqID = idx.New(idx.Request).String()
			}
			w.Header().Set(RequestIDHeader, reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx := withRequestID(WithContext(r.Context(), logger), reqID)
			r = r.WithContext(ctx)

			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					logger.Error("panic serving request", "panic", p, "stack", string(debug.Stack()))
					if !rw.wrote {
						w.Header().Set("Content-Type", "application/json")
						rw.WriteHeader(http.StatusInternalServerError)
						_, _ = rw.Write([]byte(`{"error":"server_error","error_description":"Internal server error"}` + "\n"))
					}
				}

				level := slog.LevelInfo
				if quietPaths[r.URL.Path] {
					level = slog.LevelDebug
				}
				logger.Log(ctx, level, "http_request",
					"status", rw.status,
					"duration_ms", time.Since(start).Milliseconds(),
					"user_agent", r.UserAgent(),
				)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// validRequestID accepts caller ids that are short and printable so they
// cannot be used to forge log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

type responseWriter struct {
	http.ResponseWriter

	status int
	wrote  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wrote {
		return
	}
	rw.status = code
	rw.wrote = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wrote {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
