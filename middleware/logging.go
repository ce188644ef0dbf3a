package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	slogctx "github.com/veqryn/slog-context"
)

// Logging logs one record per request with its method, path, status,
// duration and response size. The request context carries a logger
// annotated with the method and path, which an App without its own logger
// uses for handler logs. A nil logger means slog.Default().
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := logger.With(slog.String("method", r.Method), slog.String("path", r.URL.Path))
			ctx := slogctx.NewCtx(r.Context(), log)

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.Log(ctx, level, "request",
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("size", humanize.Bytes(rec.size)),
			)
		})
	}
}

type recorder struct {
	http.ResponseWriter
	status      int
	size        uint64
	wroteHeader bool
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.size += uint64(n)
	return n, err
}

func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
