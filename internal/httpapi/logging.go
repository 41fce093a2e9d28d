package httpapi

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) {
	l = l.With().Str("component", "httpapi").Logger()
	zlog = &l
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("ACMANAGER_HTTP_LOG"))

// SetRequestLogLevel overrides the default per-request log level.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// requestLogger logs request start/end at the level chosen for the request.
// Errors (status >= 500) are logged from LevelError upwards.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		if lvl == LevelOff {
			next.ServeHTTP(w, r)
			return
		}
		rid := middleware.GetReqID(r.Context())
		if lvl >= LevelDebug {
			logLine(rid, r, 0, 0, "request start")
		}
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		if lvl >= LevelInfo || sr.status >= http.StatusInternalServerError {
			logLine(rid, r, sr.status, time.Since(start), "request end")
		}
	})
}

func logLine(rid string, r *http.Request, status int, dur time.Duration, msg string) {
	if zlog == nil {
		log.Printf("%s method=%s path=%s status=%d dur=%s request_id=%s", msg, r.Method, r.URL.Path, status, dur, rid)
		return
	}
	z := zlog.Info().Str("method", r.Method).Str("path", r.URL.Path)
	if status != 0 {
		z = z.Int("status", status).Dur("dur", dur)
	}
	if rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg(msg)
}
