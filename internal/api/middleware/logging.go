package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// statusRecorder remembers what the handler answered
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  uint64
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += uint64(n)
	return n, err
}

// pollPaths are hit on a timer by chat gateways; they are only logged on errors.
var pollPaths = map[string]bool{
	"/api/health": true,
	"/api/outbox": true,
}

// Logger writes one access line per request: method, path, status, size, duration and request id
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if pollPaths[r.URL.Path] && rec.status < http.StatusBadRequest {
			return
		}
		log.Printf("[http] %s %s %d %s %s id=%s", r.Method, r.URL.Path, rec.status,
			humanize.IBytes(rec.bytes), time.Since(start).Round(time.Millisecond), chimw.GetReqID(r.Context()))
	})
}
