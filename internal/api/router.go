package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/creditgate/internal/api/handlers"
	"github.com/wonny/creditgate/pkg/logger"
	"github.com/wonny/creditgate/pkg/metrics"
)

// Handlers groups everything the router mounts. History, Jobs, Stream and
// Metrics may be nil; their routes are then not registered.
type Handlers struct {
	Screening *handlers.ScreeningHandler
	History   *handlers.HistoryHandler
	Jobs      *handlers.JobsHandler
	Stream    *handlers.RunStream
	Metrics   *metrics.Recorder
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routing is configured in this function only
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}
	if h.Stream != nil {
		r.Handle("/ws/runs", h.Stream).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Live screening
	api.HandleFunc("/system/state", h.Screening.GetSystemState).Methods("GET")
	api.HandleFunc("/scans", h.Screening.RunScan).Methods("POST")
	api.HandleFunc("/strikes/{ticker}", h.Screening.GetStrikes).Methods("GET")
	api.HandleFunc("/strikes/{ticker}/spreads", h.Screening.GetSpreads).Methods("GET")

	// Stored history; /scans/latest must be registered before /scans/{date}
	if h.History != nil {
		api.HandleFunc("/scans/latest", h.History.GetLatestScan).Methods("GET")
		api.HandleFunc("/scans/{date}", h.History.GetScan).Methods("GET")
		api.HandleFunc("/scans/{date}/alerts", h.History.GetAlerts).Methods("GET")
		api.HandleFunc("/tickers/{ticker}/history", h.History.GetTickerHistory).Methods("GET")
		api.HandleFunc("/stats/qualification", h.History.GetQualificationStats).Methods("GET")
		api.HandleFunc("/stats/states", h.History.GetStateHistory).Methods("GET")
	}

	if h.Jobs != nil {
		api.HandleFunc("/jobs", h.Jobs.ListJobs).Methods("GET")
		api.HandleFunc("/jobs/{name}/run", h.Jobs.TriggerJob).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log, h.Metrics))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "creditgate-api",
	})
}

// statusWriter captures the response code; it forwards Hijack so the
// websocket upgrade still works behind the middleware
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs HTTP requests and records their latency
func loggingMiddleware(log *logger.Logger, rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if rec != nil {
				rec.RecordRequest(route, r.Method, sw.status, time.Since(start))
			}

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"route":    route,
				"status":   sw.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
