package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/history"
	"github.com/wonny/creditgate/pkg/logger"
)

// HistoryStore reads persisted runs (satisfied by *history.Repository)
type HistoryStore interface {
	GetLatestRun(ctx context.Context) (*history.StoredRun, error)
	GetRunByDate(ctx context.Context, date time.Time) (*history.StoredRun, error)
	GetAlertsForDate(ctx context.Context, date time.Time) ([]contracts.Alert, error)
	GetTickerHistory(ctx context.Context, ticker string, since time.Time) ([]history.TickerResult, error)
	GetQualificationSummary(ctx context.Context, since time.Time) ([]history.QualificationStat, error)
	GetSystemStateHistory(ctx context.Context, since time.Time) ([]history.StateEntry, error)
}

// HistoryHandler serves stored scans and statistics
// ⭐ SSOT: run history endpoints are handled here only
type HistoryHandler struct {
	store  HistoryStore
	logger *logger.Logger
	now    func() time.Time
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store HistoryStore, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: log.WithField("handler", "history"),
		now:    time.Now,
	}
}

// GetLatestScan returns the most recent stored scan
// GET /api/scans/latest
func (h *HistoryHandler) GetLatestScan(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetLatestRun(r.Context())
	if err != nil {
		h.storeError(w, err, "Failed to load latest scan")
		return
	}
	respondData(w, run)
}

// GetScan returns the scan stored for a date
// GET /api/scans/{date}
func (h *HistoryHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}

	run, err := h.store.GetRunByDate(r.Context(), date)
	if err != nil {
		h.storeError(w, err, "Failed to load scan")
		return
	}
	respondData(w, run)
}

// GetAlerts returns the failure-mode alerts stored for a date
// GET /api/scans/{date}/alerts
func (h *HistoryHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}

	alerts, err := h.store.GetAlertsForDate(r.Context(), date)
	if err != nil {
		h.storeError(w, err, "Failed to load alerts")
		return
	}
	if alerts == nil {
		alerts = []contracts.Alert{}
	}
	respondData(w, alerts)
}

// GetTickerHistory returns a ticker's per-day results
// GET /api/tickers/{ticker}/history?days=90
func (h *HistoryHandler) GetTickerHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])
	q, ok := h.window(w, r)
	if !ok {
		return
	}

	results, err := h.store.GetTickerHistory(r.Context(), ticker, q.Since(h.now()))
	if err != nil {
		h.storeError(w, err, "Failed to load ticker history")
		return
	}
	if results == nil {
		results = []history.TickerResult{}
	}
	respondData(w, map[string]interface{}{
		"ticker":  ticker,
		"days":    q.Days,
		"results": results,
	})
}

// GetQualificationStats ranks tickers by qualification rate
// GET /api/stats/qualification?days=90
func (h *HistoryHandler) GetQualificationStats(w http.ResponseWriter, r *http.Request) {
	q, ok := h.window(w, r)
	if !ok {
		return
	}

	stats, err := h.store.GetQualificationSummary(r.Context(), q.Since(h.now()))
	if err != nil {
		h.storeError(w, err, "Failed to load qualification summary")
		return
	}
	if stats == nil {
		stats = []history.QualificationStat{}
	}
	respondData(w, stats)
}

// GetStateHistory returns the daily system states
// GET /api/stats/states?days=90
func (h *HistoryHandler) GetStateHistory(w http.ResponseWriter, r *http.Request) {
	q, ok := h.window(w, r)
	if !ok {
		return
	}

	states, err := h.store.GetSystemStateHistory(r.Context(), q.Since(h.now()))
	if err != nil {
		h.storeError(w, err, "Failed to load state history")
		return
	}
	if states == nil {
		states = []history.StateEntry{}
	}
	respondData(w, states)
}

func (h *HistoryHandler) window(w http.ResponseWriter, r *http.Request) (WindowQuery, bool) {
	var q WindowQuery
	if s := r.URL.Query().Get("days"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil {
			respondInvalid(w, []FieldError{{Code: "ERR_INT", Field: "Days", Message: "days must be an integer"}})
			return q, false
		}
		q.Days = d
		// defaults fills zero, so reject it explicitly
		if d == 0 {
			respondInvalid(w, []FieldError{{Code: "ERR_MIN", Field: "Days", Message: "Days must be at least 1"}})
			return q, false
		}
	}
	if errs := finish(r, &q); errs != nil {
		respondInvalid(w, errs)
		return q, false
	}
	return q, true
}

func (h *HistoryHandler) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, history.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.WithError(err).Error(msg)
	respondError(w, http.StatusInternalServerError, msg)
}

func pathDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := parseDate(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return time.Time{}, false
	}
	return date, true
}
