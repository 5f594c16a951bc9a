package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/scan"
	"github.com/wonny/creditgate/internal/strikes"
	"github.com/wonny/creditgate/pkg/logger"
)

// Scanner runs scans and answers live state queries (satisfied by *scan.Service)
type Scanner interface {
	Run(ctx context.Context, req scan.Request) (*scan.Result, error)
	Status(ctx context.Context, refresh bool) (contracts.SystemStatus, error)
	Strikes(ctx context.Context, ticker string, strike float64) (contracts.StrikeRange, *contracts.StructuralSafetyResult, error)
	Spreads(ctx context.Context, ticker string, top int, width float64) (*strikes.Suggestion, error)
}

// ScreeningHandler serves scans, system state and strike suggestions
// ⭐ SSOT: live screening endpoints are handled here only
type ScreeningHandler struct {
	scanner Scanner
	logger  *logger.Logger
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(scanner Scanner, log *logger.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		scanner: scanner,
		logger:  log.WithField("handler", "screening"),
	}
}

// GetSystemState returns the current system state
// GET /api/system/state?refresh=true
func (h *ScreeningHandler) GetSystemState(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	status, err := h.scanner.Status(r.Context(), refresh)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute system state")
		respondError(w, http.StatusBadGateway, "market data unavailable")
		return
	}

	respondData(w, status)
}

// RunScan screens the requested tickers (or the configured universe)
// POST /api/scans
func (h *ScreeningHandler) RunScan(w http.ResponseWriter, r *http.Request) {
	var body ScanRequest
	if errs := decodeBody(r, &body); errs != nil {
		respondInvalid(w, errs)
		return
	}

	req := scan.Request{Tickers: body.Tickers, Save: *body.Save}
	if body.Date != "" {
		d, err := parseDate(body.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Date = &d
	}

	res, err := h.scanner.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, scan.ErrMissingMarketData) {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		h.logger.WithError(err).Error("Scan failed")
		respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	respondData(w, res)
}

// GetStrikes suggests the safe strike zone for a ticker
// GET /api/strikes/{ticker}?strike=180
func (h *ScreeningHandler) GetStrikes(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	var q StrikeQuery
	if s := r.URL.Query().Get("strike"); s != "" {
		v, err := parseFiniteFloat(s)
		if err != nil {
			respondInvalid(w, []FieldError{{Code: "ERR_FLOAT", Field: "Strike", Message: "strike must be a finite number"}})
			return
		}
		q.Strike = v
	}
	if errs := finish(r, &q); errs != nil {
		respondInvalid(w, errs)
		return
	}

	rng, check, err := h.scanner.Strikes(r.Context(), ticker, q.Strike)
	if err != nil {
		if errors.Is(err, scan.ErrNoData) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, scan.ErrInvalidStrike) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to compute strikes")
		respondError(w, http.StatusBadGateway, "market data unavailable")
		return
	}

	data := map[string]interface{}{"range": rng}
	if check != nil {
		data["check"] = check
	}
	respondData(w, data)
}

// GetSpreads ranks put credit spreads below the safe strike ceiling
// GET /api/strikes/{ticker}/spreads?top=5&width=5
func (h *ScreeningHandler) GetSpreads(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	var q SpreadQuery
	if s := r.URL.Query().Get("top"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			respondInvalid(w, []FieldError{{Code: "ERR_INT", Field: "Top", Message: "top must be an integer"}})
			return
		}
		q.Top = v
	}
	if s := r.URL.Query().Get("width"); s != "" {
		v, err := parseFiniteFloat(s)
		if err != nil {
			respondInvalid(w, []FieldError{{Code: "ERR_FLOAT", Field: "Width", Message: "width must be a finite number"}})
			return
		}
		q.Width = v
	}
	if errs := finish(r, &q); errs != nil {
		respondInvalid(w, errs)
		return
	}

	suggestion, err := h.scanner.Spreads(r.Context(), ticker, q.Top, q.Width)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrNoData), errors.Is(err, strikes.ErrNoExpirations), errors.Is(err, strikes.ErrNoCandidates):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, scan.ErrNoSafeStrike):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, strikes.ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, scan.ErrSpreadsUnavailable):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to rank spreads")
			respondError(w, http.StatusBadGateway, "option chain unavailable")
		}
		return
	}
	respondData(w, suggestion)
}

// parseFiniteFloat rejects NaN and ±Inf, which ParseFloat accepts
func parseFiniteFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}
