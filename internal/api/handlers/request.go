package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// FieldError is one validation failure returned to the client
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ScanRequest is the body of POST /api/scans
type ScanRequest struct {
	Tickers []string `json:"tickers" validate:"omitempty,max=500,dive,required,max=10"`
	Date    string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Save    *bool    `json:"save" default:"true"`
}

// WindowQuery selects how far back a history query reaches
type WindowQuery struct {
	Days int `default:"90" validate:"min=1,max=3650"`
}

// Since returns the start of the window relative to now
func (q WindowQuery) Since(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -q.Days)
}

// StrikeQuery is the query of GET /api/strikes/{ticker}
type StrikeQuery struct {
	Strike float64 `validate:"gte=0"`
}

// SpreadQuery is the query of GET /api/strikes/{ticker}/spreads.
// Zero fields use the selector's configured values.
type SpreadQuery struct {
	Top   int     `validate:"gte=0,lte=50"`
	Width float64 `validate:"gte=0,lte=100"`
}

// decodeBody reads JSON into req, applies defaults and validates it.
// An empty body is treated as {}.
func decodeBody(r *http.Request, req interface{}) []FieldError {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return []FieldError{{Code: "ERR_BODY", Message: "invalid JSON body: " + err.Error()}}
	}
	return finish(r, req)
}

// finish applies struct defaults then validation rules
func finish(r *http.Request, req interface{}) []FieldError {
	if err := defaults.Set(req); err != nil {
		return []FieldError{{Code: "ERR_DEFAULTS", Message: err.Error()}}
	}
	if err := validate.StructCtx(r.Context(), req); err != nil {
		return fieldErrors(err)
	}
	return nil
}

func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// parseDate parses a YYYY-MM-DD path or body value as a UTC date
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func respondInvalid(w http.ResponseWriter, errs []FieldError) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"error":   "validation failed",
		"details": errs,
	})
}
