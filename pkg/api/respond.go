package api

import (
	"encoding/json"
	stdliberrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odvcencio/snaplist/pkg/automation"
	"github.com/odvcencio/snaplist/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError sends a structured JSON error for requests that never reach
// the automation service.
func respondError(w http.ResponseWriter, status int, err error) {
	response := struct {
		Success     bool     `json:"success"`
		Error       string   `json:"error"`
		Code        string   `json:"code,omitempty"`
		Status      int      `json:"status"`
		Remediation []string `json:"remediation,omitempty"`
		Retryable   bool     `json:"retryable,omitempty"`
		Timestamp   string   `json:"timestamp"`
	}{
		Error:     http.StatusText(status),
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		response.Error = errors.Message(err)
		response.Code = string(errors.GetCode(err))
		if e, ok := errors.As(err); ok {
			response.Remediation = e.Remediation
			response.Retryable = e.Retryable
		}
	}
	respondJSON(w, status, response)
}

// respondResult writes a workflow result with the status its code maps to.
func respondResult(w http.ResponseWriter, res automation.Result) {
	respondJSON(w, statusForResult(res), res)
}

// statusForResult maps failures that happen before any browser work onto
// client or server error statuses. Failures inside the workflow itself are
// reported as 200 with success=false.
func statusForResult(res automation.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Code {
	case errors.ErrCodeSessionNotFound, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidListing:
		return http.StatusBadRequest
	case errors.ErrCodeSessionBusy:
		return http.StatusConflict
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeCapacity:
		return http.StatusServiceUnavailable
	case errors.ErrCodeInitialization:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if stdliberrors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if stdliberrors.As(err, &tooLarge) {
			return errors.New(errors.ErrCodeInvalidInput, "request body too large")
		}
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid JSON body").
			WithUserMessage("request body must be valid JSON")
	}
	return nil
}

// sessionKey reads the session header. Resolution to the default key happens
// in the service.
func sessionKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}
