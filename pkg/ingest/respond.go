package ingest

import (
	"encoding/json"
	stdliberrors "errors"
	"net/http"
	"time"

	stenoerrors "github.com/stenoweb/steno/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// respondError maps coded errors to HTTP statuses and a structured JSON body.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	response := struct {
		Error     string `json:"error"`
		Code      string `json:"code,omitempty"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable,omitempty"`
		Timestamp string `json:"timestamp"`
	}{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	var stenoErr *stenoerrors.Error
	if stdliberrors.As(err, &stenoErr) {
		status = statusFor(stenoErr.Code)
		response.Code = string(stenoErr.Code)
		response.Message = stenoErr.Message
		response.Retryable = stenoErr.Retryable
	} else if err != nil {
		response.Message = err.Error()
	}
	response.Error = http.StatusText(status)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func statusFor(code stenoerrors.ErrorCode) int {
	switch code {
	case stenoerrors.ErrCodeSessionNotFound, stenoerrors.ErrCodeStorageRead:
		return http.StatusNotFound
	case stenoerrors.ErrCodeSessionKey:
		return http.StatusUnauthorized
	case stenoerrors.ErrCodeConfigInvalid:
		return http.StatusForbidden
	case stenoerrors.ErrCodeSessionClosed, stenoerrors.ErrCodeSessionFull,
		stenoerrors.ErrCodeWriterConflict, stenoerrors.ErrCodeQueueOverflow:
		return http.StatusConflict
	case stenoerrors.ErrCodeEnvelopeDecode, stenoerrors.ErrCodeCommandUnknown,
		stenoerrors.ErrCodeEventInvalid, stenoerrors.ErrCodeEventKind,
		stenoerrors.ErrCodeGenLanguage, stenoerrors.ErrCodeGenUnsupported,
		stenoerrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case stenoerrors.ErrCodeTransportSend, stenoerrors.ErrCodeTransportClosed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
