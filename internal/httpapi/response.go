package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
)

// envelope is the `{success, data?, error?}` wrapper every response uses.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonutil.NewEncoder(w).Encode(v); err != nil {
		// headers are already sent; nothing more to do but note it happened.
		_ = err
	}
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeDecodeError maps a request-body decode failure to its status: 413 when
// the body-limit reader cut the read short, 400 for malformed JSON.
func writeDecodeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, logger, http.StatusRequestEntityTooLarge, "request body too large", err)
		return
	}
	writeError(w, logger, http.StatusBadRequest, "invalid request body", err)
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, msg string, err error) {
	if status >= 500 {
		logger.Error(msg, zap.Error(err))
	} else if err != nil {
		logger.Warn(msg, zap.Error(err))
	} else {
		logger.Warn(msg)
	}
	writeJSON(w, status, envelope{Success: false, Error: msg})
}
