package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"pedidos/internal/core"
	applog "pedidos/internal/log"
	"pedidos/internal/services"
)

// apiError is the JSON error body of the /api routes.
type apiError struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// classify maps an error from the upload or report path to a status and a
// message that is safe to show to the user.
func classify(err error) (int, apiError) {
	var malformed *core.MalformedInputError
	switch {
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity, apiError{Error: malformed.Error(), Missing: malformed.Missing}
	case errors.Is(err, errUploadTooBig):
		return http.StatusRequestEntityTooLarge, apiError{Error: "file is larger than the upload limit"}
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest, apiError{Error: err.Error()}
	case errors.Is(err, errBadYear):
		return http.StatusBadRequest, apiError{Error: err.Error()}
	case errors.Is(err, services.ErrUploadNotFound):
		return http.StatusNotFound, apiError{Error: "upload not found or expired, please upload the file again"}
	default:
		return http.StatusInternalServerError, apiError{Error: "internal error"}
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	logError(r, status, err)
	writeJSON(w, status, body)
}

func logError(r *http.Request, status int, err error) {
	logger := applog.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldStatusCode, status, applog.FieldError, err)
		return
	}
	logger.InfoContext(r.Context(), "Request rejected", applog.FieldStatusCode, status, applog.FieldError, err)
}
