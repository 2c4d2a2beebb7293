package utils

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-storefront/models"
)

// RespondJSON writes payload merged into the {success, message} envelope.
func RespondJSON(w http.ResponseWriter, status int, message string, payload map[string]any) {
	body := map[string]any{
		"success": status < http.StatusBadRequest,
	}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("encode json response", "error", err)
	}
}

// StatusFor maps an error onto its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondError writes err in the envelope. Internal failures are logged and
// replaced by a generic message.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	payload := map[string]any{}
	message := err.Error()

	switch status {
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	case http.StatusServiceUnavailable:
		logger.WarnContext(r.Context(), "backend unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		message = models.ErrUnavailable.Error()
		payload["retryable"] = true
	}

	var stockErr *models.StockError
	if errors.As(err, &stockErr) {
		payload["productId"] = stockErr.ProductID.Hex()
		payload["available"] = stockErr.Available
	}
	RespondJSON(w, status, message, payload)
}
