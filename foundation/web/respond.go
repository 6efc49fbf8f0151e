package web

import (
	"context"
	"encoding/json"
	"net/http"
)

// Respond marshals data as JSON and writes it to w with the given
// status code. A nil data with http.StatusNoContent writes no body.
func Respond(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	if v, err := GetValues(ctx); err == nil {
		v.StatusCode = statusCode
	}

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(jsonData); err != nil {
		return err
	}
	return nil
}

// RespondError writes {"success": false, "message": ...} at
// statusCode, matching the control surface's documented error shape.
func RespondError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) error {
	resp := struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{
		Success: false,
		Message: message,
	}
	return Respond(ctx, w, resp, statusCode)
}

// Decode reads the request body into v as JSON and validates it if v
// implements the Validate() error method convention used across
// handlers.
func Decode(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return err
	}

	if validator, ok := v.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return err
		}
	}

	return nil
}
