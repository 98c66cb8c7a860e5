package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// ErrEncode marks a payload that could not be encoded. Nothing has been
// written to the response when WriteJSON returns it.
var ErrEncode = errors.New("encode json response")

// WriteJSON encodes payload before touching the response, so an encoding
// failure leaves the caller free to write an error instead.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		body = append(encoded, '\n')
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return nil
	}
	_, err := w.Write(body)
	return err
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	if len(meta) == 0 {
		meta = nil
	}
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}
