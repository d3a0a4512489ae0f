// SPDX-License-Identifier: MIT

// Package httpx provides the uniform JSON error envelope returned to clients
// and small response-writing helpers shared across handler packages.
package httpx

import (
	"encoding/json"
	"net/http"
)

// HeaderRequestID is the correlation header threaded through every hop.
const HeaderRequestID = "X-Request-Id"

// Envelope is the stable client-facing error shape. It deliberately carries
// no backend-specific detail.
type Envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the uniform error envelope.
func WriteError(w http.ResponseWriter, code int, errText, message, requestID string) {
	WriteJSON(w, code, Envelope{Error: errText, Message: message, RequestID: requestID})
}
