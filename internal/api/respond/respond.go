package respond

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape of every API response: a success flag plus
// either a data payload or an error message. Code is a stable machine
// slug; Error stays suitable for direct display.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// Error writes a failure envelope. The message must not leak storage
// internals; code identifies the failure category for clients.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := ""
	if r != nil {
		requestID = r.Header.Get("X-Trace-ID")
	}
	if requestID == "" {
		requestID = w.Header().Get("X-Trace-ID")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success:   false,
		Error:     message,
		Code:      code,
		RequestID: requestID,
	})
}
