package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// EntryResponse is the JSON representation of a history entry. Content is
// base64 encoded since images are binary.
type EntryResponse struct {
	Index      int    `json:"index"`
	Content    []byte `json:"content"`
	Kind       string `json:"kind"`
	CapturedAt string `json:"captured_at"`
	Size       int    `json:"size"`
}

// AddEntryRequest is the JSON body for the add entry endpoint. Kind defaults
// to Text.
type AddEntryRequest struct {
	Content []byte `json:"content"`
	Kind    string `json:"kind"`
}

// ContentResponse carries the raw content delivered to a subscriber.
type ContentResponse struct {
	Content []byte `json:"content"`
}

// PingResponse is the body of the ping endpoint.
type PingResponse struct {
	Result string `json:"result"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Entries int    `json:"entries"`
}

// toEntryResponse converts a domain Entry to its JSON response representation.
func toEntryResponse(index int, e model.Entry) EntryResponse {
	content := e.Content
	if content == nil {
		content = []byte{}
	}

	return EntryResponse{
		Index:      index,
		Content:    content,
		Kind:       string(e.Kind),
		CapturedAt: e.CapturedAt,
		Size:       len(e.Content),
	}
}
