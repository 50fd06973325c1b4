package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the failure envelope {"success":false,"message":...}.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, errorBody{Success: false, Message: message})
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Every auth response carries either a token or personal data.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
