package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Envelope codes. The HTTP status carries the detail; code is kept for
// clients that only look at the body.
const (
	CodeOK    = 0
	CodeError = 1
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

var ErrBadRequest = errors.New("bad_request")

// Envelope is the body of every API response.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Page is the envelope for paginated listings.
type Page struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Success bool   `json:"success"`
	Total   int64  `json:"total"`
	Data    any    `json:"data"`
}

// WriteJSON writes v as JSON with the given status and no-cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Code: CodeOK, Msg: "ok", Data: data})
}

func WritePage(w http.ResponseWriter, total int64, data any) {
	WriteJSON(w, http.StatusOK, Page{Code: CodeOK, Msg: "ok", Success: true, Total: total, Data: data})
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Code: CodeError, Msg: msg})
}

// DecodeJSON reads a single JSON object from the request body into v.
// Unknown fields are ignored.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", ErrBadRequest)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
