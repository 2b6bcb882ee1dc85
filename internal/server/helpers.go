package server

import (
	"encoding/json"
	"net/http"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	status  int
}

var (
	errUnauthorized = &apiError{Code: "unauthorized", Message: "authentication required", status: http.StatusUnauthorized}
	errBadRequest   = &apiError{Code: "bad_request", Message: "invalid request", status: http.StatusBadRequest}
	errRateLimited  = &apiError{Code: "rate_limited", Message: "too many requests", status: http.StatusTooManyRequests}
	errUnavailable  = &apiError{Code: "unavailable", Message: "service unavailable", status: http.StatusServiceUnavailable}
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, e *apiError) {
	writeJSON(w, e.status, e)
}
