// Package http serves the ledger as a JSON API.
//
// This file holds the response side: a small builder for JSON bodies and
// the mapping from ledger errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"financehub/internal/ledger"
	"financehub/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	ID      string `json:"id,omitempty"`
	Timeout bool   `json:"timeout,omitempty"`
}

func ErrorResponse(statusCode int, errorType, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(ErrorBody{Error: message, Type: errorType})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, log.ErrorTypeNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, log.ErrorTypeInternal, message)
}

// LedgerError maps a coordinator error onto a status code. A missing record
// of kind resource (the one named by the URL) is 404; any other validation
// failure, dangling references in the body included, is 422. Linkage rules
// are 409 and persistence failures 503.
func LedgerError(err error, resource string) *JSONResponseBuilder {
	var (
		verr *ledger.ValidationError
		cerr *ledger.ConsistencyError
		perr *ledger.PersistenceError
	)
	switch {
	case resource != "" && errors.As(err, &verr) && verr.Field == resource && errors.Is(err, ledger.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.As(err, &verr):
		return NewJSONResponse().Status(http.StatusUnprocessableEntity).Data(ErrorBody{
			Error: err.Error(), Type: log.ErrorTypeValidation, Field: verr.Field,
		})
	case errors.As(err, &cerr):
		return NewJSONResponse().Status(http.StatusConflict).Data(ErrorBody{
			Error: err.Error(), Type: log.ErrorTypeConsistency, ID: cerr.EntityID,
		})
	case errors.As(err, &perr):
		errType := log.ErrorTypePersistence
		if perr.Timeout {
			errType = log.ErrorTypeTimeout
		}
		return NewJSONResponse().Status(http.StatusServiceUnavailable).Header("Retry-After", "5").Data(ErrorBody{
			Error: err.Error(), Type: errType, Timeout: perr.Timeout,
		})
	default:
		return InternalServerError(err.Error())
	}
}
