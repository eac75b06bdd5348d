package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"financehub/internal/ledger"
	"financehub/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/goals/g1").
		Data(map[string]string{"id": "g1"}).
		Write(w)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/goals/g1", w.Header().Get("Location"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"g1"}`, w.Body.String())
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Data("ignored").Write(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Type"))
}

func TestLedgerError(t *testing.T) {
	missingGoal := &ledger.ValidationError{Field: "goal", Err: fmt.Errorf("goal %q: %w", "g1", ledger.ErrNotFound)}

	tests := []struct {
		name       string
		err        error
		resource   string
		wantStatus int
		wantType   string
	}{
		{"missing addressed record", missingGoal, "goal", http.StatusNotFound, log.ErrorTypeNotFound},
		{"missing referenced record", missingGoal, "transaction", http.StatusUnprocessableEntity, log.ErrorTypeValidation},
		{"missing on collection route", missingGoal, "", http.StatusUnprocessableEntity, log.ErrorTypeValidation},
		{"validation", &ledger.ValidationError{Field: "amount", Err: errors.New("must be positive")}, "", http.StatusUnprocessableEntity, log.ErrorTypeValidation},
		{"consistency", &ledger.ConsistencyError{EntityID: "t1", Rule: "transaction is deleted"}, "transaction", http.StatusConflict, log.ErrorTypeConsistency},
		{"persistence", &ledger.PersistenceError{Op: "commit", Err: errors.New("disk full")}, "", http.StatusServiceUnavailable, log.ErrorTypePersistence},
		{"timeout", &ledger.PersistenceError{Op: "commit", Timeout: true, Err: context.DeadlineExceeded}, "", http.StatusServiceUnavailable, log.ErrorTypeTimeout},
		{"wrapped consistency", fmt.Errorf("bulk: %w", &ledger.ConsistencyError{EntityID: "t2"}), "", http.StatusConflict, log.ErrorTypeConsistency},
		{"unknown", errors.New("boom"), "", http.StatusInternalServerError, log.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			LedgerError(tt.err, tt.resource).Write(w)

			require.Equal(t, tt.wantStatus, w.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Type)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestLedgerError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	LedgerError(&ledger.ValidationError{Field: "amount", Err: errors.New("bad")}, "").Write(w)
	assert.Contains(t, w.Body.String(), `"field":"amount"`)

	w = httptest.NewRecorder()
	LedgerError(&ledger.PersistenceError{Op: "commit", Timeout: true, Err: context.DeadlineExceeded}, "").Write(w)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"timeout":true`)
}
