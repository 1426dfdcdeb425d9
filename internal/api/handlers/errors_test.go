package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/prediction"
	"github.com/demodash/backend/internal/query"
)

func TestStatusFor(t *testing.T) {
	_, sexErr := prediction.EncodeSex("unknown")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"dataset", fmt.Errorf("%w: %w", query.ErrDataUnavailable, errors.New("missing")), http.StatusServiceUnavailable},
		{"range", &query.InvalidRangeError{Min: 5, Max: 1, Reason: "min exceeds max"}, http.StatusBadRequest},
		{"filter", &query.InvalidFilterError{Field: "capital", Value: "x", Err: errors.New("bad")}, http.StatusBadRequest},
		{"export", fmt.Errorf("%w: %q", query.ErrUnknownExportFormat, "pdf"), http.StatusBadRequest},
		{"model", fmt.Errorf("%w: %w", prediction.ErrModelUnavailable, errors.New("corrupt")), http.StatusServiceUnavailable},
		{"invalid input", sexErr, http.StatusUnprocessableEntity},
		{"classifier", &prediction.PredictionError{Reason: "expected 2 probabilities"}, http.StatusBadGateway},
		{"database", database.ErrDatabaseDisabled, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := StatusFor(tt.err)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, message)
		})
	}
}
