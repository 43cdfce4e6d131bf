package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "unauthorized", err: fmt.Errorf("%w: missing token", ErrUnauthorized), want: http.StatusUnauthorized},
		{name: "forbidden", err: ErrForbidden, want: http.StatusForbidden},
		{name: "not found", err: fmt.Errorf("%w: student s1", ErrNotFound), want: http.StatusNotFound},
		{name: "invalid state", err: ErrInvalidState, want: http.StatusBadRequest},
		{name: "duplicate", err: ErrDuplicate, want: http.StatusConflict},
		{name: "storage", err: fmt.Errorf("%w: dial tcp", ErrStorage), want: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestDuplicateIsConflict(t *testing.T) {
	wrapped := fmt.Errorf("insert record: %w", ErrDuplicate)
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.ErrorIs(t, wrapped, ErrDuplicate)
	assert.NotErrorIs(t, ErrConflict, ErrDuplicate)
}

func TestMessageHidesInternal(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("pq: password authentication failed")))
	assert.Equal(t, "not found: session x", Message(fmt.Errorf("%w: session x", ErrNotFound)))

	driver := fmt.Errorf("%w: %v", ErrStorage, errors.New(`failed to connect to host=db user=weekendschool database=weekendschool: dial tcp 10.0.0.7:5432: connect: connection refused`))
	assert.Equal(t, "storage unavailable", Message(driver))
	assert.NotContains(t, Message(driver), "10.0.0.7")
}
