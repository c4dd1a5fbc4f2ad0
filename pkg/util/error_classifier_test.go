package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json syntax", json.Unmarshal([]byte("{"), &struct{}{}), false, "json_decode_error"},
		{"row not found", pgx.ErrNoRows, false, "row_not_found"},
		{"unique violation", errors.New(`duplicate key value violates unique constraint "planning_votes_idea_id_participant_id_key" (SQLSTATE 23505)`), false, "duplicate_key"},
		{"db connection", errors.New("failed to connect: connection refused"), true, "db_connection_error"},
		{"timeout string", errors.New("i/o timeout"), true, "db_connection_error"},
		{"context deadline", context.DeadlineExceeded, true, "timeout"},
		{"context canceled", context.Canceled, false, "context_canceled"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.errType, errType)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(errors.New("duplicate key value violates unique constraint")))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert failed: %w", errors.New("ERROR: ... (SQLSTATE 23505)"))))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 5, true))
	assert.True(t, ShouldRetry(5, 5, true))
	assert.False(t, ShouldRetry(6, 5, true))
	assert.False(t, ShouldRetry(1, 5, false))
}
