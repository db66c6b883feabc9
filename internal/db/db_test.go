package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		code       string
		contention bool
		retryable  bool
	}{
		{CodeExclusionViolation, true, false},
		{CodeSerializationFailure, false, true},
		{CodeDeadlockDetected, false, true},
		{CodeUniqueViolation, false, false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: tt.code})
		assert.Equal(t, tt.code, Code(err))
		assert.Equal(t, tt.contention, IsContention(err), tt.code)
		assert.Equal(t, tt.retryable, IsRetryable(err), tt.code)
	}

	assert.Equal(t, "", Code(context.Canceled))
	assert.False(t, IsRetryable(nil))
}

func TestWrapNotFound(t *testing.T) {
	assert.Nil(t, WrapNotFound(nil))
	assert.Equal(t, ErrNotFound, WrapNotFound(pgx.ErrNoRows))
	assert.True(t, IsNotFound(WrapNotFound(pgx.ErrNoRows)))
	assert.False(t, IsNotFound(WrapNotFound(context.Canceled)))
}
