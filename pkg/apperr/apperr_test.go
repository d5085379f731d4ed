package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPersistenceKeepsCause(t *testing.T) {
	err := Persistence(CodeStorage, gorm.ErrRecordNotFound)
	require.Error(t, err)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	require.Equal(t, KindPersistence, KindOf(err))
}

func TestPersistencePassesAppErrorThrough(t *testing.T) {
	orig := Conflict(CodeAlreadyProcessed, "already processed")
	err := Persistence(CodeStorage, fmt.Errorf("tx: %w", orig))
	require.Equal(t, KindConflict, KindOf(err))
	require.Nil(t, Persistence(CodeStorage, nil))
}

func TestRateLimitedMeta(t *testing.T) {
	err := RateLimited(CodeCooldown, "wait").With("retry_after_seconds", 12)
	require.Equal(t, KindRateLimited, err.Kind)
	require.Equal(t, 12, err.Meta["retry_after_seconds"])
	require.Contains(t, err.Error(), CodeCooldown)
}

func TestIsTimeout(t *testing.T) {
	err := Persistence(CodeStorageTimeout, fmt.Errorf("commit: %w", context.DeadlineExceeded))
	require.True(t, IsTimeout(err))
	require.False(t, IsTimeout(errors.New("boom")))
	require.Equal(t, KindPersistence, KindOf(errors.New("boom")))
}
