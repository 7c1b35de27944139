package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"accountability-service/internal/model"

	"github.com/stretchr/testify/assert"
)

var fast = Policy{Attempts: 4, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, "test", func() error {
		calls++
		if calls < 3 {
			return model.Transient(errors.New("connection reset"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, "test", func() error {
		calls++
		return model.ErrNotFound
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, "test", func() error {
		calls++
		return model.Transient(errors.New("still down"))
	})
	assert.True(t, model.IsTransient(err))
	assert.Equal(t, int(fast.Attempts), calls)
}
