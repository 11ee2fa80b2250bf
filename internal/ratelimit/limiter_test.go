package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBurstThenWaits(t *testing.T) {
	l := New("doubanio", 1)
	assert.Equal(t, "doubanio", l.Name())

	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doubanio")
}

func TestNilLimiterNeverBlocks(t *testing.T) {
	var l *Limiter
	require.NoError(t, l.Wait(context.Background()))
	assert.Equal(t, "", l.Name())
}
