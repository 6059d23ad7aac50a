package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllow(t *testing.T) {
	// 60 QPM = 每秒1个令牌，容量2
	tb := NewTokenBucket(60, 2)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	// 桶已空
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	// 极低速率，保证Wait会阻塞
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucketRefill(t *testing.T) {
	// 6000 QPM = 每秒100个令牌
	tb := NewTokenBucket(6000, 1)
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, tb.Allow())
}

func TestTokenBucketDefaultCapacity(t *testing.T) {
	tb := NewTokenBucket(10, 0)
	// 容量默认为QPM的一半
	assert.InDelta(t, 5.0, tb.capacity, 0.001)

	tb = NewTokenBucket(1, 0)
	assert.InDelta(t, 1.0, tb.capacity, 0.001)
}
