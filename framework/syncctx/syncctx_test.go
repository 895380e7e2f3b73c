package syncctx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/test-engine/framework/helpers"
)

func startLoop(t *testing.T) *EventLoop {
	loop := NewEventLoop()
	go loop.Run(context.Background())
	t.Cleanup(loop.Close)
	return loop
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	loop := NewEventLoop()
	d, ok := FromContext(WithDispatcher(context.Background(), loop))
	assert.True(t, ok)
	assert.Same(t, loop, d)

	_, ok = FromContext(WithDispatcher(context.Background(), nil))
	assert.False(t, ok)
}

func TestSendRunsOnLoopAndWaits(t *testing.T) {
	loop := startLoop(t)
	ran := false
	require.NoError(t, loop.Send(func() { ran = true }))
	assert.True(t, ran)
}

func TestSendPreservesOrderFromOneSender(t *testing.T) {
	loop := startLoop(t)
	var seen []int
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, loop.Send(func() { seen = append(seen, i) }))
	}
	require.Len(t, seen, 50)
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestSendFromManyGoroutinesIsSerialized(t *testing.T) {
	loop := startLoop(t)
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = loop.Send(func() { count++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, count)
}

func TestSendAfterClose(t *testing.T) {
	loop := NewEventLoop()
	go loop.Run(context.Background())
	loop.Close()
	helpers.RequireValue(t, loop.Stopped(), time.Second)
	assert.Equal(t, ErrClosed, loop.Send(func() {}))
}
