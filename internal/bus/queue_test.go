package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxtrader/internal/schema"
)

func tick(n int) schema.Tick {
	return schema.Tick{Instrument: "EURUSD", Time: time.Unix(int64(n), 0)}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	for n := range 3 {
		require.NoError(t, q.TryPublish(tick(n)))
	}
	assert.Equal(t, 3, q.Len())

	for n := range 3 {
		e, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, tick(n), e)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.TryPublish(tick(0)))
	assert.ErrorIs(t, q.TryPublish(tick(1)), ErrQueueFull)
	assert.Equal(t, 1, q.Cap())
	assert.Equal(t, 1, NewQueue(0).Cap())
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.TryPublish(tick(0)))
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.ErrorIs(t, q.TryPublish(tick(1)), ErrQueueClosed)
	assert.ErrorIs(t, q.Publish(t.Context(), tick(1)), ErrQueueClosed)

	e, err := q.Pop(t.Context())
	require.NoError(t, err)
	assert.Equal(t, tick(0), e)

	_, err = q.Pop(t.Context())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueuePopContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueuePublishBlocksUntilPopped(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.TryPublish(tick(0)))

	published := make(chan error, 1)
	go func() {
		published <- q.Publish(t.Context(), tick(1))
	}()

	e, err := q.Pop(t.Context())
	require.NoError(t, err)
	assert.Equal(t, tick(0), e)
	require.NoError(t, <-published)

	e, err = q.Pop(t.Context())
	require.NoError(t, err)
	assert.Equal(t, tick(1), e)
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers, perProducer = 4, 250
	q := NewQueue(16)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range perProducer {
				_ = q.Publish(t.Context(), schema.Signal{Instrument: "EURUSD", Time: time.Unix(int64(p), int64(n))})
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	last := make(map[int64]int64, producers)
	count := 0
	for {
		e, err := q.Pop(t.Context())
		if err != nil {
			require.ErrorIs(t, err, ErrQueueClosed)
			break
		}
		s := e.(schema.Signal)
		p, n := s.Time.Unix(), int64(s.Time.Nanosecond())
		if prev, ok := last[p]; ok {
			assert.Greater(t, n, prev, "producer %d out of order", p)
		}
		last[p] = n
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}
