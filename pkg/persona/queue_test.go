package persona_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/pkg/persona"
)

func TestQueueFIFO(t *testing.T) {
	q := persona.NewQueue[int]()
	for i := 1; i <= 3; i++ {
		q.Put(i)
	}
	assert.Equal(t, 3, q.Len())

	v, ok := q.TryGet()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []int{2, 3}, q.Drain())
	assert.Zero(t, q.Len())

	_, ok = q.TryGet()
	assert.False(t, ok)
}

func TestQueueDrainEmpty(t *testing.T) {
	q := persona.NewQueue[string]()
	out := q.Drain()
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestQueuePopN(t *testing.T) {
	q := persona.NewQueue[int]()
	for i := 0; i < 7; i++ {
		q.Put(i)
	}

	items, ok := q.PopN(5)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, items)
	assert.Equal(t, 2, q.Len())

	items, ok = q.PopN(5)
	assert.False(t, ok)
	assert.Nil(t, items)
	assert.Equal(t, 2, q.Len())

	_, ok = q.PopN(0)
	assert.False(t, ok)
}

func TestQueueGetBlocksUntilPut(t *testing.T) {
	q := persona.NewQueue[string]()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan string)
	go func() {
		v, err := q.Get(ctx)
		assert.NoError(t, err)
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	q.Put("hello")
	assert.Equal(t, "hello", <-done)
}

func TestQueueGetCancelled(t *testing.T) {
	q := persona.NewQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueConcurrentConsumers(t *testing.T) {
	q := persona.NewQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	const n = 200
	var (
		mu   sync.Mutex
		seen = map[int]bool{}
		wg   sync.WaitGroup
	)
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, err := q.Get(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[v] = true
				done := len(seen) == n
				mu.Unlock()
				if done {
					cancel()
					return
				}
			}
		}()
	}
	for i := 0; i < n; i++ {
		q.Put(i)
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Zero(t, q.Len())
}
