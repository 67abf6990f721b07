package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/phf/queue"
)

func TestQueue_FIFO(t *testing.T) {
	q := queue.New[int]()
	for i := range 5 {
		q.Put(i)
	}

	require.Equal(t, 5, q.Len())

	ctx := context.Background()
	for i := range 5 {
		got, err := q.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_GetBlocksUntilPut(t *testing.T) {
	q := queue.New[string]()

	result := make(chan string, 1)
	go func() {
		item, err := q.Get(context.Background())
		if err == nil {
			result <- item
		}
	}()

	select {
	case <-result:
		t.Fatal("Get returned before any item was put")
	case <-time.After(50 * time.Millisecond):
	}

	q.Put("hello")

	select {
	case got := <-result:
		assert.Equal(t, "hello", got)
	case <-time.After(time.Second):
		t.Fatal("Get did not wake after Put")
	}
}

func TestQueue_GetCancelled(t *testing.T) {
	q := queue.New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Get(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	q.Put(7)
	got, err := q.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestQueue_TryGet(t *testing.T) {
	q := queue.New[int]()

	_, ok := q.TryGet()
	assert.False(t, ok)

	q.Put(1)
	got, ok := q.TryGet()
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestQueue_Drain(t *testing.T) {
	q := queue.New[int]()
	q.Put(1)
	q.Put(2)
	q.Put(3)

	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_ManyProducersManyConsumers(t *testing.T) {
	const producers, perProducer = 4, 250
	q := queue.New[int]()
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range perProducer {
				q.Put(base*perProducer + i)
			}
		}(p)
	}

	seen := make(chan int, producers*perProducer)
	var consumers sync.WaitGroup
	for range 3 {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				cctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
				item, err := q.Get(cctx)
				cancel()
				if err != nil {
					return
				}
				seen <- item
			}
		}()
	}

	wg.Wait()
	consumers.Wait()
	close(seen)

	unique := make(map[int]bool)
	for item := range seen {
		unique[item] = true
	}
	assert.Len(t, unique, producers*perProducer)
}
