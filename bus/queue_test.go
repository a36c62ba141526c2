package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageQueue_FIFO(t *testing.T) {
	q := newMessageQueue[int]()

	for i := 0; i < 10; i++ {
		q.offer(i)
	}
	assert.Equal(t, 10, q.len())

	for i := 0; i < 10; i++ {
		got, ok := q.poll()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}

	_, ok := q.poll()
	assert.False(t, ok, "poll on empty queue should report nothing pending")
	assert.Equal(t, 0, q.len())
}

func TestMessageQueue_InterleavedOfferPoll(t *testing.T) {
	q := newMessageQueue[int]()
	next := 0

	for round := 0; round < 5000; round++ {
		q.offer(round * 2)
		q.offer(round*2 + 1)

		got, ok := q.poll()
		require.True(t, ok)
		require.Equal(t, next, got)
		next++
	}

	for q.len() > 0 {
		got, _ := q.poll()
		require.Equal(t, next, got)
		next++
	}
	assert.Equal(t, 10000, next)
}

func TestMessageQueue_SignalCoalesces(t *testing.T) {
	q := newMessageQueue[int]()

	q.offer(1)
	q.offer(2)
	q.signal()

	select {
	case <-q.ready():
	default:
		t.Fatal("expected a pending wake signal")
	}

	select {
	case <-q.ready():
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestMessageQueue_ConcurrentProducers(t *testing.T) {
	q := newMessageQueue[[2]int]()

	const producers, perProducer = 8, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.offer([2]int{p, i})
			}
		}(p)
	}
	wg.Wait()

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}

	count := 0
	for {
		item, ok := q.poll()
		if !ok {
			break
		}
		count++
		require.Greater(t, item[1], last[item[0]], "producer %d out of order", item[0])
		last[item[0]] = item[1]
	}
	assert.Equal(t, producers*perProducer, count)
}
