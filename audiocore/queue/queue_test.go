package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFODropOldestOverflow(t *testing.T) {
	q := NewFIFO[int](4)
	for i := 1; i <= 10; i++ {
		q.TryEnqueue(i)
	}

	var drained []int
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		drained = append(drained, v)
	}

	assert.Equal(t, []int{7, 8, 9, 10}, drained)
	assert.Equal(t, int64(6), q.Stats().Dropped)
}

func TestFIFOContiguousSuffixInvariant(t *testing.T) {
	capacities := []int{1, 3, 5, 8}
	counts := []int{0, 1, 4, 5, 20}

	for _, k := range capacities {
		for _, n := range counts {
			q := NewFIFO[int](k)
			for i := 1; i <= n; i++ {
				q.TryEnqueue(i)
			}
			want := min(n, k)
			assert.Equal(t, want, q.Count(), "capacity=%d n=%d", k, n)

			var got []int
			for {
				v, ok := q.Dequeue()
				if !ok {
					break
				}
				got = append(got, v)
			}
			for i, v := range got {
				expected := n - len(got) + 1 + i
				assert.Equal(t, expected, v, "capacity=%d n=%d", k, n)
			}
			wantDropped := int64(0)
			if n > k {
				wantDropped = int64(n - k)
			}
			assert.Equal(t, wantDropped, q.Stats().Dropped)
		}
	}
}

func TestFIFOResetStatsPreservesSize(t *testing.T) {
	q := NewFIFO[int](4)
	q.TryEnqueue(1)
	q.TryEnqueue(2)
	q.ResetStats()
	assert.Equal(t, 2, q.Count())
	assert.Equal(t, Stats{}, q.Stats())
}

func TestPriorityQueueOrdering(t *testing.T) {
	q := NewPriorityQueue[string](10)
	q.TryEnqueue("low1", PriorityLow)
	q.TryEnqueue("high1", PriorityHigh)
	q.TryEnqueue("low2", PriorityLow)
	q.TryEnqueue("critical1", PriorityCritical)
	q.TryEnqueue("high2", PriorityHigh)

	var order []string
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		order = append(order, v)
	}
	assert.Equal(t, []string{"critical1", "high1", "high2", "low1", "low2"}, order)
}

func TestPriorityQueueEvictsLowestOldestOnOverflow(t *testing.T) {
	q := NewPriorityQueue[string](3)
	q.TryEnqueue("low1", PriorityLow)
	q.TryEnqueue("low2", PriorityLow)
	q.TryEnqueue("high1", PriorityHigh)

	dropped := q.TryEnqueue("high2", PriorityHigh)
	assert.True(t, dropped)

	var order []string
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		order = append(order, v)
	}
	// low1 (oldest, lowest priority) was evicted to make room.
	assert.Equal(t, []string{"high1", "high2", "low2"}, order)
}

func TestRingQueueRejectsOnFull(t *testing.T) {
	q := NewRingQueue[int](4) // already a power of two
	require.Equal(t, 4, q.capacity)

	for i := 0; i < 4; i++ {
		assert.True(t, q.TryEnqueue(i))
	}
	assert.False(t, q.TryEnqueue(99))
	assert.True(t, q.IsFull())
}

func TestRingQueueCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	q := NewRingQueue[int](5)
	assert.Equal(t, 8, q.capacity)
}

func TestRingQueuePeekDoesNotConsume(t *testing.T) {
	q := NewRingQueue[int](4)
	q.TryEnqueue(42)

	v, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, q.Count())

	v, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 0, q.Count())
}
