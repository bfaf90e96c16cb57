package reading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(q *Queue, n int) {
	for i := 0; i < n; i++ {
		q.Push(New(KindTemp, "w1", i, int64(i)))
	}
}

func TestQueueCapacityKeepsNewest(t *testing.T) {
	q := NewQueue(10)
	dropped := 0
	for i := 0; i < 25; i++ {
		dropped += q.Push(New(KindTemp, "w1", i, int64(i)))
		require.LessOrEqual(t, q.Len(), 10)
	}
	assert.Equal(t, 15, dropped)

	items := q.Items()
	require.Len(t, items, 10)
	assert.Equal(t, 15, items[0].Payload)
	assert.Equal(t, 24, items[9].Payload)
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0)
	assert.Equal(t, DefaultCapacity, q.Cap())
}

func TestQueueTrimFrontLeavesSuffix(t *testing.T) {
	q := NewQueue(10)
	fill(q, 5)
	before := q.Items()

	q.TrimFront(2)
	assert.Equal(t, before[2:], q.Items())

	q.TrimFront(0)
	assert.Equal(t, before[2:], q.Items())

	q.TrimFront(10)
	assert.Equal(t, 0, q.Len())
}

func TestQueueItemsIsCopy(t *testing.T) {
	q := NewQueue(3)
	fill(q, 2)
	items := q.Items()
	items[0] = New(KindStatus, "other", nil, 0)
	assert.Equal(t, KindTemp, q.Items()[0].Kind)
}

func TestReadingParamsOrder(t *testing.T) {
	r := New(KindHashrate, "pool.worker", []float64{1.5}, 1400000000)
	assert.Equal(t, []any{"pool.worker", "hashrate", []float64{1.5}, int64(1400000000)}, r.Params())
}
