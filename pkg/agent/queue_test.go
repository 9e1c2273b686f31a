package agent

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenoweb/steno/pkg/wire"
)

func queueEnvelope(i int) wire.Envelope {
	return wire.Envelope{
		Type:      wire.TypeEvent,
		SessionID: fmt.Sprintf("s-%d", i),
		Timestamp: int64(i),
	}
}

func TestRetryQueueEvictsOldestWhenFull(t *testing.T) {
	q := NewRetryQueue(3)
	for i := 0; i < 5; i++ {
		q.Push(queueEnvelope(i))
	}

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, int64(2), q.Evicted())

	out := q.Drain(10, time.Hour)
	require.Len(t, out, 3)
	assert.Equal(t, "s-2", out[0].env.SessionID)
	assert.Equal(t, "s-4", out[2].env.SessionID)
}

func TestRetryQueueZeroCapacityNeverPanics(t *testing.T) {
	q := NewRetryQueue(0)
	q.Push(queueEnvelope(0))
	q.Push(queueEnvelope(1))

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, int64(2), q.Evicted())
	assert.Empty(t, q.Drain(5, time.Minute))
}

func TestRetryQueueDrainRespectsBatchSize(t *testing.T) {
	q := NewRetryQueue(50)
	for i := 0; i < 12; i++ {
		q.Push(queueEnvelope(i))
	}

	first := q.Drain(5, time.Hour)
	require.Len(t, first, 5)
	assert.Equal(t, "s-0", first[0].env.SessionID)
	assert.Equal(t, 7, q.Len())

	second := q.Drain(5, time.Hour)
	require.Len(t, second, 5)
	assert.Equal(t, "s-5", second[0].env.SessionID)
	assert.Equal(t, 2, q.Len())
}

func TestRetryQueueDiscardsExpired(t *testing.T) {
	q := NewRetryQueue(50)
	q.Push(queueEnvelope(0))
	q.Push(queueEnvelope(1))

	time.Sleep(20 * time.Millisecond)
	q.Push(queueEnvelope(2))

	out := q.Drain(10, 10*time.Millisecond)
	require.Len(t, out, 1)
	assert.Equal(t, "s-2", out[0].env.SessionID)
	assert.Equal(t, int64(2), q.Evicted())
}

func TestRetryQueueRestoreKeepsEnqueueTime(t *testing.T) {
	q := NewRetryQueue(50)
	q.Push(queueEnvelope(0))

	time.Sleep(20 * time.Millisecond)

	batch := q.Drain(5, time.Hour)
	require.Len(t, batch, 1)
	q.Restore(batch)
	assert.Equal(t, 1, q.Len())

	// The entry still carries its original enqueue time, so an age cap
	// shorter than its total queued life expires it.
	out := q.Drain(5, 10*time.Millisecond)
	assert.Empty(t, out)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, int64(1), q.Evicted())
}

func TestRetryQueueRestoreKeepsOrder(t *testing.T) {
	q := NewRetryQueue(50)
	for i := 0; i < 4; i++ {
		q.Push(queueEnvelope(i))
	}

	batch := q.Drain(2, time.Hour)
	require.Len(t, batch, 2)
	q.Restore(batch)

	out := q.Drain(10, time.Hour)
	require.Len(t, out, 4)
	assert.Equal(t, "s-0", out[0].env.SessionID)
	assert.Equal(t, "s-3", out[3].env.SessionID)
}

func TestRetryQueueRestoreRespectsCapacity(t *testing.T) {
	q := NewRetryQueue(3)
	for i := 0; i < 3; i++ {
		q.Push(queueEnvelope(i))
	}

	batch := q.Drain(2, time.Hour)
	q.Push(queueEnvelope(3))
	q.Push(queueEnvelope(4))
	q.Restore(batch)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, int64(2), q.Evicted())

	out := q.Drain(10, time.Hour)
	require.Len(t, out, 3)
	assert.Equal(t, "s-2", out[0].env.SessionID)
	assert.Equal(t, "s-4", out[2].env.SessionID)
}

func TestRetryQueueDrainEmpty(t *testing.T) {
	q := NewRetryQueue(5)
	assert.Empty(t, q.Drain(5, time.Minute))
}
