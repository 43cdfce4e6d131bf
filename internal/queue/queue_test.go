package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() AttendanceEvent {
	return AttendanceEvent{
		RecordID:  "r1",
		StudentID: "s1",
		SessionID: "sat-a",
		CourseID:  "c1",
		Date:      "2026-10-10",
		Status:    "PRESENT",
		At:        time.Date(2026, 10, 10, 9, 5, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewAttendanceMessage(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	got, err := DecodeAttendance(receive(t, ch))
	require.NoError(t, err)
	assert.Equal(t, sampleEvent(), got)
}

func TestRedisQueueRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "test:attendance")
	msg, err := NewAttendanceMessage(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	got := receive(t, ch)
	assert.Equal(t, TypeAttendanceRecorded, got.Type)
	evt, err := DecodeAttendance(got)
	require.NoError(t, err)
	assert.Equal(t, "sat-a", evt.SessionID)
}

func TestDecodeAttendanceRejectsOtherTypes(t *testing.T) {
	_, err := DecodeAttendance(Message{Type: "checkin", Body: []byte(`"x"`)})
	assert.Error(t, err)
}
