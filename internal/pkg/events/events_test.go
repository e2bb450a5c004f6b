package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToEmployeeOnly(t *testing.T) {
	hub := NewHub()
	mine, cleanupMine := hub.Subscribe("emp-1")
	defer cleanupMine()
	other, cleanupOther := hub.Subscribe("emp-2")
	defer cleanupOther()

	require.NoError(t, hub.Publish(context.Background(), Event{Type: AttendanceClockedIn, EmployeeID: "emp-1"}))

	select {
	case ev := <-mine:
		assert.Equal(t, AttendanceClockedIn, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case ev := <-other:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestHub_CleanupRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("emp-1")
	assert.Equal(t, 1, hub.TotalSubscribers())

	cleanup()
	cleanup()
	assert.Equal(t, 0, hub.SubscriberCount("emp-1"))

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, hub.Publish(context.Background(), Event{EmployeeID: "emp-1"}))
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cleanup := hub.Subscribe("emp-1")
	defer cleanup()

	done := make(chan struct{})
	go func() {
		for i := 0; i < hub.buffer*2; i++ {
			_ = hub.Publish(context.Background(), Event{EmployeeID: "emp-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

type fakeRedis struct {
	channel string
	message []byte
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher_Publish(t *testing.T) {
	client := &fakeRedis{}
	p := NewRedisPublisher(client, "hris")

	event := Event{Type: CorrectionApproved, EmployeeID: "emp-1", CorrectionID: "c-1"}
	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, "hris.correction.approved", client.channel)
	var decoded Event
	require.NoError(t, json.Unmarshal(client.message, &decoded))
	assert.Equal(t, "c-1", decoded.CorrectionID)
}

func TestRedisPublisher_Error(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	p := NewRedisPublisher(client, "")

	err := p.Publish(context.Background(), Event{Type: BreakEnded})
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, "attendance.attendance.break_ended", client.channel)
}

type failing struct{ err error }

func (f failing) Publish(context.Context, Event) error { return f.err }

func TestFanout_JoinsErrors(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("emp-1")
	defer cleanup()
	boom := errors.New("boom")

	err := Fanout{hub, failing{boom}}.Publish(context.Background(), Event{EmployeeID: "emp-1"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ch, 1)
}
