package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/pkg/config"
)

type fakeConn struct {
	connected bool
	subject   string
	body      []byte
	err       error
	drained   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.body = data
	return f.err
}

func (f *fakeConn) IsConnected() bool { return f.connected }

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisherPublish(t *testing.T) {
	conn := &fakeConn{connected: true}
	pub := newNATSPublisher(conn, "timetable", nil)

	err := pub.Publish(context.Background(), Event{Type: "schedule.created", DepartmentID: "d-1", Payload: map[string]string{"id": "s-1"}})
	require.NoError(t, err)
	assert.Equal(t, "timetable.schedule.created", conn.subject)

	var decoded Event
	require.NoError(t, json.Unmarshal(conn.body, &decoded))
	assert.Equal(t, "d-1", decoded.DepartmentID)
	assert.False(t, decoded.OccurredAt.IsZero())

	require.NoError(t, pub.Close())
	assert.True(t, conn.drained)
}

func TestNATSPublisherErrors(t *testing.T) {
	pub := newNATSPublisher(&fakeConn{connected: false}, "", nil)
	assert.Error(t, pub.Publish(context.Background(), Event{Type: "schedule.deleted"}))

	failing := newNATSPublisher(&fakeConn{connected: true, err: errors.New("boom")}, "", nil)
	assert.ErrorContains(t, failing.Publish(context.Background(), Event{Type: "schedule.deleted"}), "boom")
	assert.Equal(t, "schedule.deleted", failing.Subject("schedule.deleted"))
}

func TestConnectWithoutURLIsNop(t *testing.T) {
	pub, err := Connect(config.EventsConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, pub)
	assert.NoError(t, pub.Publish(context.Background(), Event{Type: "x"}))
}
