package presence_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/database"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/mqtt"
	"github.com/mrweisheng/wscontroller/internal/journal"
	"github.com/mrweisheng/wscontroller/internal/presence"
	"github.com/mrweisheng/wscontroller/internal/registry"
	"github.com/mrweisheng/wscontroller/migrations"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte, _ byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, payload: payload, retained: retained})
	return nil
}

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMQTTSink_Connected(t *testing.T) {
	pub := &fakePublisher{}
	sink := presence.NewMQTTSink(pub, mqtt.Topics{Prefix: "hub"}, 1)

	err := sink.Deliver(context.Background(), registry.Event{
		Kind: registry.EventConnected, DeviceID: "tmp", Online: 1, At: at,
	})
	require.NoError(t, err)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "hub/presence/tmp", pub.msgs[0].topic)
	assert.True(t, pub.msgs[0].retained)

	var state presence.State
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &state))
	assert.True(t, state.Online)
	assert.Equal(t, at.UnixMilli(), state.At)

	assert.Equal(t, "hub/events/connection", pub.msgs[1].topic)
	assert.False(t, pub.msgs[1].retained)
}

func TestMQTTSink_RenameClearsPreviousID(t *testing.T) {
	pub := &fakePublisher{}
	sink := presence.NewMQTTSink(pub, mqtt.Topics{Prefix: "hub"}, 0)

	require.NoError(t, sink.Deliver(context.Background(), registry.Event{
		Kind: registry.EventRenamed, DeviceID: "042", PrevID: "tmp", At: at,
	}))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "hub/presence/tmp", pub.msgs[0].topic)
	assert.Empty(t, pub.msgs[0].payload)
	assert.True(t, pub.msgs[0].retained)
	assert.Equal(t, "hub/presence/042", pub.msgs[1].topic)

	var ev presence.EventPayload
	require.NoError(t, json.Unmarshal(pub.msgs[2].payload, &ev))
	assert.Equal(t, "renamed", ev.Kind)
	assert.Equal(t, "tmp", ev.PrevID)
}

func TestMQTTSink_RemovedAndReplaced(t *testing.T) {
	pub := &fakePublisher{}
	sink := presence.NewMQTTSink(pub, mqtt.Topics{}, 0)

	require.NoError(t, sink.Deliver(context.Background(), registry.Event{
		Kind: registry.EventRemoved, DeviceID: "042", Reason: registry.ReasonProbeUnanswered, At: at,
	}))
	require.Len(t, pub.msgs, 2)

	var state presence.State
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &state))
	assert.False(t, state.Online)
	assert.Equal(t, "probe_unanswered", state.Reason)
	assert.Equal(t, "wscontroller/presence/042", pub.msgs[0].topic)

	require.NoError(t, sink.Deliver(context.Background(), registry.Event{
		Kind: registry.EventReplaced, DeviceID: "042", Reason: registry.ReasonReplaced, At: at,
	}))
	require.Len(t, pub.msgs, 3, "replacement only reaches the events topic")
	assert.Equal(t, "wscontroller/events/connection", pub.msgs[2].topic)
}

func TestMQTTSink_PublishError(t *testing.T) {
	boom := errors.New("not connected")
	sink := presence.NewMQTTSink(&fakePublisher{err: boom}, mqtt.Topics{}, 0)

	err := sink.Deliver(context.Background(), registry.Event{Kind: registry.EventConnected, DeviceID: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestJournalSink(t *testing.T) {
	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(context.Background(), migrations.FS))

	repo := journal.NewSQLiteRepository(db.DB)
	sink := presence.NewJournalSink(repo)

	require.NoError(t, sink.Deliver(context.Background(), registry.Event{
		Kind: registry.EventRenamed, DeviceID: "042", PrevID: "tmp", Remote: "10.0.0.1:5000", Online: 1, At: at,
	}))

	got, err := repo.List(context.Background(), journal.Filter{DeviceID: "tmp"})
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "renamed", got.Entries[0].Kind)
	assert.Equal(t, "042", got.Entries[0].DeviceID)
	assert.Equal(t, "10.0.0.1:5000", got.Entries[0].RemoteAddr)
	assert.True(t, got.Entries[0].OccurredAt.Equal(at))
}
