package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/config"
	ferrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

func runJetStream(t *testing.T) *server.Server {
	t.Helper()
	opts := natstest.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	s := natstest.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s
}

func newTestPublisher(t *testing.T, url string) *NATSPublisher {
	t.Helper()
	p, err := NewNATSPublisher(context.Background(), config.NotifyConfig{
		NATSURL:  url,
		Subject:  "docsync.events",
		KVBucket: "docsync-state",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNATSPublisherStoresLastState(t *testing.T) {
	s := runJetStream(t)
	ctx := context.Background()
	p := newTestPublisher(t, s.ClientURL())

	st, err := p.LastState(ctx, "https://example.com/docs.git", "/srv/docs")
	require.NoError(t, err)
	assert.Nil(t, st)

	e := NewEvent(EventPulled, "https://example.com/docs.git", "/srv/docs")
	e.Branch, e.From, e.To, e.Commits = "main", "aaa", "bbb", 2
	require.NoError(t, p.Publish(ctx, e))

	st, err = p.LastState(ctx, "https://example.com/docs.git", "/srv/docs")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "bbb", st.Head)
	assert.Equal(t, "main", st.Branch)
	assert.Equal(t, e.ID, st.EventID)
	assert.True(t, e.Timestamp.Equal(st.UpdatedAt))

	stream, err := p.js.Stream(ctx, streamName("docsync.events"))
	require.NoError(t, err)
	msg, err := stream.GetLastMsgForSubject(ctx, "docsync.events")
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, EventPulled, got.Type)
}

func TestNATSPublisherFailedSyncKeepsState(t *testing.T) {
	s := runJetStream(t)
	ctx := context.Background()
	p := newTestPublisher(t, s.ClientURL())

	ok := NewEvent(EventPushed, "https://example.com/docs.git", "")
	ok.To = "c1"
	require.NoError(t, p.Publish(ctx, ok))

	failed := NewEvent(EventSyncFailed, "https://example.com/docs.git", "")
	failed.To, failed.Error = "c2", "rejected"
	require.NoError(t, p.Publish(ctx, failed))

	// A second publisher reuses the existing bucket.
	other := newTestPublisher(t, s.ClientURL())
	st, err := other.LastState(ctx, "https://example.com/docs.git", "")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "c1", st.Head)
	assert.Equal(t, ok.ID, st.EventID)
}

func TestNewNATSPublisherConnectFailure(t *testing.T) {
	s := runJetStream(t)
	url := s.ClientURL()
	s.Shutdown()

	_, err := NewNATSPublisher(context.Background(), config.NotifyConfig{
		NATSURL:  url,
		Subject:  "docsync.events",
		KVBucket: "docsync-state",
	})
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryNotify, ferrors.GetCategory(err))
}
