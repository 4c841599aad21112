package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docsync/internal/config"
	ferrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

const (
	publishTimeout = 5 * time.Second
	kvTimeout      = 2 * time.Second
)

// NATSPublisher publishes events on a JetStream subject and records the last
// synced head per repository in a JetStream KV bucket.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	subject string
}

// NewNATSPublisher connects to NATS, ensures a stream covering the subject
// and opens (or creates) the state bucket.
func NewNATSPublisher(ctx context.Context, cfg config.NotifyConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("docsync"))
	if err != nil {
		return nil, ferrors.NotifyError("failed to connect to NATS").WithCause(err).WithContext("url", cfg.NATSURL).Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, ferrors.NotifyError("failed to create JetStream context").WithCause(err).Build()
	}
	p := &NATSPublisher{conn: conn, js: js, subject: cfg.Subject}

	if err := p.ensureStream(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := p.initKVBucket(ctx, cfg.KVBucket); err != nil {
		conn.Close()
		return nil, err
	}
	slog.Info("NATS publisher initialized", logfields.URL(cfg.NATSURL), logfields.Subject(cfg.Subject), slog.String("kv_bucket", cfg.KVBucket))
	return p, nil
}

func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName(p.subject),
		Subjects: []string{p.subject},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return ferrors.NotifyError("failed to ensure event stream").WithCause(err).WithContext("subject", p.subject).Build()
	}
	return nil
}

// initKVBucket gets the state bucket or creates it.
func (p *NATSPublisher) initKVBucket(ctx context.Context, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := p.js.KeyValue(ctx, bucket)
	if err == nil {
		p.kv = kv
		return nil
	}
	kv, err = p.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Last synced head per repository",
		History:     1,
	})
	if err != nil {
		return ferrors.NotifyError("failed to create KV bucket").WithCause(err).WithContext("bucket", bucket).Build()
	}
	p.kv = kv
	slog.Info("Created KV bucket for sync state", slog.String("bucket", bucket))
	return nil
}

// Publish sends e and, when it carries a new head, stores it as the last sync state.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return ferrors.NotifyError("failed to marshal event").WithCause(err).Build()
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := p.js.Publish(pctx, p.subject, data); err != nil {
		return ferrors.NotifyError("failed to publish event").WithCause(err).WithContext("subject", p.subject).Build()
	}
	slog.Debug("Published sync event", slog.String("type", string(e.Type)), logfields.Path(e.Path), logfields.Subject(p.subject))

	if e.To == "" || e.Type == EventSyncFailed {
		return nil
	}
	state := SyncState{Head: e.To, Branch: e.Branch, EventID: e.ID, UpdatedAt: e.Timestamp}
	return p.putState(ctx, StateKey(e.Repository, e.Path), state)
}

// LastState returns the stored state for a repository, or nil when none exists.
func (p *NATSPublisher) LastState(ctx context.Context, repository, path string) (*SyncState, error) {
	ctx, cancel := context.WithTimeout(ctx, kvTimeout)
	defer cancel()
	entry, err := p.kv.Get(ctx, StateKey(repository, path))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.NotifyError("failed to read sync state").WithCause(err).Build()
	}
	var st SyncState
	if err := json.Unmarshal(entry.Value(), &st); err != nil {
		return nil, ferrors.NotifyError("failed to decode sync state").WithCause(err).Build()
	}
	return &st, nil
}

func (p *NATSPublisher) putState(ctx context.Context, key string, st SyncState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return ferrors.NotifyError("failed to marshal sync state").WithCause(err).Build()
	}
	ctx, cancel := context.WithTimeout(ctx, kvTimeout)
	defer cancel()
	if _, err := p.kv.Put(ctx, key, data); err != nil {
		return ferrors.NotifyError("failed to store sync state").WithCause(err).WithContext("key", key).Build()
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
	return nil
}

// StateKey derives a KV-safe key from repository URL and path.
// KV keys allow [-/_=.a-zA-Z0-9]; anything else becomes '_'.
func StateKey(repository, path string) string {
	src := repository
	if src == "" {
		src = path
	}
	src = strings.TrimSuffix(strings.TrimPrefix(src, "/"), "/")
	var b strings.Builder
	for _, r := range src {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', strings.ContainsRune("-_=/.", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	key := strings.Trim(strings.ReplaceAll(b.String(), "..", "_"), "./")
	if key == "" {
		return "default"
	}
	return key
}

// streamName derives a stream name from the subject; stream names may not contain '.', '*' or '>'.
func streamName(subject string) string {
	r := strings.NewReplacer(".", "_", "*", "ALL", ">", "REST", " ", "_")
	return strings.ToUpper(r.Replace(subject))
}
