package notify

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Publisher delivers sync events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// StateReader returns the last announced head of a repository working copy.
type StateReader interface {
	LastState(ctx context.Context, repository, path string) (*SyncState, error)
}

// NoopPublisher drops events (default when notify.nats_url is empty).
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, e Event) error {
	slog.Debug("Sync event (notifications disabled)", slog.String("type", string(e.Type)), logfields.Path(e.Path))
	return nil
}

func (NoopPublisher) Close() error { return nil }

// New returns a NATS publisher when configured, otherwise a NoopPublisher.
func New(ctx context.Context, cfg config.NotifyConfig) (Publisher, error) {
	if !cfg.Enabled() {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(ctx, cfg)
}
