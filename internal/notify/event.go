package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened to the repository.
type EventType string

const (
	EventPulled     EventType = "pulled"      // fast-forwarded onto upstream
	EventPushed     EventType = "pushed"      // local changes delivered upstream
	EventCheckedOut EventType = "checked_out" // HEAD moved to another ref
	EventSyncFailed EventType = "sync_failed"
)

// Event is the JSON payload published for each sync outcome.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Repository string    `json:"repository"` // remote URL
	Path       string    `json:"path"`
	Branch     string    `json:"branch,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Commits    int       `json:"commits"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent returns an event with a fresh ID and the current time.
func NewEvent(t EventType, repository, path string) Event {
	return Event{ID: uuid.NewString(), Type: t, Repository: repository, Path: path, Timestamp: time.Now().UTC()}
}

// Encode marshals the event, filling ID and Timestamp when unset.
func (e Event) Encode() ([]byte, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return json.Marshal(e)
}

// SyncState is the last known head per repository kept in the KV bucket.
type SyncState struct {
	Head      string    `json:"head"`
	Branch    string    `json:"branch,omitempty"`
	EventID   string    `json:"event_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
