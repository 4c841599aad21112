package eventstore

// Sentinel errors for history store operations; callers match them with errors.Is.

import (
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.StoreError("could not open history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.StoreError("failed to initialize history schema").Build()

	// ErrAppendFailed indicates appending a record failed.
	ErrAppendFailed = errors.StoreError("failed to append sync record").Build()

	// ErrQueryFailed indicates querying records failed.
	ErrQueryFailed = errors.StoreError("failed to query sync records").Build()
)
