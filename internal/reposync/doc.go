// Package reposync runs sync operations against the configured working copies.
// The CLI and the watch daemon both route through Service so every run is
// recorded in history, reported to metrics and announced on the event bus the
// same way.
package reposync
