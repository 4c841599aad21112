// Package notify publishes sync events so other services (site builders,
// chat bots) can react when the source repository moves.
package notify
