// Package errors provides the classified error primitives used across docsync.
//
// A ClassifiedError carries a category, a severity and a retry hint so the
// CLI can choose exit codes and log levels without parsing messages. Typed
// errors from other packages (for example the git sync errors) participate by
// implementing Categorized.
//
//	err := errors.ConfigError("source.url is required").
//		WithContext("file", path).
//		Build()
package errors
