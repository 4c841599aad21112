// Package versioning evaluates the project version script of the synced
// source tree and exposes the result as an explicit record that callers hand
// to documentation generators through their process environment.
package versioning
