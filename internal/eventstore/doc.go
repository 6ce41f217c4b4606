// Package eventstore records the lifecycle of every build as an append-only
// event log in SQLite and rebuilds a build history view from it.
package eventstore
