// Package eventbus publishes build lifecycle events to NATS so other systems
// can react to new builds of the site.
package eventbus

import (
	"context"
	"encoding/json"
	"time"
)

// Kind names a build lifecycle event. It is appended to the configured
// subject, giving e.g. "docsite.builds.completed".
type Kind string

const (
	KindStarted    Kind = "started"
	KindPageFailed Kind = "page_failed"
	KindCompleted  Kind = "completed"
)

// Message is the JSON document published for every event.
type Message struct {
	Kind      Kind      `json:"kind"`
	BuildID   string    `json:"build_id"`
	Timestamp time.Time `json:"timestamp"`
	SourceDir string    `json:"source_dir,omitempty"`
	OutputDir string    `json:"output_dir,omitempty"`

	Page  string `json:"page,omitempty"`
	Error string `json:"error,omitempty"`

	Outcome     string `json:"outcome,omitempty"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
	Discovered  int    `json:"discovered,omitempty"`
	Rendered    int    `json:"rendered,omitempty"`
	Skipped     int    `json:"skipped,omitempty"`
	Warnings    int    `json:"warnings,omitempty"`
	BrokenLinks int    `json:"broken_links,omitempty"`
	DocsHash    string `json:"docs_hash,omitempty"`
}

// Encode returns the wire form of m.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Publisher delivers messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// NoopPublisher discards every message.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Message) error { return nil }
func (NoopPublisher) Close() error                           { return nil }
