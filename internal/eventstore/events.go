package eventstore

import (
	"encoding/json"
	"time"
)

// Event type names as stored in the events table.
const (
	TypeBuildStarted   = "BuildStarted"
	TypePageRendered   = "PageRendered"
	TypePageFailed     = "PageFailed"
	TypeBuildCompleted = "BuildCompleted"
)

// Event is one stored fact about a build.
type Event interface {
	ID() int64
	BuildID() string
	Type() string
	Timestamp() time.Time
	Payload() []byte
	Metadata() map[string]string
}

// BaseEvent provides a default implementation of Event. Events read back
// from a store are always BaseEvents.
type BaseEvent struct {
	EventID        int64
	EventBuildID   string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
	EventMetadata  map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.EventID }
func (e *BaseEvent) BuildID() string             { return e.EventBuildID }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }

// Decode unmarshals the payload of e into v.
func Decode(e Event, v any) error {
	return json.Unmarshal(e.Payload(), v)
}

func newEvent(buildID, eventType string, when time.Time, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, wrap(ErrMarshalPayloadFailed, err)
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: when,
		EventPayload:   data,
	}, nil
}

// BuildStartedPayload describes the inputs of a build.
type BuildStartedPayload struct {
	SourceDir string `json:"source_dir"`
	OutputDir string `json:"output_dir"`
	Version   string `json:"version,omitempty"`
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, when time.Time, p BuildStartedPayload) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildStarted, when, p)
}

// PagePayload describes one processed document.
type PagePayload struct {
	Source      string `json:"source"`
	Output      string `json:"output,omitempty"`
	Title       string `json:"title,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewPageRendered creates a PageRendered event.
func NewPageRendered(buildID string, when time.Time, p PagePayload) (*BaseEvent, error) {
	return newEvent(buildID, TypePageRendered, when, p)
}

// NewPageFailed creates a PageFailed event for a skipped or fatal document.
func NewPageFailed(buildID string, when time.Time, p PagePayload) (*BaseEvent, error) {
	return newEvent(buildID, TypePageFailed, when, p)
}

// BuildCompletedPayload summarizes a finished build.
type BuildCompletedPayload struct {
	Outcome     string `json:"outcome"`
	DurationMS  int64  `json:"duration_ms"`
	Discovered  int    `json:"discovered"`
	Rendered    int    `json:"rendered"`
	Skipped     int    `json:"skipped"`
	Warnings    int    `json:"warnings"`
	BrokenLinks int    `json:"broken_links"`
	DocsHash    string `json:"docs_hash,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewBuildCompleted creates a BuildCompleted event. It is written for every
// outcome, including failed and canceled builds.
func NewBuildCompleted(buildID string, when time.Time, p BuildCompletedPayload) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildCompleted, when, p)
}
