package services

import (
	"io"
)

// ImageStore persists uploaded images. SaveTemp returns a cleanup that must run on every exit path.
type ImageStore interface {
	Save(r io.Reader, filename string) (string, error)
	SaveTemp(r io.Reader, filename string) (string, func(), error)
	Remove(path string) error
}

// EventPublisher pushes domain events to connected operator dashboards
type EventPublisher interface {
	Publish(eventType string, data map[string]interface{})
}

const (
	EventRecordCreated   = "record:created"
	EventRecordUpdated   = "record:updated"
	EventRecordDeleted   = "record:deleted"
	EventSearchCompleted = "search:completed"
	EventSignatureStored = "record:signature"
)

type noopPublisher struct{}

func (noopPublisher) Publish(string, map[string]interface{}) {}

// NoopPublisher discards every event
var NoopPublisher EventPublisher = noopPublisher{}
