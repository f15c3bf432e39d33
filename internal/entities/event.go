package entities

import (
	"encoding/json"
	"time"
)

// EventType enumerates tracked webhook event kinds.
type EventType string

const (
	// EventPush is a branch push.
	EventPush EventType = "PUSH"
	// EventPullRequest is a pull request activity.
	EventPullRequest EventType = "PULL_REQUEST"
	// EventInstallation is an App installation change.
	EventInstallation EventType = "INSTALLATION"
)

// Event is one ingested webhook delivery that warranted tracking.
// Immutable after creation except Processed.
type Event struct {
	ID              string
	RepositoryID    string
	Type            EventType
	ExternalEventID *string
	DeliveryID      *string
	Payload         json.RawMessage
	Processed       bool
	CreatedAt       time.Time
}

// PushPayload is the subset of a push delivery persisted with the event.
type PushPayload struct {
	Ref          *string `json:"ref"`
	After        *string `json:"after"`
	PusherName   *string `json:"pusherName"`
	RepoFullName *string `json:"repoFullName"`
}

// PushTrigger carries everything the ingestion flow needs from a push delivery.
type PushTrigger struct {
	DeliveryID     string
	ExternalRepoID int64
	HeadSHA        string
	Ref            string
	PusherName     string
	RepoFullName   string
	Deleted        bool
}

// Payload renders the persisted payload; empty strings become nulls.
func (p PushTrigger) Payload() PushPayload {
	return PushPayload{
		Ref:          nonEmpty(p.Ref),
		After:        nonEmpty(p.HeadSHA),
		PusherName:   nonEmpty(p.PusherName),
		RepoFullName: nonEmpty(p.RepoFullName),
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WebhookDelivery is one raw delivery as received over HTTP.
type WebhookDelivery struct {
	EventType  string
	DeliveryID string
	Signature  string
	Body       []byte
}
