package models

import (
	"strings"
	"time"
)

// EventRecord is the durable receipt of one inbound provider notification.
// It is committed before processing starts, so a crash mid-processing leaves
// a recoverable "received but not processed" row rather than losing the
// notification.
type EventRecord struct {
	ID          int64      `json:"-"`
	RemoteID    string     `json:"remote_id"`
	Type        string     `json:"type"`
	APIVersion  string     `json:"api_version"`
	AccountID   string     `json:"account_id"`
	Livemode    bool       `json:"livemode"`
	Payload     []byte     `json:"payload"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Failure     string     `json:"failure,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Parts splits the dot-delimited event type, e.g.
// "customer.subscription.updated" -> ["customer", "subscription", "updated"].
func (e *EventRecord) Parts() []string {
	return strings.Split(e.Type, ".")
}

// Category returns the top-level event category, e.g. "customer".
func (e *EventRecord) Category() string {
	return e.Parts()[0]
}

// Failed reports whether the last processing attempt recorded a failure.
func (e *EventRecord) Failed() bool {
	return !e.Processed && e.Failure != ""
}
