package models

import (
	"time"
)

// RemoteObject is the local mirror of one provider-side object. RemoteID is
// assigned by the provider and is the upsert key; ID is a local surrogate for
// joins only and must never be used for cross-system identity.
type RemoteObject struct {
	ID        int64                  `json:"-"`
	Kind      string                 `json:"kind"`
	RemoteID  string                 `json:"remote_id"`
	AccountID string                 `json:"account_id"`
	Livemode  bool                   `json:"livemode"`
	Fields    map[string]interface{} `json:"fields"`
	Relations map[string]string      `json:"relations"`
	RawData   []byte                 `json:"raw_data"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
}

// Relation returns the remote id a relation column points at, or "" when the
// relation is unset.
func (o *RemoteObject) Relation(column string) string {
	if o.Relations == nil {
		return ""
	}
	return o.Relations[column]
}
