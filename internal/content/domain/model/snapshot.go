package model

import "time"

// Document is the raw, JSON-compatible form of the content document.
type Document = map[string]interface{}

// DocumentChange is one notification delivered by a document subscription.
// Exists is false when the document was deleted or never existed.
type DocumentChange struct {
	Exists     bool      `json:"exists"`
	Data       Document  `json:"data,omitempty"`
	UpdateTime time.Time `json:"updateTime"`
}

// ClientState is the lifecycle state of the store client.
type ClientState string

const (
	StateUninitialized ClientState = "uninitialized"
	StateSubscribed    ClientState = "subscribed"
	StateErrored       ClientState = "errored"
	StateClosed        ClientState = "closed"
)

// Snapshot is the read-side view of the live content document.
// Content is nil while loading or when the remote document is missing.
// Document and Content are shared with other readers and must not be mutated.
type Snapshot struct {
	Content   *SiteContent `json:"content"`
	Document  Document     `json:"-"`
	Loading   bool         `json:"loading"`
	Error     string       `json:"error,omitempty"`
	Version   uint64       `json:"version"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// HasError reports whether the snapshot carries an error message.
func (s Snapshot) HasError() bool {
	return s.Error != ""
}
