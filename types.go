package adz

import (
	"encoding/json"
	"time"
)

// AccountID is an already-verified account identity as handed over by the host ledger.
type AccountID string

// Amount is a balance unit of the host ledger.
type Amount uint64

type EventKind string

const (
	EventAdCreated         EventKind = "AdCreated"
	EventAdUpdated         EventKind = "AdUpdated"
	EventAdDeleted         EventKind = "AdDeleted"
	EventApplicantSelected EventKind = "ApplicantSelected"
	EventCommentCreated    EventKind = "CommentCreated"
	EventCommentUpdated    EventKind = "CommentUpdated"
	EventCommentDeleted    EventKind = "CommentDeleted"
)

// Event is an audit record of one committed operation.
type Event struct {
	Seq       uint64    `json:"seq,omitempty"`
	Kind      EventKind `json:"kind"`
	Account   AccountID `json:"account"`
	AdID      uint32    `json:"adID"`
	CommentID *uint32   `json:"commentID,omitempty"`
	EmittedAt time.Time `json:"emittedAt"`
}

// TouchesComment reports whether the event refers to a single comment.
func (e Event) TouchesComment() bool {
	return e.CommentID != nil
}

// Transaction is one accepted call submitted by the host on behalf of a caller.
type Transaction struct {
	Call string          `json:"call"`
	Args json.RawMessage `json:"args"`
}

type WellKnownAdz struct {
	Version       string            `json:"version"`
	Domain        string            `json:"domain"`
	Layer         string            `json:"layer"`
	ModuleID      string            `json:"moduleID"`
	EscrowAccount AccountID         `json:"escrowAccount"`
	Endpoints     map[string]string `json:"endpoints"`
}
