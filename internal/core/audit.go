package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChangeAction is the kind of tracked glossary mutation.
type ChangeAction string

const (
	ActionNew    ChangeAction = "dictionary_new"
	ActionEdit   ChangeAction = "dictionary_edit"
	ActionUpload ChangeAction = "dictionary_upload"
)

// Valid reports whether a is one of the known actions.
func (a ChangeAction) Valid() bool {
	switch a {
	case ActionNew, ActionEdit, ActionUpload:
		return true
	}
	return false
}

// AuditSeverity ranks how disruptive a change is.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// Severity maps an action to its severity. Uploads rank highest because
// they touch many entries at once.
func (a ChangeAction) Severity() AuditSeverity {
	switch a {
	case ActionUpload:
		return SeverityHigh
	case ActionEdit:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Change is an append-only audit record for one entry mutation.
type Change struct {
	ID        string       `json:"id"`
	Action    ChangeAction `json:"action"`
	EntryID   int64        `json:"entryId"`
	Project   string       `json:"project"`
	Language  string       `json:"language"`
	UserID    string       `json:"userId,omitempty"`
	UserName  string       `json:"userName,omitempty"`
	Target    string       `json:"target"`
	IPAddress string       `json:"ipAddress,omitempty"`
	UserAgent string       `json:"userAgent,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// NewChange builds the change record for e. Request metadata stored in ctx
// by the transport is copied in; the entry must already have its ID.
func NewChange(ctx context.Context, actor Actor, action ChangeAction, e Entry) Change {
	if action == "" {
		action = ActionNew
	}
	return Change{
		ID:        uuid.NewString(),
		Action:    action,
		EntryID:   e.ID,
		Project:   e.Project,
		Language:  e.Language,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Target:    e.Target,
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
}
