package core

import "time"

type AuditAction string

const (
	ActionCreate          AuditAction = "create"
	ActionUpdate          AuditAction = "update"
	ActionDelete          AuditAction = "delete"
	ActionRestore         AuditAction = "restore"
	ActionPermanentDelete AuditAction = "permanent_delete"
)

// AuditEntry records one successful mutation. Entries produced by the same
// composite operation share a GroupID.
type AuditEntry struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	Entity    Kind        `json:"entity"`
	EntityID  string      `json:"entity_id"`
	Details   string      `json:"details"`
	GroupID   string      `json:"group_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
