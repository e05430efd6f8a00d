package models

import (
	"errors"
	"time"
)

// Action is the kind of mutation recorded in the change log.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ChangeLog is an append-only audit record of a store mutation.
type ChangeLog struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	EntityName string    `json:"entity_name"` // "event" or "entry"
	EntityID   string    `json:"entity_id"`
	Action     Action    `json:"action"`
	Payload    string    `json:"payload"` // JSON object with the changed fields
}

// Validate checks that all change log fields are valid
func (c *ChangeLog) Validate() error {
	if c.ID == "" {
		return errors.New("change log ID must not be empty")
	}
	if c.EntityName == "" {
		return errors.New("entity name must not be empty")
	}
	if c.EntityID == "" {
		return errors.New("entity ID must not be empty")
	}
	switch c.Action {
	case ActionCreate, ActionUpdate, ActionDelete:
	default:
		return errors.New("action must be 'create', 'update' or 'delete'")
	}
	if c.CreatedAt.IsZero() {
		return errors.New("created at must be set")
	}
	return nil
}
