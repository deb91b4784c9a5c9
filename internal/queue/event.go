// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Event types published on the catalog queue.
const (
	UserRegistered  = "user.registered"
	CategoryCreated = "category.created"
	CategoryUpdated = "category.updated"
	CategoryDeleted = "category.deleted"
	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
)

// CatalogEvent is published after a successful write. It carries ids and a
// display name only; consumers needing more query the API.
type CatalogEvent struct {
	Type       string    `json:"type"`
	EntityID   uint64    `json:"entity_id"`
	Name       string    `json:"name,omitempty"`
	CategoryID uint64    `json:"categoria_id,omitempty"`
	ActorID    uint64    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
