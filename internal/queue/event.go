// Package queue defines message payloads exchanged over the message broker.
package queue

// CatalogQueueName is the durable queue carrying catalog events.
const CatalogQueueName = "catalog.events"

// Catalog event types.
const (
	EventBookCreated     = "book.created"
	EventBookUpdated     = "book.updated"
	EventBookDeleted     = "book.deleted"
	EventFavoriteAdded   = "favorite.added"
	EventFavoriteRemoved = "favorite.removed"
)

// CatalogEvent is published after a successful book or favorite write.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type CatalogEvent struct {
	Type       string `json:"type"`
	BookID     string `json:"book_id"`
	BookTitle  string `json:"book_title,omitempty"`
	ActorID    string `json:"actor_id"`
	ActorEmail string `json:"actor_email,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
