package client

import (
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

const AggregateTypeClient = "Client"

const (
	EventTypeClientCreated = "client.created"
	EventTypeClientUpdated = "client.updated"
	EventTypeClientDeleted = "client.deleted"
)

// ClientCreatedEvent is published when a client is registered
type ClientCreatedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}

func NewClientCreatedEvent(c *Client) *ClientCreatedEvent {
	return &ClientCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientCreated, AggregateTypeClient, c.ID),
		ClientID:        c.ID,
		Name:            c.Name,
		Email:           c.Email,
	}
}

// ClientUpdatedEvent is published after any attribute change
type ClientUpdatedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Name     string    `json:"name"`
}

func NewClientUpdatedEvent(c *Client) *ClientUpdatedEvent {
	return &ClientUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientUpdated, AggregateTypeClient, c.ID),
		ClientID:        c.ID,
		Name:            c.Name,
	}
}

// ClientDeletedEvent is published when a client is removed
type ClientDeletedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
}

func NewClientDeletedEvent(c *Client) *ClientDeletedEvent {
	return &ClientDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientDeleted, AggregateTypeClient, c.ID),
		ClientID:        c.ID,
	}
}
