// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"engage_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Ingestion Domain Events
// =============================================================================

// IngestionCompleted is published after an ingestion batch commits.
// NewInteractions counts genuinely new rows, not conflict-updates.
type IngestionCompleted struct {
	BaseEvent
	TenantID        uuid.UUID `json:"tenantId"`
	NewInteractions int       `json:"newInteractions"`
}

func (e IngestionCompleted) EventName() string { return "ingestion.completed" }

// =============================================================================
// Analysis Domain Events
// =============================================================================

// InteractionAnalyzed is published after the classifier verdict and score
// update for one interaction are committed.
type InteractionAnalyzed struct {
	BaseEvent
	TenantID      uuid.UUID  `json:"tenantId"`
	InteractionID uuid.UUID  `json:"interactionId"`
	CustomerID    *uuid.UUID `json:"customerId,omitempty"`
	Intent        string     `json:"intent"`
	Sentiment     string     `json:"sentiment"`
	Confidence    int        `json:"confidence"`
	NewScore      *int       `json:"newScore,omitempty"`
	NewStatus     *string    `json:"newStatus,omitempty"`
}

func (e InteractionAnalyzed) EventName() string { return "analysis.interaction.analyzed" }

// CustomerScoreChanged is published when scoring moves a customer across a
// status threshold.
type CustomerScoreChanged struct {
	BaseEvent
	TenantID   uuid.UUID `json:"tenantId"`
	CustomerID uuid.UUID `json:"customerId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	NewScore   int       `json:"newScore"`
}

func (e CustomerScoreChanged) EventName() string { return "scoring.customer.status_changed" }
