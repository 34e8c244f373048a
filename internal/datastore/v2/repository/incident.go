package repository

import (
	"context"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// IncidentRepository persists incidents and everything they own.
// All mutations go through RunInTx so a whole evaluation cycle commits or
// rolls back as one unit.
type IncidentRepository interface {
	// RunInTx executes fn in a single transaction. Conflict-class failures
	// are returned wrapping ErrConflict.
	RunInTx(ctx context.Context, fn func(tx IncidentTx) error) error

	// Read side
	GetIncident(ctx context.Context, id string) (*entities.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]entities.Incident, int64, error)
	ListEvents(ctx context.Context, incidentID string, filter EventFilter) ([]entities.IncidentEvent, error)
	ListSignals(ctx context.Context, incidentID string) ([]entities.IncidentSignal, error)
	ListActions(ctx context.Context, incidentID string) ([]entities.IncidentAction, error)
	ListAcks(ctx context.Context, incidentID string) ([]entities.IncidentAck, error)
	GetAction(ctx context.Context, id string) (*entities.IncidentAction, error)
	ListStaleIncidentIDs(ctx context.Context, observedBefore time.Time, limit int) ([]string, error)
}

// IncidentTx is the write surface available inside RunInTx.
type IncidentTx interface {
	// FindOpenIncident returns the non-terminal incident for the dedupe key,
	// locking it where the dialect supports row locks.
	FindOpenIncident(ctx context.Context, propertyID, typeKey string) (*entities.Incident, error)
	// GetIncident loads and locks an incident by id.
	GetIncident(ctx context.Context, id string) (*entities.Incident, error)
	CreateIncident(ctx context.Context, incident *entities.Incident) error
	SaveIncident(ctx context.Context, incident *entities.Incident) error
	AppendSignal(ctx context.Context, signal *entities.IncidentSignal) error
	// AppendEvents writes events in slice order, assigning sequence numbers
	// after the incident's current last event.
	AppendEvents(ctx context.Context, incidentID string, events []entities.IncidentEvent) error
	CreateAction(ctx context.Context, action *entities.IncidentAction) error
	SaveAction(ctx context.Context, action *entities.IncidentAction) error
	GetAction(ctx context.Context, id string) (*entities.IncidentAction, error)
	ListOpenActions(ctx context.Context, incidentID string) ([]entities.IncidentAction, error)
	CreateAck(ctx context.Context, ack *entities.IncidentAck) error
}

// IncidentFilter controls incident listing queries.
type IncidentFilter struct {
	PropertyID string
	TypeKey    string
	Statuses   []entities.IncidentStatus
	OpenOnly   bool
	Limit      int
	Offset     int
}

// EventFilter controls event listing queries.
type EventFilter struct {
	Types []entities.EventType
}
