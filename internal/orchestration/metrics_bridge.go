package orchestration

import (
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// Observer receives engine-level measurements.
type Observer interface {
	ObserveEvaluation(outcome string, d time.Duration)
	IncConflictRetry(operation string)
}

// EventMetrics receives per-event counts for committed events.
type EventMetrics interface {
	IncEvent(eventType string)
	IncTransition(from, to string)
	IncActionProposed(actionType string)
}

// NewMetricsHandler returns a bus handler that counts committed events.
// Only committed batches reach the bus, so rolled back cycles never count.
func NewMetricsHandler(m EventMetrics) CommittedHandler {
	return func(c *Committed) {
		for i := range c.Events {
			ev := &c.Events[i]
			m.IncEvent(string(ev.Type))
			if ev.Payload == nil {
				continue
			}
			switch ev.Type {
			case entities.EventStatusChanged:
				m.IncTransition(string(ev.Payload.FromStatus), string(ev.Payload.ToStatus))
			case entities.EventActionProposed:
				m.IncActionProposed(string(ev.Payload.ActionType))
			}
		}
	}
}
