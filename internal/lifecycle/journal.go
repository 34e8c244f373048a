package lifecycle

import "github.com/homeledger/incident-engine/internal/datastore/v2/entities"

// Journal collects the events generated during one unit of work, in the
// order they were generated. It is not safe for concurrent use.
type Journal struct {
	events []entities.IncidentEvent
}

// Append adds an event to the end of the journal.
func (j *Journal) Append(ev entities.IncidentEvent) {
	if ev.Payload != nil && ev.Payload.SchemaVersion == 0 {
		ev.Payload.SchemaVersion = entities.EventPayloadSchemaVersion
	}
	j.events = append(j.events, ev)
}

// Events returns the collected events.
func (j *Journal) Events() []entities.IncidentEvent {
	return j.events
}

// Len returns the number of collected events.
func (j *Journal) Len() int {
	return len(j.events)
}

// Types returns the event types in order.
func (j *Journal) Types() []entities.EventType {
	types := make([]entities.EventType, len(j.events))
	for i := range j.events {
		types[i] = j.events[i].Type
	}
	return types
}

// Reset drops all collected events so the journal can be reused for a retry.
func (j *Journal) Reset() {
	j.events = j.events[:0]
}
