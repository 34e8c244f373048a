package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// incidentRepository implements IncidentRepository.
type incidentRepository struct {
	db *gorm.DB
}

// NewIncidentRepository creates a new IncidentRepository.
func NewIncidentRepository(db *gorm.DB) IncidentRepository {
	return &incidentRepository{db: db}
}

// RunInTx executes fn inside a database transaction.
func (r *incidentRepository) RunInTx(ctx context.Context, fn func(tx IncidentTx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&incidentTx{db: tx})
	})
	return translate(err)
}

// GetIncident returns an incident by id.
func (r *incidentRepository) GetIncident(ctx context.Context, id string) (*entities.Incident, error) {
	var incident entities.Incident
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&incident).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident %s: %w", id, err)
	}
	return &incident, nil
}

// ListIncidents returns incidents matching filter, newest first, with the
// unpaginated total.
func (r *incidentRepository) ListIncidents(ctx context.Context, filter IncidentFilter) ([]entities.Incident, int64, error) {
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.PropertyID != "" {
			q = q.Where("property_id = ?", filter.PropertyID)
		}
		if filter.TypeKey != "" {
			q = q.Where("type_key = ?", filter.TypeKey)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("status IN ?", filter.Statuses)
		}
		if filter.OpenOnly {
			q = q.Where("open_slot IS NOT NULL")
		}
		return q
	}

	var total int64
	if err := apply(r.db.WithContext(ctx).Model(&entities.Incident{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %w", err)
	}

	var items []entities.Incident
	query := apply(r.db.WithContext(ctx)).Order("opened_at DESC").Order("id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %w", err)
	}
	return items, total, nil
}

// ListEvents returns an incident's audit log in sequence order.
func (r *incidentRepository) ListEvents(ctx context.Context, incidentID string, filter EventFilter) ([]entities.IncidentEvent, error) {
	var events []entities.IncidentEvent
	query := r.db.WithContext(ctx).Where("incident_id = ?", incidentID)
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if err := query.Order("sequence ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events for incident %s: %w", incidentID, err)
	}
	return events, nil
}

// ListSignals returns an incident's signals in observation order.
func (r *incidentRepository) ListSignals(ctx context.Context, incidentID string) ([]entities.IncidentSignal, error) {
	var signals []entities.IncidentSignal
	if err := r.db.WithContext(ctx).Where("incident_id = ?", incidentID).
		Order("observed_at ASC").Order("created_at ASC").Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("failed to list signals for incident %s: %w", incidentID, err)
	}
	return signals, nil
}

// ListActions returns an incident's actions oldest first.
func (r *incidentRepository) ListActions(ctx context.Context, incidentID string) ([]entities.IncidentAction, error) {
	var actions []entities.IncidentAction
	if err := r.db.WithContext(ctx).Where("incident_id = ?", incidentID).
		Order("created_at ASC").Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to list actions for incident %s: %w", incidentID, err)
	}
	return actions, nil
}

// ListAcks returns an incident's user responses oldest first.
func (r *incidentRepository) ListAcks(ctx context.Context, incidentID string) ([]entities.IncidentAck, error) {
	var acks []entities.IncidentAck
	if err := r.db.WithContext(ctx).Where("incident_id = ?", incidentID).
		Order("created_at ASC").Find(&acks).Error; err != nil {
		return nil, fmt.Errorf("failed to list acks for incident %s: %w", incidentID, err)
	}
	return acks, nil
}

// GetAction returns an action by id.
func (r *incidentRepository) GetAction(ctx context.Context, id string) (*entities.IncidentAction, error) {
	return getAction(r.db.WithContext(ctx), id)
}

// ListStaleIncidentIDs returns open incidents whose last observation is older
// than observedBefore, oldest first.
func (r *incidentRepository) ListStaleIncidentIDs(ctx context.Context, observedBefore time.Time, limit int) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).Model(&entities.Incident{}).
		Where("open_slot IS NOT NULL AND last_observed_at < ?", observedBefore).
		Order("last_observed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale incidents: %w", err)
	}
	return ids, nil
}

// incidentTx implements IncidentTx on a gorm transaction.
type incidentTx struct {
	db *gorm.DB
}

func (t *incidentTx) locked(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func (t *incidentTx) FindOpenIncident(ctx context.Context, propertyID, typeKey string) (*entities.Incident, error) {
	var incident entities.Incident
	err := t.locked(ctx).
		Where("property_id = ? AND type_key = ? AND open_slot IS NOT NULL", propertyID, typeKey).
		First(&incident).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to find open incident: %w", err)
	}
	return &incident, nil
}

func (t *incidentTx) GetIncident(ctx context.Context, id string) (*entities.Incident, error) {
	var incident entities.Incident
	if err := t.locked(ctx).Where("id = ?", id).First(&incident).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident %s: %w", id, err)
	}
	return &incident, nil
}

func (t *incidentTx) CreateIncident(ctx context.Context, incident *entities.Incident) error {
	if err := t.db.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("failed to create incident: %w", translate(err))
	}
	return nil
}

func (t *incidentTx) SaveIncident(ctx context.Context, incident *entities.Incident) error {
	if incident.ID == "" {
		return fmt.Errorf("failed to save incident: missing incident ID")
	}
	if err := t.db.WithContext(ctx).Save(incident).Error; err != nil {
		return fmt.Errorf("failed to save incident %s: %w", incident.ID, translate(err))
	}
	return nil
}

func (t *incidentTx) AppendSignal(ctx context.Context, signal *entities.IncidentSignal) error {
	if err := t.db.WithContext(ctx).Create(signal).Error; err != nil {
		return fmt.Errorf("failed to append signal: %w", err)
	}
	return nil
}

func (t *incidentTx) AppendEvents(ctx context.Context, incidentID string, events []entities.IncidentEvent) error {
	if len(events) == 0 {
		return nil
	}

	var last int
	if err := t.db.WithContext(ctx).Model(&entities.IncidentEvent{}).
		Where("incident_id = ?", incidentID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error; err != nil {
		return fmt.Errorf("failed to read event sequence: %w", err)
	}

	for i := range events {
		events[i].IncidentID = incidentID
		events[i].Sequence = last + i + 1
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = time.Now()
		}
	}

	// Inserted one by one so row order on disk follows generation order even
	// on dialects that reorder multi-row inserts.
	for i := range events {
		if err := t.db.WithContext(ctx).Create(&events[i]).Error; err != nil {
			return fmt.Errorf("failed to append %s event: %w", events[i].Type, translate(err))
		}
	}
	return nil
}

func (t *incidentTx) CreateAction(ctx context.Context, action *entities.IncidentAction) error {
	if err := t.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("failed to create action: %w", translate(err))
	}
	return nil
}

func (t *incidentTx) SaveAction(ctx context.Context, action *entities.IncidentAction) error {
	if action.ID == "" {
		return fmt.Errorf("failed to save action: missing action ID")
	}
	if err := t.db.WithContext(ctx).Save(action).Error; err != nil {
		return fmt.Errorf("failed to save action %s: %w", action.ID, translate(err))
	}
	return nil
}

func (t *incidentTx) GetAction(ctx context.Context, id string) (*entities.IncidentAction, error) {
	return getAction(t.locked(ctx), id)
}

func (t *incidentTx) ListOpenActions(ctx context.Context, incidentID string) ([]entities.IncidentAction, error) {
	var actions []entities.IncidentAction
	if err := t.db.WithContext(ctx).
		Where("incident_id = ? AND status IN ?", incidentID, []entities.ActionStatus{
			entities.ActionStatusProposed, entities.ActionStatusCreated, entities.ActionStatusInProgress,
		}).
		Order("created_at ASC").Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to list open actions: %w", err)
	}
	return actions, nil
}

func (t *incidentTx) CreateAck(ctx context.Context, ack *entities.IncidentAck) error {
	if err := t.db.WithContext(ctx).Create(ack).Error; err != nil {
		return fmt.Errorf("failed to create ack: %w", err)
	}
	return nil
}

func getAction(db *gorm.DB, id string) (*entities.IncidentAction, error) {
	var action entities.IncidentAction
	if err := db.Where("id = ?", id).First(&action).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("failed to get action %s: %w", id, err)
	}
	return &action, nil
}
