package orchestration

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/homeledger/incident-engine/internal/lifecycle"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/homeledger/incident-engine/internal/severity"
	"github.com/homeledger/incident-engine/internal/snooze"
	"github.com/homeledger/incident-engine/internal/suppression"
	"github.com/homeledger/incident-engine/internal/trace"
)

// SuppressionResolver finds what already addresses an action.
type SuppressionResolver interface {
	Resolve(ctx context.Context, propertyID, orchestrationActionID string) suppression.Source
}

// Snoozer reads, opens and ends snooze windows.
type Snoozer interface {
	GetActiveSnooze(ctx context.Context, propertyID, actionKey string) (*snooze.ActiveSnooze, error)
	SnoozeAction(ctx context.Context, propertyID, actionKey string, snoozeUntil time.Time, reason *string) (bool, error)
	UnsnoozeAction(ctx context.Context, propertyID, actionKey string) (bool, error)
}

// Deps are the collaborators of an Engine. Suppression, Snoozes, Bus and
// Metrics are optional.
type Deps struct {
	Incidents   repository.IncidentRepository
	Properties  repository.PropertyRepository
	Suppression SuppressionResolver
	Snoozes     Snoozer
	Bus         *EventBus
	Metrics     Observer
	Log         logger.Logger
}

// Config tunes an Engine. Zero values select defaults.
type Config struct {
	SurfacingThreshold int
	MaxRetries         int
	RetryBackoff       time.Duration
	Rules              []ProposalRule
	Now                func() time.Time
}

// Engine evaluates signals into incidents and drives their lifecycle.
type Engine struct {
	repo        repository.IncidentRepository
	properties  repository.PropertyRepository
	suppression SuppressionResolver
	snoozes     Snoozer
	bus         *EventBus
	metrics     Observer
	log         logger.Logger

	machine    *lifecycle.Machine
	rules      []ProposalRule
	threshold  int
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// NewEngine creates an orchestration engine.
func NewEngine(deps Deps, cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	threshold := cfg.SurfacingThreshold
	if threshold <= 0 {
		threshold = DefaultSurfacingThreshold
	}
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultProposalRules()
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		repo:        deps.Incidents,
		properties:  deps.Properties,
		suppression: deps.Suppression,
		snoozes:     deps.Snoozes,
		bus:         deps.Bus,
		metrics:     deps.Metrics,
		log:         log.With(logger.String("component", componentName)),
		machine:     lifecycle.NewMachine(now),
		rules:       rules,
		threshold:   threshold,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.RetryBackoff,
		now:         now,
	}
}

// Threshold returns the surfacing threshold in use.
func (e *Engine) Threshold() int {
	return e.threshold
}

// gates is what may hold an incident back, resolved before the transaction.
type gates struct {
	source suppression.Source
	snooze *snooze.ActiveSnooze
}

func (g gates) active() bool {
	return g.source != nil || g.snooze != nil
}

// evaluation is the validated input of one Evaluate call.
type evaluation struct {
	propertyID  string
	typeKey     string
	actionKey   string
	// explicitKey is set when the signal named its action key.
	explicitKey bool
	signal      *Signal
	gates       gates
}

// errGateKeyChanged aborts a transaction whose open incident gates on a
// different action key than the one resolved up front.
var errGateKeyChanged = errors.NewStd("gate key changed")

// maxGateRefresh bounds how often gates are re-resolved for one evaluation.
const maxGateRefresh = 2

// Evaluate records a signal against the open incident for (propertyID,
// typeKey), creating one when none is open, and advances it as far as the
// signal allows. Invalid input returns nil, nil.
func (e *Engine) Evaluate(ctx context.Context, propertyID, typeKey string, sig *Signal) (*entities.Incident, error) {
	start := time.Now()
	propertyID = strings.TrimSpace(propertyID)
	typeKey = strings.TrimSpace(typeKey)
	if propertyID == "" || typeKey == "" || !sig.valid() {
		e.log.Debug("ignoring invalid evaluation input",
			logger.String("property_id", propertyID),
			logger.String("type_key", typeKey))
		e.observe(OutcomeInvalid, start)
		return nil, nil
	}
	if err := e.requireProperty(ctx, propertyID); err != nil {
		e.observe(OutcomeError, start)
		return nil, err
	}

	in := evaluation{
		propertyID: propertyID,
		typeKey:    typeKey,
		actionKey:   sig.actionKey(typeKey),
		explicitKey: strings.TrimSpace(sig.ActionKey) != "",
		signal:      sig,
	}

	var (
		result  *entities.Incident
		journal lifecycle.Journal
		err     error
	)
	for refresh := 0; ; refresh++ {
		if in.gates, err = e.resolveGates(ctx, propertyID, in.actionKey); err != nil {
			e.observe(OutcomeError, start)
			return nil, err
		}
		err = repository.RetryOnConflict(ctx, e.retryPolicy("evaluate"), func() error {
			journal.Reset()
			return e.repo.RunInTx(ctx, func(tx repository.IncidentTx) error {
				inc, err := e.evaluateInTx(ctx, tx, &in, &journal)
				if err != nil {
					return err
				}
				result = inc
				return nil
			})
		})
		if !errors.Is(err, errGateKeyChanged) || refresh >= maxGateRefresh {
			break
		}
		e.log.Debug("open incident gates on a different action key",
			logger.String("property_id", propertyID),
			logger.String("action_key", in.actionKey))
	}
	if err != nil {
		e.observe(OutcomeError, start)
		e.log.Error("evaluation failed",
			logger.String("property_id", propertyID),
			logger.String("type_key", typeKey),
			logger.Error(err))
		return nil, e.wrap(err, "evaluate", "property_id", propertyID)
	}

	e.publish(result, journal.Events())
	outcome := outcomeFor(result)
	e.observe(outcome, start)
	e.log.Debug("evaluation committed",
		logger.String("incident_id", result.ID),
		logger.String("status", string(result.Status)),
		logger.String("outcome", outcome),
		logger.Int("events", journal.Len()))
	return result, nil
}

// resolveGates looks up suppression and snooze state. Both depend only on
// (propertyID, actionKey), so they are read outside the transaction.
func (e *Engine) resolveGates(ctx context.Context, propertyID, actionKey string) (gates, error) {
	var g gates
	if e.suppression != nil {
		g.source = e.suppression.Resolve(ctx, propertyID, actionKey)
	}
	if e.snoozes != nil {
		active, err := e.snoozes.GetActiveSnooze(ctx, propertyID, actionKey)
		if err != nil {
			return gates{}, err
		}
		g.snooze = active
	}
	return g, nil
}

func (e *Engine) evaluateInTx(ctx context.Context, tx repository.IncidentTx, in *evaluation, j *lifecycle.Journal) (*entities.Incident, error) {
	now := e.now()
	observedAt := in.signal.ObservedAt.UTC()
	if in.signal.ObservedAt.IsZero() {
		observedAt = now
	}

	inc, err := tx.FindOpenIncident(ctx, in.propertyID, in.typeKey)
	switch {
	case errors.Is(err, repository.ErrIncidentNotFound):
		inc = e.newIncident(in, now, observedAt)
		if err := tx.CreateIncident(ctx, inc); err != nil {
			return nil, err
		}
		e.machine.Record(inc, entities.EventCreated, "incident opened", nil, j)
	case err != nil:
		return nil, err
	default:
		// A signal without its own key gates on the key the incident
		// already carries, which is also the key a snooze ack uses.
		if !in.explicitKey {
			if key := actionKeyOf(inc); key != in.actionKey {
				in.actionKey = key
				return nil, errGateKeyChanged
			}
		}
		in.signal.apply(inc)
		if observedAt.After(inc.LastObservedAt) {
			inc.LastObservedAt = observedAt
		}
		if inc.ActionKey == "" {
			inc.ActionKey = in.actionKey
		}
	}

	if err := tx.AppendSignal(ctx, in.signal.record(uuid.NewString(), inc.ID, observedAt)); err != nil {
		return nil, err
	}

	e.score(inc, in.signal, j)

	if inc.Status == entities.IncidentStatusDetected {
		if err := e.machine.Transition(inc, entities.IncidentStatusEvaluated, nil, j); err != nil {
			return nil, err
		}
	}

	if in.gates.active() {
		if err := e.suppress(inc, in.gates, j); err != nil {
			return nil, err
		}
	} else {
		if err := e.surface(inc, j); err != nil {
			return nil, err
		}
		if inc.Status == entities.IncidentStatusActive {
			if err := e.propose(ctx, tx, inc, in, j); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.SaveIncident(ctx, inc); err != nil {
		return nil, err
	}
	if err := tx.AppendEvents(ctx, inc.ID, j.Events()); err != nil {
		return nil, err
	}
	return inc, nil
}

func (e *Engine) newIncident(in *evaluation, now, observedAt time.Time) *entities.Incident {
	slot := entities.OpenSlotValue
	inc := &entities.Incident{
		ID:             uuid.NewString(),
		PropertyID:     in.propertyID,
		TypeKey:        in.typeKey,
		ActionKey:      in.actionKey,
		Title:          in.typeKey,
		Status:         entities.IncidentStatusDetected,
		OpenedAt:       now,
		LastObservedAt: observedAt,
		OpenSlot:       &slot,
	}
	in.signal.apply(inc)
	return inc
}

// score folds the signal's breakdown into the incident's and recomputes the
// severity. A producer hint is used only when no breakdown exists.
func (e *Engine) score(inc *entities.Incident, sig *Signal, j *lifecycle.Journal) {
	merged := severity.Merge(inc.ScoreBreakdown, sig.Breakdown)
	switch {
	case merged != nil:
		e.machine.RecordSeverity(inc, severity.Score(merged), merged, j)
	case sig.ScoreHint != nil:
		e.machine.RecordSeverity(inc, severity.FromTotal(*sig.ScoreHint), nil, j)
	case inc.SeverityScore == nil:
		e.machine.RecordSeverity(inc, severity.Score(nil), nil, j)
	}
}

// suppress holds back an incident that has not progressed past ACTIVE.
// ACTIONED and MITIGATED incidents already have work under way and keep it.
func (e *Engine) suppress(inc *entities.Incident, g gates, j *lifecycle.Journal) error {
	switch inc.Status {
	case entities.IncidentStatusEvaluated, entities.IncidentStatusActive:
	default:
		return nil
	}

	payload := &entities.EventPayload{}
	message := "suppressed"
	if g.source != nil {
		ref := g.source.Ref()
		payload.Suppression = &ref
		message = fmt.Sprintf("suppressed by %s %s", ref.Type, ref.ID)
	}
	if g.snooze != nil {
		until := g.snooze.SnoozeUntil
		payload.SnoozeUntil = &until
		if g.source == nil {
			message = fmt.Sprintf("snoozed until %s", until.Format(time.RFC3339))
		}
	}
	return e.machine.Transition(inc, entities.IncidentStatusSuppressed, &lifecycle.Cause{
		Type:    entities.EventSuppressed,
		Message: message,
		Payload: payload,
	}, j)
}

// surface activates an incident whose score clears the threshold. A dismissed
// incident stays suppressed for the rest of its life.
func (e *Engine) surface(inc *entities.Incident, j *lifecycle.Journal) error {
	if !e.clearsThreshold(inc) {
		return nil
	}
	switch inc.Status {
	case entities.IncidentStatusEvaluated:
		return e.machine.Transition(inc, entities.IncidentStatusActive, nil, j)
	case entities.IncidentStatusSuppressed:
		if inc.DismissedAt != nil {
			return nil
		}
		return e.machine.Transition(inc, entities.IncidentStatusActive, nil, j)
	}
	return nil
}

func (e *Engine) clearsThreshold(inc *entities.Incident) bool {
	return inc.SeverityScore != nil && *inc.SeverityScore >= e.threshold
}

// propose runs the proposal rules for an ACTIVE incident. Nothing is written
// when an open action already exists for the key or no rule matches.
func (e *Engine) propose(ctx context.Context, tx repository.IncidentTx, inc *entities.Incident, in *evaluation, j *lifecycle.Journal) error {
	open, err := tx.ListOpenActions(ctx, inc.ID)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(open, func(a entities.IncidentAction) bool { return a.ActionKey == in.actionKey }) {
		return nil
	}

	rec := trace.NewRecorder()
	rec.Skipped(RuleSuppression, entities.TraceDetails{Reason: "no suppression source"})
	rec.Skipped(RuleSnooze, entities.TraceDetails{Reason: "no active snooze"})
	threshold := e.threshold
	rec.Applied(RuleThreshold, entities.TraceDetails{
		Score:     inc.SeverityScore,
		Band:      bandOf(inc),
		Threshold: &threshold,
	})
	rec.Skipped(RuleOpenAction, entities.TraceDetails{ActionKey: in.actionKey, Reason: "no open action"})

	props := ruleProperties(inc, in.signal.SignalType)
	var matched *ProposalRule
	for i := range e.rules {
		rule := &e.rules[i]
		if rule.Matches(props) {
			matched = rule
			break
		}
		rec.Skipped(rule.Name, entities.TraceDetails{ActionType: rule.ActionType, Reason: "conditions not met"})
	}
	if matched == nil {
		e.log.Debug("no proposal rule matched",
			logger.String("incident_id", inc.ID),
			logger.String("action_key", in.actionKey))
		return nil
	}

	action := newAction(inc, in.actionKey, matched)
	rec.Applied(matched.Name, entities.TraceDetails{
		ActionType: matched.ActionType,
		ActionKey:  in.actionKey,
		ActionID:   action.ID,
	})
	if err := tx.CreateAction(ctx, action); err != nil {
		return err
	}
	e.machine.Record(inc, entities.EventActionProposed,
		fmt.Sprintf("%s proposed by %s", matched.ActionType, matched.Name),
		&entities.EventPayload{
			ActionID:     action.ID,
			ActionType:   action.Type,
			ActionStatus: action.Status,
			Trace:        rec.Snapshot(e.now()),
		}, j)
	return nil
}

func newAction(inc *entities.Incident, actionKey string, rule *ProposalRule) *entities.IncidentAction {
	title := rule.Title
	if title == "" {
		title = inc.Title
	}
	action := &entities.IncidentAction{
		ID:         uuid.NewString(),
		IncidentID: inc.ID,
		ActionKey:  actionKey,
		Type:       rule.ActionType,
		Status:     entities.ActionStatusProposed,
		Payload: &entities.ActionPayload{
			SchemaVersion: entities.ActionPayloadSchemaVersion,
			RuleName:      rule.Name,
			Title:         title,
			Severity:      bandOf(inc),
			Score:         inc.SeverityScore,
		},
	}
	if rule.CTALabel != "" {
		action.CTA = &entities.ActionCTA{Label: rule.CTALabel}
	}
	return action
}

func bandOf(inc *entities.Incident) entities.SeverityBand {
	if inc.Severity == nil {
		return ""
	}
	return *inc.Severity
}

func (e *Engine) requireProperty(ctx context.Context, propertyID string) error {
	if e.properties == nil {
		return nil
	}
	exists, err := e.properties.PropertyExists(ctx, propertyID)
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("operation", "property_exists").
			Context("property_id", propertyID).
			Build()
	}
	if !exists {
		return errors.New(repository.ErrPropertyNotFound).
			Component(componentName).
			Category(errors.CategoryNotFound).
			Context("property_id", propertyID).
			Build()
	}
	return nil
}

func (e *Engine) retryPolicy(op string) repository.RetryPolicy {
	return repository.RetryPolicy{
		MaxRetries:      e.maxRetries,
		InitialInterval: e.backoff,
		OnRetry: func(err error, wait time.Duration) {
			if e.metrics != nil {
				e.metrics.IncConflictRetry(op)
			}
			e.log.Debug("write conflict, restarting cycle",
				logger.String("operation", op),
				logger.Duration("wait", wait),
				logger.Error(err))
		},
	}
}

func (e *Engine) publish(inc *entities.Incident, events []entities.IncidentEvent) {
	if e.bus == nil || inc == nil || len(events) == 0 {
		return
	}
	e.bus.Publish(&Committed{
		IncidentID: inc.ID,
		PropertyID: inc.PropertyID,
		Status:     inc.Status,
		Events:     slices.Clone(events),
		Timestamp:  e.now(),
	})
}

func (e *Engine) observe(outcome string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveEvaluation(outcome, time.Since(start))
	}
}

func outcomeFor(inc *entities.Incident) string {
	switch {
	case inc.Status == entities.IncidentStatusSuppressed:
		return OutcomeSuppressed
	case inc.Status == entities.IncidentStatusEvaluated:
		return OutcomeQuiet
	default:
		return OutcomeSurfaced
	}
}

// wrap classifies err unless it already carries a category.
func (e *Engine) wrap(err error, op string, kv ...string) error {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return err
	}
	category := errors.CategoryDatabase
	switch {
	case errors.Is(err, repository.ErrConflict):
		category = errors.CategoryConflict
	case errors.Is(err, lifecycle.ErrIllegalTransition), errors.Is(err, ErrIncidentClosed):
		category = errors.CategoryState
	case errors.Is(err, repository.ErrIncidentNotFound), errors.Is(err, repository.ErrActionNotFound):
		category = errors.CategoryNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryInternal
	}
	b := errors.New(err).Component(componentName).Category(category).Context("operation", op)
	for i := 0; i+1 < len(kv); i += 2 {
		b = b.Context(kv[i], kv[i+1])
	}
	return b.Build()
}
