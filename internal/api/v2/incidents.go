package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/homeledger/incident-engine/internal/orchestration"
	"github.com/labstack/echo/v4"
)

// EvaluateRequest is the body of the evaluate endpoint.
type EvaluateRequest struct {
	TypeKey string                `json:"type_key"`
	Signal  *orchestration.Signal `json:"signal"`
}

// AckBody is the body of the acknowledgement endpoint.
type AckBody struct {
	Kind        string     `json:"kind"`
	Note        *string    `json:"note,omitempty"`
	SnoozeUntil *time.Time `json:"snooze_until,omitempty"`
}

// NoteBody carries an optional note for resolve and expire.
type NoteBody struct {
	Note *string `json:"note,omitempty"`
}

func (c *Controller) initIncidentRoutes() {
	c.Group.POST("/properties/:propertyId/incidents/evaluate", c.EvaluateSignal)
	c.Group.GET("/properties/:propertyId/incidents", c.ListIncidents)

	incidents := c.Group.Group("/incidents")
	incidents.GET("/:id", c.GetIncident)
	incidents.GET("/:id/events", c.ListIncidentEvents)
	incidents.GET("/:id/traces", c.ListIncidentTraces)
	incidents.POST("/:id/acks", c.AcknowledgeIncident)
	incidents.POST("/:id/resolve", c.ResolveIncident)
	incidents.POST("/:id/expire", c.ExpireIncident)
}

// EvaluateSignal records a signal and returns the resulting incident.
func (c *Controller) EvaluateSignal(ctx echo.Context) error {
	var req EvaluateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.badRequest(ctx, "Invalid request body")
	}

	inc, err := c.incidents.Evaluate(ctx.Request().Context(), ctx.Param("propertyId"), req.TypeKey, req.Signal)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to evaluate signal", http.StatusInternalServerError)
	}
	if inc == nil {
		return c.badRequest(ctx, "type_key and signal.signal_type are required")
	}
	return ctx.JSON(http.StatusOK, inc)
}

// ListIncidents returns a page of a property's incidents.
func (c *Controller) ListIncidents(ctx echo.Context) error {
	limit, offset, ok := pageParams(ctx)
	if !ok {
		return c.badRequest(ctx, "Invalid limit or offset")
	}
	filter := repository.IncidentFilter{
		PropertyID: strings.TrimSpace(ctx.Param("propertyId")),
		TypeKey:    ctx.QueryParam("type_key"),
		OpenOnly:   ctx.QueryParam("open") == "true",
		Limit:      limit,
		Offset:     offset,
	}
	if v := ctx.QueryParam("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			filter.Statuses = append(filter.Statuses, entities.IncidentStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	incidents, total, err := c.incidents.ListIncidents(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list incidents", http.StatusInternalServerError)
	}
	if incidents == nil {
		incidents = []entities.Incident{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"incidents": incidents,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetIncident returns one incident with its actions and acks.
func (c *Controller) GetIncident(ctx echo.Context) error {
	view, err := c.incidents.GetIncident(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get incident", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, view)
}

// ListIncidentEvents returns the audit log, optionally filtered by ?type=.
func (c *Controller) ListIncidentEvents(ctx echo.Context) error {
	var types []entities.EventType
	if v := ctx.QueryParam("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			types = append(types, entities.EventType(strings.ToUpper(strings.TrimSpace(t))))
		}
	}
	events, err := c.incidents.ListEvents(ctx.Request().Context(), ctx.Param("id"), types...)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list incident events", http.StatusInternalServerError)
	}
	if events == nil {
		events = []entities.IncidentEvent{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// ListIncidentTraces returns the decision traces behind proposed actions.
func (c *Controller) ListIncidentTraces(ctx echo.Context) error {
	traces, err := c.incidents.Traces(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list decision traces", http.StatusInternalServerError)
	}
	if traces == nil {
		traces = []orchestration.ProposalTrace{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"traces": traces, "count": len(traces)})
}

// AcknowledgeIncident records ACKNOWLEDGED, DISMISSED or SNOOZED.
func (c *Controller) AcknowledgeIncident(ctx echo.Context) error {
	var body AckBody
	if err := ctx.Bind(&body); err != nil {
		return c.badRequest(ctx, "Invalid request body")
	}

	inc, err := c.incidents.Acknowledge(ctx.Request().Context(), ctx.Param("id"), orchestration.AckRequest{
		Kind:        entities.AckKind(strings.ToUpper(strings.TrimSpace(body.Kind))),
		Note:        body.Note,
		SnoozeUntil: body.SnoozeUntil,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to acknowledge incident", http.StatusInternalServerError)
	}
	if inc == nil {
		return c.badRequest(ctx, "kind must be ACKNOWLEDGED, DISMISSED or SNOOZED; SNOOZED needs a future snooze_until")
	}

	c.log.Info("incident acknowledged",
		logger.String("incident_id", inc.ID),
		logger.String("kind", body.Kind))
	return ctx.JSON(http.StatusOK, inc)
}

// ResolveIncident closes a mitigated incident.
func (c *Controller) ResolveIncident(ctx echo.Context) error {
	var body NoteBody
	if err := bindOptional(ctx, &body); err != nil {
		return c.badRequest(ctx, "Invalid request body")
	}
	inc, err := c.incidents.ResolveIncident(ctx.Request().Context(), ctx.Param("id"), body.Note)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to resolve incident", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, inc)
}

// ExpireIncident ends an incident that no longer applies.
func (c *Controller) ExpireIncident(ctx echo.Context) error {
	var body NoteBody
	if err := bindOptional(ctx, &body); err != nil {
		return c.badRequest(ctx, "Invalid request body")
	}
	inc, err := c.incidents.ExpireIncident(ctx.Request().Context(), ctx.Param("id"), body.Note)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to expire incident", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, inc)
}
