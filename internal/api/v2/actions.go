package api

import (
	"net/http"
	"strings"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/labstack/echo/v4"
)

// ActionCreatedBody links an action to the entity created for it.
type ActionCreatedBody struct {
	EntityType *string `json:"entity_type,omitempty"`
	EntityID   *string `json:"entity_id,omitempty"`
}

// ActionStatusBody is the body of the status endpoint.
type ActionStatusBody struct {
	Status string `json:"status"`
}

func (c *Controller) initActionRoutes() {
	actions := c.Group.Group("/actions")
	actions.POST("/:id/created", c.MarkActionCreated)
	actions.PATCH("/:id/status", c.UpdateActionStatus)
}

// MarkActionCreated records that the action's external entity exists.
func (c *Controller) MarkActionCreated(ctx echo.Context) error {
	var body ActionCreatedBody
	if err := bindOptional(ctx, &body); err != nil {
		return c.badRequest(ctx, "Invalid request body")
	}
	action, err := c.incidents.MarkActionCreated(ctx.Request().Context(), ctx.Param("id"), body.EntityType, body.EntityID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to mark action created", http.StatusInternalServerError)
	}
	if action == nil {
		return c.badRequest(ctx, "Action ID is required")
	}

	c.log.Info("action created",
		logger.String("action_id", action.ID),
		logger.String("incident_id", action.IncidentID))
	return ctx.JSON(http.StatusOK, action)
}

// UpdateActionStatus moves an action to IN_PROGRESS, COMPLETED, CANCELED or FAILED.
func (c *Controller) UpdateActionStatus(ctx echo.Context) error {
	var body ActionStatusBody
	if err := ctx.Bind(&body); err != nil {
		return c.badRequest(ctx, "Invalid request body")
	}
	status := entities.ActionStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	action, err := c.incidents.UpdateActionStatus(ctx.Request().Context(), ctx.Param("id"), status)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to update action status", http.StatusInternalServerError)
	}
	if action == nil {
		return c.badRequest(ctx, "status must be IN_PROGRESS, COMPLETED, CANCELED or FAILED")
	}
	return ctx.JSON(http.StatusOK, action)
}
