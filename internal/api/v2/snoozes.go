package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SnoozeBody is the body of the snooze endpoint.
type SnoozeBody struct {
	SnoozeUntil time.Time `json:"snooze_until"`
	Reason      *string   `json:"reason,omitempty"`
}

func (c *Controller) initSnoozeRoutes() {
	props := c.Group.Group("/properties/:propertyId")
	props.GET("/snoozes", c.ListSnoozes)
	props.GET("/snoozes/:actionKey", c.GetSnooze)
	props.PUT("/snoozes/:actionKey", c.SnoozeAction)
	props.DELETE("/snoozes/:actionKey", c.UnsnoozeAction)
	props.GET("/suppression/:actionId", c.GetSuppression)
}

// ListSnoozes returns the active snooze per action key for a property.
func (c *Controller) ListSnoozes(ctx echo.Context) error {
	snoozes, err := c.snoozes.GetPropertySnoozes(ctx.Request().Context(), ctx.Param("propertyId"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list snoozes", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"snoozes": snoozes, "count": len(snoozes)})
}

// GetSnooze returns the active snooze for the key, or null.
func (c *Controller) GetSnooze(ctx echo.Context) error {
	active, err := c.snoozes.GetActiveSnooze(ctx.Request().Context(), ctx.Param("propertyId"), ctx.Param("actionKey"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get snooze", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, active)
}

// SnoozeAction replaces the key's open window with a new one.
func (c *Controller) SnoozeAction(ctx echo.Context) error {
	var body SnoozeBody
	if err := ctx.Bind(&body); err != nil {
		return c.badRequest(ctx, "Invalid request body")
	}

	reqCtx := ctx.Request().Context()
	propertyID, actionKey := ctx.Param("propertyId"), ctx.Param("actionKey")
	ok, err := c.snoozes.SnoozeAction(reqCtx, propertyID, actionKey, body.SnoozeUntil, body.Reason)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to snooze action", http.StatusInternalServerError)
	}
	if !ok {
		return c.badRequest(ctx, "snooze_until must be in the future")
	}

	active, err := c.snoozes.GetActiveSnooze(reqCtx, propertyID, actionKey)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read snooze", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, active)
}

// UnsnoozeAction ends the key's open windows.
func (c *Controller) UnsnoozeAction(ctx echo.Context) error {
	ok, err := c.snoozes.UnsnoozeAction(ctx.Request().Context(), ctx.Param("propertyId"), ctx.Param("actionKey"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to unsnooze action", http.StatusInternalServerError)
	}
	if !ok {
		return c.badRequest(ctx, "Property ID and action key are required")
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"unsnoozed": true})
}

// GetSuppression returns the source suppressing the action, or null.
func (c *Controller) GetSuppression(ctx echo.Context) error {
	source := c.suppression.Resolve(ctx.Request().Context(), ctx.Param("propertyId"), ctx.Param("actionId"))
	if source == nil {
		return ctx.JSON(http.StatusOK, nil)
	}
	return ctx.JSON(http.StatusOK, source)
}
