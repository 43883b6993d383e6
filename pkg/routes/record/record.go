// Package record exposes the admin surface over pending aggregation
// records: inspect, force-finalize, discard.
package record

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/store"
)

// Handler serves the record admin routes.
type Handler struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	logger   ectologger.Logger
}

// NewHandler creates a record handler.
func NewHandler(p *pipeline.Pipeline, s store.Store, logger ectologger.Logger) *Handler {
	return &Handler{
		pipeline: p,
		store:    s,
		logger:   logger,
	}
}

// RegisterRoutes registers the record endpoints.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/records/:customer_id", h.Get)
	e.POST("/api/v1/records/:customer_id/finalize", h.Finalize)
	e.DELETE("/api/v1/records/:customer_id", h.Discard)
}

// Get returns the pending record for a customer.
func (h *Handler) Get(c echo.Context) error {
	customerID := c.Param("customer_id")

	record, err := h.store.Get(c.Request().Context(), customerID)
	if err != nil {
		return err
	}
	if record == nil {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no pending record for customer %s", customerID))
	}

	return c.JSON(http.StatusOK, record)
}

// Finalize exports the pending record immediately, regardless of timing
// rules.
func (h *Handler) Finalize(c echo.Context) error {
	customerID := c.Param("customer_id")

	finalized, err := h.pipeline.ForceFinalize(c.Request().Context(), customerID)
	if err != nil {
		return err
	}
	if !finalized {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no pending record for customer %s", customerID))
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "finalized"})
}

// Discard drops the pending record without exporting it.
func (h *Handler) Discard(c echo.Context) error {
	customerID := c.Param("customer_id")
	ctx := c.Request().Context()

	record, err := h.store.Get(ctx, customerID)
	if err != nil {
		return err
	}
	if record == nil {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no pending record for customer %s", customerID))
	}

	if err := h.store.Delete(ctx, customerID); err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{"customer_id": customerID}).Info("Discarded pending record")
	return c.NoContent(http.StatusNoContent)
}
