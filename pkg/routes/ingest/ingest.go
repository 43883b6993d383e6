// Package ingest exposes the HTTP ingest entry, mirroring the Kafka
// path for webhooks and manual testing.
package ingest

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/pipeline"
)

// Request is one inbound chat message.
type Request struct {
	CustomerID string     `json:"customer_id" validate:"required"`
	Text       string     `json:"text" validate:"required"`
	Timestamp  *time.Time `json:"timestamp"`
}

// Handler serves the ingest route.
type Handler struct {
	pipeline *pipeline.Pipeline
	validate *validator.Validate
	logger   ectologger.Logger
}

// NewHandler creates an ingest handler.
func NewHandler(p *pipeline.Pipeline, logger ectologger.Logger) *Handler {
	return &Handler{
		pipeline: p,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the ingest endpoint.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/messages", h.Post)
}

// Post ingests one chat message.
func (h *Handler) Post(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	var err error
	if req.Timestamp != nil {
		err = h.pipeline.ProcessMessageAt(ctx, req.CustomerID, req.Text, *req.Timestamp)
	} else {
		err = h.pipeline.ProcessMessage(ctx, req.CustomerID, req.Text)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}
