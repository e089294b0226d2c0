package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-entity-processors/internal/processing"
	apierrors "github.com/Apurer/go-entity-processors/internal/shared/errors"
)

// HandlerAPI serves engine callbacks for processors and criteria.
type HandlerAPI struct {
	dispatcher processing.Dispatcher
	logger     *slog.Logger
}

// NewHandlerAPI creates the callback API backed by the dispatcher.
func NewHandlerAPI(dispatcher processing.Dispatcher, logger *slog.Logger) *HandlerAPI {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HandlerAPI{dispatcher: dispatcher, logger: logger}
}

// Post /v1/processors/:name
// Runs a processor over the entity carried in the request envelope
func (api *HandlerAPI) RunProcessor(c *gin.Context) {
	name, ok := bindNameParam(c)
	if !ok {
		return
	}
	var req processing.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.logger.LogAttrs(c.Request.Context(), slog.LevelDebug, "malformed processor envelope",
			slog.String("processor", name), slog.String("error", err.Error()))
		apierrors.Respond(c, apierrors.ErrMalformedEnvelope.WithDetail(err.Error()))
		return
	}
	if req.ProcessorName == "" {
		req.ProcessorName = name
	}
	if req.ProcessorName != name {
		apierrors.Respond(c, apierrors.ErrMalformedEnvelope.WithDetail("processorName does not match the route"))
		return
	}
	resp, err := api.dispatcher.Process(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, processing.ErrUnknownHandler) {
			apierrors.Respond(c, apierrors.NewUnknownHandlerProblem("processor", name))
			return
		}
		c.JSON(http.StatusOK, processing.FailedProcessResponse(req, err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Post /v1/criteria/:name
// Evaluates a criterion over the entity carried in the request envelope
func (api *HandlerAPI) EvaluateCriterion(c *gin.Context) {
	name, ok := bindNameParam(c)
	if !ok {
		return
	}
	var req processing.CriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.logger.LogAttrs(c.Request.Context(), slog.LevelDebug, "malformed criterion envelope",
			slog.String("criterion", name), slog.String("error", err.Error()))
		apierrors.Respond(c, apierrors.ErrMalformedEnvelope.WithDetail(err.Error()))
		return
	}
	if req.CriterionName == "" {
		req.CriterionName = name
	}
	if req.CriterionName != name {
		apierrors.Respond(c, apierrors.ErrMalformedEnvelope.WithDetail("criterionName does not match the route"))
		return
	}
	resp, err := api.dispatcher.Evaluate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, processing.ErrUnknownHandler) {
			apierrors.Respond(c, apierrors.NewUnknownHandlerProblem("criterion", name))
			return
		}
		c.JSON(http.StatusOK, processing.FailedCriterionResponse(req, err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandlerList is the catalogue of registered handler names.
type HandlerList struct {
	Processors []string `json:"processors"`
	Criteria   []string `json:"criteria"`
}

// Get /v1/handlers
// Lists registered processors and criteria
func (api *HandlerAPI) ListHandlers(c *gin.Context) {
	c.JSON(http.StatusOK, HandlerList{
		Processors: api.dispatcher.Processors(),
		Criteria:   api.dispatcher.Criteria(),
	})
}

// Get /healthz
func (api *HandlerAPI) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
