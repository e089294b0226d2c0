package http

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	apierrors "github.com/Apurer/go-entity-processors/internal/shared/errors"
)

// RouterOptions configures the callback router.
type RouterOptions struct {
	ServiceName string
	Logger      *slog.Logger
	// Auth protects the /v1 routes when set.
	Auth *EngineAuth
	// Metrics instruments every route and exposes /metrics when set.
	Metrics *Metrics
}

// NewRouter builds the gin engine serving engine callbacks.
func NewRouter(api *HandlerAPI, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		opts.Logger.Error("engine callback panicked", slog.String("path", c.Request.URL.Path), slog.Any("panic", recovered))
		apierrors.RespondError(c, fmt.Errorf("handler panicked: %v", recovered))
		c.Abort()
	}))
	if opts.ServiceName != "" {
		router.Use(otelgin.Middleware(opts.ServiceName))
	}
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	router.GET("/healthz", api.Healthz)

	v1 := router.Group("/v1")
	if opts.Auth != nil {
		v1.Use(opts.Auth.Middleware())
	}
	v1.POST("/processors/:name", api.RunProcessor)
	v1.POST("/criteria/:name", api.EvaluateCriterion)
	v1.GET("/handlers", api.ListHandlers)
	return router
}
