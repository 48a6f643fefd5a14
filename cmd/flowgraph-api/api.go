// Package main provides the Flowgraph API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/flowgraph/pkg/eventbus"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/services"
	"github.com/dukex/flowgraph/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger     *slog.Logger
	executions *services.Executions
}

func NewAPI(
	logger *slog.Logger,
	repository persistence.ExecutionRepository,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:     logger,
		executions: services.NewExecutions(repository, eventBus),
	}
}

func (a *API) SetTracer(tracer trace.Tracer) {
	a.executions.SetTracer(tracer)
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.executions)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowgraph API")
	})

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Post("/", handlers.CreateExecution)
	e.Get("/:id", handlers.GetExecution)
	e.Get("/:id/nodes", handlers.GetNodes)
	e.Get("/:id/nodes/:nodeId", handlers.GetNode)
	e.Get("/:id/nodes/:nodeId/enclosing", handlers.GetEnclosing)
	e.Get("/:id/scan", handlers.GetScan)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
