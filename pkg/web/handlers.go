package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flowgraph/pkg/services"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	executions *services.Executions
}

func NewAPIHandlers(executions *services.Executions) *APIHandlers {
	return &APIHandlers{
		executions: executions,
	}
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	ids, err := h.executions.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	if ids == nil {
		ids = []string{}
	}

	return c.JSON(fiber.Map{
		"executions":  ids,
		"total_count": len(ids),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	summary, err := h.executions.Summary(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(summary)
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	nodes, err := h.executions.Nodes(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	responses := make([]NodeResponse, 0, len(nodes))
	for _, n := range nodes {
		responses = append(responses, TransformNodeResponse(n))
	}

	return c.JSON(fiber.Map{
		"nodes":       responses,
		"total_count": len(responses),
	})
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	id := c.Params("id")
	nodeID := c.Params("nodeId")

	if id == "" || nodeID == "" {
		return badRequest(c, "Execution ID and node ID are required")
	}

	n, active, err := h.executions.Node(c.Context(), id, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := TransformNodeResponse(n)
	response.Active = &active

	return c.JSON(response)
}

func (h *APIHandlers) GetEnclosing(c fiber.Ctx) error {
	id := c.Params("id")
	nodeID := c.Params("nodeId")

	if id == "" || nodeID == "" {
		return badRequest(c, "Execution ID and node ID are required")
	}

	blocks, err := h.executions.Enclosing(c.Context(), id, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	responses := make([]NodeResponse, 0, len(blocks))
	for _, b := range blocks {
		responses = append(responses, TransformNodeResponse(b))
	}

	return c.JSON(fiber.Map{
		"enclosing":   responses,
		"total_count": len(responses),
	})
}

// GetScan walks the history backwards. Query parameters: mode selects the
// scanner (depth-first when empty), from overrides the starting frontier,
// stop is a comma-separated exclusive boundary.
func (h *APIHandlers) GetScan(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	mode := c.Query("mode")
	fromID := c.Query("from")

	var stopIDs []string
	if stop := c.Query("stop"); stop != "" {
		stopIDs = strings.Split(stop, ",")
	}

	nodes, err := h.executions.Scan(c.Context(), id, mode, fromID, stopIDs)
	if err != nil {
		return handleServiceError(c, err)
	}

	responses := make([]NodeResponse, 0, len(nodes))
	for _, n := range nodes {
		responses = append(responses, TransformNodeResponse(n))
	}

	return c.JSON(fiber.Map{
		"mode":        mode,
		"nodes":       responses,
		"total_count": len(responses),
	})
}

func (h *APIHandlers) CreateExecution(c fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return badRequest(c, "Request body is required")
	}

	summary, err := h.executions.Upload(c.Context(), body)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(summary)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.executions.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowgraph API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Flowgraph API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
