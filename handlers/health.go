package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/classmate-ai/backend/database"
	"github.com/classmate-ai/backend/utils/response"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	store *database.GORMStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *database.GORMStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check handles GET /ping
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.store.HealthCheck(); err != nil {
		dbStatus = "unreachable"
	}

	return response.Success(c, fiber.Map{
		"status":   "ok",
		"database": dbStatus,
	})
}
