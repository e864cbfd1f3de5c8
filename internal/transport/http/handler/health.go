package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthplan/scheduler/internal/health"
)

type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	result := h.checker.Liveness(c.Request.Context())
	c.JSON(statusCode(result.Status), result)
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.checker.Readiness(c.Request.Context())
	c.JSON(statusCode(result.Status), result)
}

func statusCode(status string) int {
	if status == "up" {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
