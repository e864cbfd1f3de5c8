package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/repository"
	"github.com/healthplan/scheduler/internal/validate"
)

// runExecutor is the subset of RunService the handler needs. Defined here
// (point of use) so tests can inject a fake.
type runExecutor interface {
	Execute(ctx context.Context, req domain.RunRequest, userEmail string) (*domain.RunRecord, error)
}

// runFinder is the subset of RunRepository the handler needs for the read
// endpoints.
type runFinder interface {
	FindByID(ctx context.Context, id string) (*domain.RunRecord, error)
	ListByUser(ctx context.Context, userID string, cursor *repository.RunCursor, limit int) ([]*domain.RunRecord, *repository.RunCursor, error)
}

type RunHandler struct {
	executor runExecutor
	runs     runFinder
	logger   *slog.Logger
}

func NewRunHandler(executor runExecutor, runs runFinder, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		executor: executor,
		runs:     runs,
		logger:   logger.With("component", "run_handler"),
	}
}

// POST /v1/runs
func (h *RunHandler) Create(c *gin.Context) {
	var req domain.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	req.UserID = userID.(string)

	record, err := h.executor.Execute(c.Request.Context(), req, "")
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Violations})
			return
		}
		h.logger.Error("execute run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, record.Result)
}

// GET /v1/runs/:id
func (h *RunHandler) GetByID(c *gin.Context) {
	userID, _ := c.Get("userID")

	record, err := h.runs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errRunNotFound})
			return
		}
		h.logger.Error("find run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	if record.UserID != userID.(string) {
		c.JSON(http.StatusNotFound, gin.H{"error": errRunNotFound})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GET /v1/runs?cursor=<base64url json>&limit=20
func (h *RunHandler) List(c *gin.Context) {
	userID, _ := c.Get("userID")

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	cursor, err := decodeCursor(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	}

	records, next, err := h.runs.ListByUser(c.Request.Context(), userID.(string), cursor, limit)
	if err != nil {
		h.logger.Error("list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	resp := gin.H{"runs": records}
	if next != nil {
		resp["next_cursor"] = encodeCursor(next)
	}
	c.JSON(http.StatusOK, resp)
}

func decodeCursor(raw string) (*repository.RunCursor, error) {
	if raw == "" {
		return nil, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	var cursor repository.RunCursor
	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

func encodeCursor(cursor *repository.RunCursor) string {
	encoded, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(encoded)
}
