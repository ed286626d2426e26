package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vacancy_syncer/internal/domain"
)

const maxRunsLimit = 500

type Importer interface {
	Run(ctx context.Context, sourceID string) ([]domain.RunSummary, error)
	Runs(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error)
}

type Handler struct {
	importer   Importer
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewHandler(importer Importer, runTimeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		importer:   importer,
		runTimeout: runTimeout,
		logger:     logger.With("component", "api"),
	}
}

type syncRequest struct {
	SourceID string `json:"source_id"`
}

// Sync runs the pipeline synchronously for one source or all enabled ones. The
// pass outlives a disconnected client and is bounded by the run timeout.
func (h *Handler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.runTimeout)
	defer cancel()

	summaries, err := h.importer.Run(ctx, req.SourceID)
	if errors.Is(err, domain.ErrNoEnabledSources) {
		c.JSON(http.StatusOK, gin.H{"message": "No enabled sources"})
		return
	}
	if err != nil {
		h.logger.Error("sync failed", "source_id", req.SourceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": summaries})
}

func (h *Handler) ListRuns(c *gin.Context) {
	filter := domain.RunFilter{SourceID: c.Query("source_id")}

	if filter.SourceID != "" {
		if _, err := uuid.Parse(filter.SourceID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source_id must be a uuid"})
			return
		}
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		filter.Since = t
	}

	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 || n > maxRunsLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxRunsLimit)})
			return
		}
		filter.Limit = n
	}

	runs, err := h.importer.Runs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
