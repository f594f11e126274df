package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketpulse/server/config"
	"marketpulse/server/internal/bedrooms"
	"marketpulse/server/internal/cache"
	"marketpulse/server/internal/compare"
	"marketpulse/server/internal/database"
	"marketpulse/server/internal/models"
	"marketpulse/server/internal/reports"
)

type Handler struct {
	db      *database.Database
	logger  *logrus.Logger
	builder *reports.Builder
	service *compare.Service
}

type RecalculateRequest struct {
	EntityType *string  `json:"entity_type"`
	EntityID   *int64   `json:"entity_id"`
	Bedrooms   []string `json:"bedrooms"`
}

func NewHandler(db *database.Database, store *cache.Store, cfg *config.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:      db,
		logger:  logger,
		builder: reports.NewBuilder(db, cfg, logger, nil),
		service: compare.NewService(db, store, cfg, logger, nil),
	}
}

// Recalculate triggers a batch recalculation run, optionally narrowed to
// one entity and/or a list of bedroom classes.
func (h *Handler) Recalculate(c *gin.Context) {
	var req RecalculateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.WithError(err).Error("Failed to parse recalculate request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
			return
		}
	}

	filter := reports.Filter{
		EntityID: req.EntityID,
		Classes:  req.Bedrooms,
	}
	if req.EntityType != nil {
		et := models.EntityType(*req.EntityType)
		switch et {
		case models.EntityBuilding, models.EntityArea, models.EntityCity:
			filter.EntityType = &et
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity type"})
			return
		}
	}

	summary, err := h.builder.Run(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Recalculation run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recalculation failed"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetReport returns the latest report row for (entity, bedroom class).
// A missing report is an explicit 404, never a zero-filled stub.
func (h *Handler) GetReport(c *gin.Context) {
	entityType := models.EntityType(c.Param("entity_type"))
	switch entityType {
	case models.EntityBuilding, models.EntityArea, models.EntityCity:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity type"})
		return
	}

	entityID, err := strconv.ParseInt(c.Param("entity_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity id"})
		return
	}

	class, err := bedrooms.Normalize(c.Query("bedrooms"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unresolvable bedroom class"})
		return
	}

	report, err := h.db.GetReport(c.Request.Context(), entityType, entityID, class)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Compare answers an ad-hoc market query.
func (h *Handler) Compare(c *gin.Context) {
	persist, _ := strconv.ParseBool(c.DefaultQuery("persist", "false"))

	req := compare.Request{
		Kind:       models.Kind(c.Query("kind")),
		SearchTerm: c.Query("q"),
		Bedrooms:   c.Query("bedrooms"),
		Period:     c.DefaultQuery("period", "1 year"),
		Persist:    persist,
	}

	result, err := h.service.Compare(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, compare.ErrInvalidKind),
			errors.Is(err, config.ErrInvalidPeriod),
			errors.Is(err, bedrooms.ErrUnresolvable):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.WithError(err).Error("Comparison query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Comparison failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCompareHistory returns the most recent persisted comparison queries.
func (h *Handler) GetCompareHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	logs, err := h.db.GetQueryLogs(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get query history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get query history"})
		return
	}

	c.JSON(http.StatusOK, logs)
}
