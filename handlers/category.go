package handlers

import (
	"database/sql"
	"net/http"

	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCategoryHandler(db *sql.DB, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		db:     db,
		logger: logger,
	}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetCategories")
	defer span.End()

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, name, slug, description, image, sort_order, is_active, created_at, updated_at
		FROM categories WHERE is_active = TRUE
		ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug,
			&category.Description, &category.Image, &category.SortOrder,
			&category.IsActive, &category.CreatedAt, &category.UpdatedAt); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan category", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		categories = append(categories, category)
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "CreateCategory")
	defer span.End()

	user := middleware.CurrentUser(c)

	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}

	slug := slugify(req.Name)

	var existingID int
	err := h.db.QueryRowContext(ctx,
		"SELECT id FROM categories WHERE slug = $1", slug).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Category already exists"})
		return
	} else if err != sql.ErrNoRows {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	category := models.Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Image:       req.Image,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	}

	err = h.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug, description, image, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		category.Name, category.Slug, category.Description, category.Image, category.SortOrder,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create category", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.Info("Category created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("slug", slug),
		zap.Int("user_id", user.ID),
	)
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Category created successfully",
		"category": category,
	})
}
