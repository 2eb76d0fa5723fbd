package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/Figuelia98/wdd430-group-project/cache"
	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewReviewHandler(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "CreateReview")
	defer span.End()

	user := middleware.CurrentUser(c)

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", productID))

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Rating == 0 || req.Comment == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating and comment are required"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		return
	}

	var exists int
	err = h.db.QueryRowContext(ctx,
		"SELECT id FROM products WHERE id = $1 AND is_active = TRUE", productID).Scan(&exists)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	} else if err != nil {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	err = h.db.QueryRowContext(ctx,
		"SELECT id FROM reviews WHERE product_id = $1 AND user_id = $2",
		productID, user.ID).Scan(&exists)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You have already reviewed this product"})
		return
	} else if err != sql.ErrNoRows {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var verified bool
	err = h.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.product_id = $1 AND o.buyer_id = $2 AND o.status = 'delivered'
		)`, productID, user.ID).Scan(&verified)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	review := models.Review{
		ProductID:          productID,
		UserID:             user.ID,
		UserName:           user.Name,
		Rating:             req.Rating,
		Title:              req.Title,
		Comment:            req.Comment,
		Images:             req.Images,
		IsVerifiedPurchase: verified,
		IsApproved:         true,
	}
	if review.Images == nil {
		review.Images = []string{}
	}

	err = h.db.QueryRowContext(ctx,
		`INSERT INTO reviews (product_id, user_id, rating, title, comment, images, is_verified_purchase, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id, created_at, updated_at`,
		productID, user.ID, req.Rating, req.Title, req.Comment, pq.Array(review.Images), verified,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		// The pre-check races with concurrent submissions; the unique index
		// on (product_id, user_id) is the authority.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "You have already reviewed this product"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to create review", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := h.recomputeProductRating(ctx, productID); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to recompute product rating",
			zap.Int("product_id", productID), zap.Error(err))
	}

	if h.redisClient != nil {
		if err := cache.DeleteProduct(ctx, h.redisClient, strconv.Itoa(productID)); err != nil {
			h.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}

	h.logger.Info("Review created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("product_id", productID),
		zap.Int("user_id", user.ID),
		zap.Int("rating", req.Rating),
	)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Review submitted successfully",
		"review":  review,
	})
}

// recomputeProductRating folds the approved reviews back onto the product
// row: mean rating rounded to one decimal, plus the review count.
func (h *ReviewHandler) recomputeProductRating(ctx context.Context, productID int) error {
	_, err := h.db.ExecContext(ctx,
		`UPDATE products SET
			average_rating = COALESCE((
				SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews
				WHERE product_id = $1 AND is_approved = TRUE), 0),
			total_reviews = (
				SELECT COUNT(*) FROM reviews
				WHERE product_id = $1 AND is_approved = TRUE),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, productID)
	return err
}

var reviewSortOrders = map[string]string{
	"newest":      "r.created_at DESC",
	"oldest":      "r.created_at ASC",
	"rating-high": "r.rating DESC, r.created_at DESC",
	"rating-low":  "r.rating ASC, r.created_at DESC",
	"helpful":     "r.helpful_votes DESC, r.created_at DESC",
}

func (h *ReviewHandler) GetReviews(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetReviews")
	defer span.End()

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", productID))

	page, limit := pageParams(c, 10)
	orderBy, ok := reviewSortOrders[c.DefaultQuery("sort", "newest")]
	if !ok {
		orderBy = reviewSortOrders["newest"]
	}

	query := `SELECT r.id, r.product_id, r.user_id, r.rating, r.title, r.comment, r.images,
			r.is_verified_purchase, r.is_approved, r.helpful_votes, r.report_count,
			r.created_at, r.updated_at, u.name, u.avatar
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1 AND r.is_approved = TRUE
		ORDER BY ` + orderBy +
		" LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa((page-1)*limit)

	rows, err := h.db.QueryContext(ctx, query, productID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch reviews", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(&review.ID, &review.ProductID, &review.UserID, &review.Rating,
			&review.Title, &review.Comment, pq.Array(&review.Images),
			&review.IsVerifiedPurchase, &review.IsApproved, &review.HelpfulVotes,
			&review.ReportCount, &review.CreatedAt, &review.UpdatedAt,
			&review.UserName, &review.UserAvatar); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan review", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		reviews = append(reviews, review)
	}
	rows.Close()

	var total int
	var averageRating float64
	err = h.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(ROUND(AVG(rating)::numeric, 1), 0)
		FROM reviews WHERE product_id = $1 AND is_approved = TRUE`,
		productID).Scan(&total, &averageRating)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to count reviews", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	distRows, err := h.db.QueryContext(ctx,
		`SELECT rating, COUNT(*) FROM reviews
		WHERE product_id = $1 AND is_approved = TRUE
		GROUP BY rating`, productID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch rating distribution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer distRows.Close()

	counts := make(map[int]int, 5)
	for distRows.Next() {
		var rating, count int
		if err := distRows.Scan(&rating, &count); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan rating distribution", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		counts[rating] = count
	}
	distRows.Close()

	distribution := make([]models.RatingBucket, 0, 5)
	for rating := 5; rating >= 1; rating-- {
		bucket := models.RatingBucket{Rating: rating, Count: counts[rating]}
		if total > 0 {
			bucket.Percentage = int(float64(counts[rating])/float64(total)*100 + 0.5)
		}
		distribution = append(distribution, bucket)
	}

	span.SetAttributes(attribute.Int("reviews.count", len(reviews)))
	c.JSON(http.StatusOK, gin.H{
		"reviews":    reviews,
		"pagination": models.NewPagination(page, limit, total),
		"stats": gin.H{
			"averageRating": averageRating,
			"totalReviews":  total,
			"distribution":  distribution,
		},
	})
}
