package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Figuelia98/wdd430-group-project/cache"
	"github.com/Figuelia98/wdd430-group-project/circuitbreaker"
	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const productCacheTTL = 5 * time.Minute

const productColumns = "p.id, p.name, p.slug, p.description, p.short_description, p.price, " +
	"p.compare_price, p.images, p.category_id, c.name, c.slug, p.seller_id, u.name, " +
	"u.business_name, p.quantity, p.track_quantity, p.allow_backorder, p.dim_length, " +
	"p.dim_width, p.dim_height, p.dim_weight, p.materials, p.tags, p.is_active, " +
	"p.is_featured, p.average_rating, p.total_reviews, p.created_at, p.updated_at"

const productFrom = " FROM products p JOIN categories c ON c.id = p.category_id JOIN users u ON u.id = p.seller_id"

type ProductHandler struct {
	db          *sql.DB
	redisClient *redis.Client
	breaker     *circuitbreaker.CircuitBreaker
	logger      *zap.Logger
}

func NewProductHandler(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		db:          db,
		redisClient: redisClient,
		breaker:     circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		logger:      logger,
	}
}

var productSortOrders = map[string]string{
	"newest":     "p.created_at DESC",
	"price-low":  "p.price ASC",
	"price-high": "p.price DESC",
	"rating":     "p.average_rating DESC, p.total_reviews DESC",
	"popular":    "p.total_reviews DESC, p.average_rating DESC",
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetProducts")
	defer span.End()

	page, limit := pageParams(c, 12)
	orderBy, ok := productSortOrders[c.DefaultQuery("sort", "newest")]
	if !ok {
		orderBy = productSortOrders["newest"]
	}

	where := []string{"p.is_active = TRUE"}
	args := []interface{}{}
	argCount := 1

	if category := c.Query("category"); category != "" {
		where = append(where, "c.slug = $"+strconv.Itoa(argCount))
		args = append(args, category)
		argCount++
	}
	if seller := c.Query("seller"); seller != "" {
		sellerID, err := strconv.Atoi(seller)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid seller ID"})
			return
		}
		where = append(where, "p.seller_id = $"+strconv.Itoa(argCount))
		args = append(args, sellerID)
		argCount++
	}
	if search := c.Query("search"); search != "" {
		where = append(where, "(p.name ILIKE $"+strconv.Itoa(argCount)+
			" OR p.description ILIKE $"+strconv.Itoa(argCount)+")")
		args = append(args, "%"+search+"%")
		argCount++
	}
	if minPrice := c.Query("minPrice"); minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			where = append(where, "p.price >= $"+strconv.Itoa(argCount))
			args = append(args, v)
			argCount++
		}
	}
	if maxPrice := c.Query("maxPrice"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			where = append(where, "p.price <= $"+strconv.Itoa(argCount))
			args = append(args, v)
			argCount++
		}
	}
	if c.Query("featured") == "true" {
		where = append(where, "p.is_featured = TRUE")
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")
	query := "SELECT " + productColumns + productFrom + whereClause +
		" ORDER BY " + orderBy +
		" LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa((page-1)*limit)
	countQuery := "SELECT COUNT(*)" + productFrom + whereClause

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan product", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		products = append(products, product)
	}
	rows.Close()

	var total int
	if err := h.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to count products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"pagination": models.NewPagination(page, limit, total),
	})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetProduct")
	defer span.End()

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", productID))

	if h.redisClient != nil {
		if data, err := cache.GetProduct(ctx, h.redisClient, strconv.Itoa(productID)); err == nil {
			var product models.Product
			if err := json.Unmarshal(data, &product); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				c.JSON(http.StatusOK, gin.H{"product": product})
				return
			}
		}
	}

	var product models.Product
	err = h.breaker.Execute(ctx, func() error {
		var scanErr error
		product, scanErr = getProductByID(ctx, h.db, productID)
		if scanErr == sql.ErrNoRows {
			return nil
		}
		return scanErr
	})
	if err == circuitbreaker.ErrCircuitOpen {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to get product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if product.ID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if h.redisClient != nil {
		if err := cache.SetProduct(ctx, h.redisClient, strconv.Itoa(productID), product, productCacheTTL); err != nil {
			h.logger.Warn("Failed to cache product", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetProductBySlug")
	defer span.End()

	slug := c.Param("slug")
	span.SetAttributes(attribute.String("product.slug", slug))

	row := h.db.QueryRowContext(ctx,
		"SELECT "+productColumns+productFrom+" WHERE p.slug = $1 AND p.is_active = TRUE", slug)
	product, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get product by slug", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "CreateProduct")
	defer span.End()

	user := middleware.CurrentUser(c)

	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" || req.Description == "" || req.Price <= 0 || req.Category == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, description, price, and category are required"})
		return
	}
	if len(req.Images) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one product image is required"})
		return
	}

	var categoryID int
	err := h.db.QueryRowContext(ctx,
		"SELECT id FROM categories WHERE id = $1 AND is_active = TRUE", req.Category).Scan(&categoryID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	} else if err != nil {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	slug, err := h.uniqueSlug(ctx, req.Name)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to generate slug", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	inventory := models.Inventory{TrackQuantity: true}
	if req.Inventory != nil {
		inventory = *req.Inventory
	}
	if req.Materials == nil {
		req.Materials = []string{}
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	product := models.Product{
		Name:             req.Name,
		Slug:             slug,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Price:            req.Price,
		ComparePrice:     req.ComparePrice,
		Images:           req.Images,
		CategoryID:       req.Category,
		SellerID:         user.ID,
		Inventory:        inventory,
		Dimensions:       req.Dimensions,
		Materials:        req.Materials,
		Tags:             req.Tags,
		IsActive:         true,
	}

	err = h.db.QueryRowContext(ctx,
		`INSERT INTO products (name, slug, description, short_description, price, compare_price,
			images, category_id, seller_id, quantity, track_quantity, allow_backorder,
			dim_length, dim_width, dim_height, dim_weight, materials, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`,
		product.Name, product.Slug, product.Description, product.ShortDescription,
		product.Price, product.ComparePrice, pq.Array(product.Images), product.CategoryID,
		product.SellerID, inventory.Quantity, inventory.TrackQuantity, inventory.AllowBackorder,
		req.Dimensions.Length, req.Dimensions.Width, req.Dimensions.Height, req.Dimensions.Weight,
		pq.Array(product.Materials), pq.Array(product.Tags),
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("product.id", product.ID))
	h.logger.Info("Product created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("product_id", product.ID),
		zap.Int("seller_id", user.ID),
		zap.String("slug", slug),
	)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "UpdateProduct")
	defer span.End()

	user := middleware.CurrentUser(c)

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", productID))

	var sellerID int
	err = h.db.QueryRowContext(ctx,
		"SELECT seller_id FROM products WHERE id = $1", productID).Scan(&sellerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	} else if err != nil {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if sellerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own products"})
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setClauses := []string{}
	args := []interface{}{}
	argCount := 1

	addSet := func(column string, value interface{}) {
		setClauses = append(setClauses, column+" = $"+strconv.Itoa(argCount))
		args = append(args, value)
		argCount++
	}

	if req.Name != "" {
		addSet("name", req.Name)
	}
	if req.Description != "" {
		addSet("description", req.Description)
	}
	if req.ShortDescription != "" {
		addSet("short_description", req.ShortDescription)
	}
	if req.Price > 0 {
		addSet("price", req.Price)
	}
	if req.ComparePrice > 0 {
		addSet("compare_price", req.ComparePrice)
	}
	if req.Images != nil {
		addSet("images", pq.Array(req.Images))
	}
	if req.Inventory != nil {
		addSet("quantity", req.Inventory.Quantity)
		addSet("track_quantity", req.Inventory.TrackQuantity)
		addSet("allow_backorder", req.Inventory.AllowBackorder)
	}
	if req.Materials != nil {
		addSet("materials", pq.Array(req.Materials))
	}
	if req.Tags != nil {
		addSet("tags", pq.Array(req.Tags))
	}
	if req.IsActive != nil {
		addSet("is_active", *req.IsActive)
	}
	if req.IsFeatured != nil {
		addSet("is_featured", *req.IsFeatured)
	}

	if len(setClauses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
	query := "UPDATE products SET " + strings.Join(setClauses, ", ") +
		" WHERE id = $" + strconv.Itoa(argCount)
	args = append(args, productID)

	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to update product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if h.redisClient != nil {
		if err := cache.DeleteProduct(ctx, h.redisClient, strconv.Itoa(productID)); err != nil {
			h.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}

	product, err := getProductByID(ctx, h.db, productID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to reload product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.Info("Product updated",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("product_id", productID),
		zap.Int("seller_id", user.ID),
	)
	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct deactivates a listing instead of removing the row, so
// existing order item references stay valid.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "DeleteProduct")
	defer span.End()

	user := middleware.CurrentUser(c)

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", productID))

	var sellerID int
	err = h.db.QueryRowContext(ctx,
		"SELECT seller_id FROM products WHERE id = $1", productID).Scan(&sellerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	} else if err != nil {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if sellerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own products"})
		return
	}

	if _, err := h.db.ExecContext(ctx,
		"UPDATE products SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1",
		productID); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to delete product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if h.redisClient != nil {
		if err := cache.DeleteProduct(ctx, h.redisClient, strconv.Itoa(productID)); err != nil {
			h.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}

	h.logger.Info("Product deleted",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("product_id", productID),
		zap.Int("seller_id", user.ID),
	)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func getProductByID(ctx context.Context, db *sql.DB, productID int) (models.Product, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+productColumns+productFrom+" WHERE p.id = $1", productID)
	return scanProduct(row)
}

func scanProduct(s rowScanner) (models.Product, error) {
	var p models.Product
	err := s.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription, &p.Price,
		&p.ComparePrice, pq.Array(&p.Images), &p.CategoryID, &p.CategoryName,
		&p.CategorySlug, &p.SellerID, &p.SellerName, &p.BusinessName,
		&p.Inventory.Quantity, &p.Inventory.TrackQuantity, &p.Inventory.AllowBackorder,
		&p.Dimensions.Length, &p.Dimensions.Width, &p.Dimensions.Height, &p.Dimensions.Weight,
		pq.Array(&p.Materials), pq.Array(&p.Tags), &p.IsActive, &p.IsFeatured,
		&p.AverageRating, &p.TotalReviews, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// uniqueSlug derives a URL slug from the product name, appending a numeric
// suffix until it does not collide with an existing listing.
func (h *ProductHandler) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "product"
	}
	slug := base
	for n := 2; ; n++ {
		var id int
		err := h.db.QueryRowContext(ctx,
			"SELECT id FROM products WHERE slug = $1", slug).Scan(&id)
		if err == sql.ErrNoRows {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}
