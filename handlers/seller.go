package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type SellerHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSellerHandler(db *sql.DB, logger *zap.Logger) *SellerHandler {
	return &SellerHandler{
		db:     db,
		logger: logger,
	}
}

const userColumns = "id, name, email, role, avatar, business_name, business_description, " +
	"business_address, business_phone, business_website, craft_specialties, " +
	"years_of_experience, social_facebook, social_instagram, social_twitter, " +
	"created_at, updated_at"

// loadUser fetches the full profile row, seller fields included.
func loadUser(c *gin.Context, db *sql.DB, userID int) (models.User, error) {
	var user models.User
	err := db.QueryRowContext(c.Request.Context(),
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID,
	).Scan(
		&user.ID, &user.Name, &user.Email, &user.Role, &user.Avatar,
		&user.BusinessName, &user.BusinessDescription, &user.BusinessAddress,
		&user.BusinessPhone, &user.BusinessWebsite, pq.Array(&user.CraftSpecialties),
		&user.YearsOfExperience, &user.SocialMedia.Facebook, &user.SocialMedia.Instagram,
		&user.SocialMedia.Twitter, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetSeller is the public storefront view: the seller's profile plus their
// active listings. Email is withheld.
func (h *SellerHandler) GetSeller(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetSeller")
	defer span.End()

	sellerID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid seller ID"})
		return
	}
	span.SetAttributes(attribute.Int("seller.id", sellerID))

	seller, err := loadUser(c, h.db, sellerID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to load seller", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if seller.Role != models.RoleSeller {
		c.JSON(http.StatusNotFound, gin.H{"error": "Seller not found"})
		return
	}
	seller.Email = ""

	rows, err := h.db.QueryContext(ctx,
		"SELECT "+productColumns+productFrom+
			" WHERE p.seller_id = $1 AND p.is_active = TRUE ORDER BY p.created_at DESC",
		sellerID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch seller products", zap.Error(err))
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

	c.JSON(http.StatusOK, gin.H{
		"seller":   seller,
		"products": products,
	})
}

func (h *SellerHandler) GetProfile(c *gin.Context) {
	auth := middleware.CurrentUser(c)

	user, err := loadUser(c, h.db, auth.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": user})
}

func (h *SellerHandler) UpdateProfile(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "UpdateSellerProfile")
	defer span.End()

	auth := middleware.CurrentUser(c)

	var req models.UpdateSellerProfileRequest
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

	if req.BusinessName != "" {
		addSet("business_name", req.BusinessName)
	}
	if req.BusinessDescription != "" {
		addSet("business_description", req.BusinessDescription)
	}
	if req.BusinessAddress != "" {
		addSet("business_address", req.BusinessAddress)
	}
	if req.BusinessPhone != "" {
		addSet("business_phone", req.BusinessPhone)
	}
	if req.BusinessWebsite != "" {
		addSet("business_website", req.BusinessWebsite)
	}
	if req.CraftSpecialties != nil {
		addSet("craft_specialties", pq.Array(req.CraftSpecialties))
	}
	if req.YearsOfExperience > 0 {
		addSet("years_of_experience", req.YearsOfExperience)
	}
	if req.SocialMedia.Facebook != "" {
		addSet("social_facebook", req.SocialMedia.Facebook)
	}
	if req.SocialMedia.Instagram != "" {
		addSet("social_instagram", req.SocialMedia.Instagram)
	}
	if req.SocialMedia.Twitter != "" {
		addSet("social_twitter", req.SocialMedia.Twitter)
	}

	if len(setClauses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
	query := "UPDATE users SET " + strings.Join(setClauses, ", ") +
		" WHERE id = $" + strconv.Itoa(argCount)
	args = append(args, auth.ID)

	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user, err := loadUser(c, h.db, auth.ID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to reload profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.Info("Seller profile updated",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("user_id", auth.ID),
	)
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"profile": user,
	})
}
