package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost      = 12
	cookieMaxAgeSec = 7 * 24 * 60 * 60
)

type AuthHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewAuthHandler(db *sql.DB, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		db:     db,
		logger: logger,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email, and password are required"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters long"})
		return
	}
	role := req.Role
	if role == "" {
		role = string(models.RoleBuyer)
	}
	if role != string(models.RoleBuyer) && role != string(models.RoleSeller) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be either buyer or seller"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existingID int
	err := h.db.QueryRowContext(c.Request.Context(),
		"SELECT id FROM users WHERE email = $1", email).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	} else if err != sql.ErrNoRows {
		h.logger.Error("Database error", zap.String("trace_id", middleware.GetTraceID(c.Request.Context())), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var user models.AuthUser
	err = h.db.QueryRowContext(c.Request.Context(),
		"INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id, name, email, role",
		strings.TrimSpace(req.Name), email, string(hashedPassword), role,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role)
	if err != nil {
		h.logger.Error("Failed to create user", zap.String("trace_id", middleware.GetTraceID(c.Request.Context())), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := middleware.GenerateToken(user)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setAuthCookie(c, token)

	h.logger.Info("User registered", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.AuthUser
	var passwordHash string
	err := h.db.QueryRowContext(c.Request.Context(),
		"SELECT id, name, email, role, password_hash FROM users WHERE email = $1",
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &passwordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		h.logger.Error("Database error", zap.String("trace_id", middleware.GetTraceID(c.Request.Context())), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := middleware.GenerateToken(user)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setAuthCookie(c, token)

	h.logger.Info("User logged in", zap.String("email", user.Email))
	c.JSON(http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user's full profile.
func (h *AuthHandler) Me(c *gin.Context) {
	auth := middleware.CurrentUser(c)

	user, err := loadUser(c, h.db, auth.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func setAuthCookie(c *gin.Context, token string) {
	c.SetCookie(middleware.AuthCookieName, token, cookieMaxAgeSec, "/", "", false, true)
}
