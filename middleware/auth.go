package middleware

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// AuthCookieName is the httpOnly session cookie set at register/login.
	AuthCookieName = "auth-token"
	userContextKey = "auth_user"

	tokenTTL = 7 * 24 * time.Hour
)

func jwtSecret() []byte {
	return []byte(getEnv("JWT_SECRET", "fallback-secret"))
}

// GenerateToken signs a 7-day token carrying the user's identity and role.
func GenerateToken(user models.AuthUser) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"role":    string(user.Role),
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(jwtSecret())
}

func parseToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return 0, jwt.ErrTokenUnverifiable
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return int(userID), nil
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireAuth resolves the request to a user identity. The token is accepted
// as a bearer header or the auth cookie; the user must still exist in the
// database for the token to count.
func RequireAuth(db *sql.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveUser(c, db, logger)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireSeller is RequireAuth plus a seller role check.
func RequireSeller(db *sql.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveUser(c, db, logger)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if user.Role != models.RoleSeller {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Seller access required"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func resolveUser(c *gin.Context, db *sql.DB, logger *zap.Logger) (models.AuthUser, bool) {
	tokenString := extractToken(c)
	if tokenString == "" {
		return models.AuthUser{}, false
	}

	userID, err := parseToken(tokenString)
	if err != nil {
		return models.AuthUser{}, false
	}

	var user models.AuthUser
	err = db.QueryRowContext(c.Request.Context(),
		"SELECT id, name, email, role FROM users WHERE id = $1",
		userID,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error("Failed to resolve user from token", zap.Error(err))
		}
		return models.AuthUser{}, false
	}

	return user, true
}

// CurrentUser returns the identity stored by RequireAuth/RequireSeller.
func CurrentUser(c *gin.Context) models.AuthUser {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(models.AuthUser); ok {
			return user
		}
	}
	return models.AuthUser{}
}

// SetCurrentUser injects an identity directly, bypassing token checks. Used
// by handler tests.
func SetCurrentUser(c *gin.Context, user models.AuthUser) {
	c.Set(userContextKey, user)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
