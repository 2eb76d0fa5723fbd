package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/Figuelia98/wdd430-group-project/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func identityEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "role": string(user.Role)})
	}
}

func TestRequireAuthWithBearerToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	token, err := GenerateToken(models.AuthUser{ID: 5, Name: "Jane", Email: "jane@example.com", Role: models.RoleBuyer})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, role FROM users WHERE id = $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
			AddRow(5, "Jane", "jane@example.com", "buyer"))

	router := gin.New()
	router.GET("/me", RequireAuth(db, zaptest.NewLogger(t)), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuthWithCookie(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	token, err := GenerateToken(models.AuthUser{ID: 5, Name: "Jane", Email: "jane@example.com", Role: models.RoleBuyer})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, role FROM users WHERE id = $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
			AddRow(5, "Jane", "jane@example.com", "buyer"))

	router := gin.New()
	router.GET("/me", RequireAuth(db, zaptest.NewLogger(t)), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuthMissingToken(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	router := gin.New()
	router.GET("/me", RequireAuth(db, zaptest.NewLogger(t)), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuthDeletedUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	token, err := GenerateToken(models.AuthUser{ID: 5, Role: models.RoleBuyer})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, role FROM users WHERE id = $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}))

	router := gin.New()
	router.GET("/me", RequireAuth(db, zaptest.NewLogger(t)), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", w.Code)
	}
}

func TestRequireSellerRejectsBuyer(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	token, err := GenerateToken(models.AuthUser{ID: 5, Role: models.RoleBuyer})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, role FROM users WHERE id = $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
			AddRow(5, "Jane", "jane@example.com", "buyer"))

	router := gin.New()
	router.GET("/seller", RequireSeller(db, zaptest.NewLogger(t)), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/seller", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for buyer on seller route, got %d", w.Code)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	token, err := GenerateToken(models.AuthUser{ID: 5, Role: models.RoleBuyer})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := parseToken(token + "tampered"); err == nil {
		t.Error("expected tampered token to be rejected")
	}
	if _, err := parseToken(token); err != nil {
		t.Errorf("expected valid token to parse: %v", err)
	}
}
