package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := performRequest(router, http.MethodGet, "/health", nil)

	requireStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body["status"])
	}
	if body["service"] != "handcrafted-haven" {
		t.Errorf("unexpected service name %v", body["service"])
	}
}
