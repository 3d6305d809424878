package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/brevity_server/internal/database"
	"github.com/qs3c/brevity_server/internal/pkg/response"
)

func TestHealthHandler(t *testing.T) {
	env := setupEnv(t)
	h := NewHealthHandler(&database.DB{DB: env.DB}, env.Redis)
	router := gin.New()
	router.GET("/healthz", h.Healthz)

	w := performRequest(router, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	env.Mini.Close()
	w = performRequest(router, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, "unavailable", resp.Data.(map[string]interface{})["redis"])
	assert.Equal(t, "ok", resp.Data.(map[string]interface{})["database"])
}
