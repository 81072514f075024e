package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/service"
)

func newTestRouter(t *testing.T, withHistory bool) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour})

	cfg := RouterConfig{
		Metrics:    metrics,
		Auth:       auth,
		Calculator: NewCalculatorHandler(service.NewCalculatorService(nil, metrics, nil, decimal.NewFromInt(75), nil)),
		Observer:   NewMetricsHandler(metrics, nil),
	}
	if withHistory {
		cfg.History = NewHistoryHandler(&historyServiceMock{stats: &models.CalculationStats{TotalCalculations: 1}}, &exportServiceMock{})
	}
	return NewRouter(cfg), auth
}

func bearer(t *testing.T, auth *service.AuthService, role models.UserRole) string {
	t.Helper()
	token, _, err := auth.IssueToken(service.TokenRequest{UserID: "user-1", Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterPublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := postCalculate(r, `{"total":4,"attended":3,"no_attendance":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "right at the boundary")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready").Code)
	assert.Equal(t, http.StatusOK, get(r, "/").Code)

	metrics := get(r, "/metrics")
	assert.Contains(t, metrics.Body.String(), `path="/calculate"`)
}

func TestRouterProtectsHistory(t *testing.T) {
	r, auth := newTestRouter(t, true)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/calculations").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calculations/stats", nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleStudent))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/calculations/stats", nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"total_calculations":1`))
}

func TestRouterWithoutHistoryHasNoCalculationRoutes(t *testing.T) {
	r, auth := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calculations", nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleSuperAdmin))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
