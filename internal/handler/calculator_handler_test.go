package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/pkg/middleware/requestid"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func calculatorRouter(h *CalculatorHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", h.Index)
	r.POST("/calculate", h.Calculate)
	return r
}

func postCalculate(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCalculateEndpoint(t *testing.T) {
	svc := service.NewCalculatorService(nil, nil, nil, decimal.NewFromInt(75), nil)
	r := calculatorRouter(NewCalculatorHandler(svc))

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{
			name:   "eligible",
			body:   `{"total":100,"attended":80,"no_attendance":0,"required":75}`,
			status: http.StatusOK,
			want:   `{"eligible":true,"percentage":80,"total":100,"effective_total":100,"attended":80,"no_attendance":0,"required":75,"bunkable":6,"message":"You can safely skip up to 6 more lectures and still stay above 75.0%."}`,
		},
		{
			name:   "needs more",
			body:   `{"total":"100","attended":"60","no_attendance":"0","required":"75"}`,
			status: http.StatusOK,
			want:   `{"eligible":false,"percentage":60,"total":100,"effective_total":100,"attended":60,"no_attendance":0,"required":75,"needed":60,"message":"You must attend 60 more lectures continuously to reach 75.0%."}`,
		},
		{
			name:   "no-attendance classes",
			body:   `{"total":50,"attended":40,"no_attendance":10,"required":75}`,
			status: http.StatusOK,
			want:   `{"eligible":true,"percentage":100,"total":50,"effective_total":40,"attended":40,"no_attendance":10,"required":75,"bunkable":13,"message":"You can safely skip up to 13 more lectures and still stay above 75.0%."}`,
		},
		{
			name:   "unreachable",
			body:   `{"total":100,"attended":0,"no_attendance":0,"required":100}`,
			status: http.StatusOK,
			want:   `{"eligible":false,"percentage":0,"total":100,"effective_total":100,"attended":0,"no_attendance":0,"required":100,"needed":-1,"message":"100% required — impossible to recover by attending more."}`,
		},
		{
			name:   "no valid lectures",
			body:   `{"total":10,"attended":0,"no_attendance":10,"required":75}`,
			status: http.StatusBadRequest,
			want:   `{"error":"No valid lectures to calculate attendance."}`,
		},
		{
			name:   "malformed json",
			body:   `{"total":`,
			status: http.StatusBadRequest,
			want:   `{"error":"Invalid input. Please enter valid numbers."}`,
		},
		{
			name:   "array body",
			body:   `[1,2,3]`,
			status: http.StatusBadRequest,
			want:   `{"error":"Invalid input. Please enter valid numbers."}`,
		},
		{
			name:   "trailing data",
			body:   `{"total":1,"attended":1,"no_attendance":0} {}`,
			status: http.StatusBadRequest,
			want:   `{"error":"Invalid input. Please enter valid numbers."}`,
		},
		{
			name:   "empty body",
			body:   ``,
			status: http.StatusBadRequest,
			want:   `{"error":"Invalid input. Please enter valid numbers."}`,
		},
		{
			name:   "required out of range",
			body:   `{"total":10,"attended":5,"no_attendance":0,"required":0}`,
			status: http.StatusBadRequest,
			want:   `{"error":"Required percentage must be between 1 and 100."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postCalculate(r, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.JSONEq(t, tt.want, w.Body.String())
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		})
	}
}

type calculatorServiceMock struct {
	meta models.CalculationMeta
	err  error
}

func (m *calculatorServiceMock) Calculate(ctx context.Context, req dto.CalculateRequest, meta models.CalculationMeta) (*models.CalculationResult, error) {
	m.meta = meta
	return nil, m.err
}

func TestCalculatePassesRequestMeta(t *testing.T) {
	mock := &calculatorServiceMock{err: errors.New("boom")}
	r := calculatorRouter(NewCalculatorHandler(mock))

	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(`{}`))
	req.Header.Set("X-Request-ID", "req-42")
	req.RemoteAddr = "192.0.2.10:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-42", mock.meta.RequestID)
	assert.Equal(t, "192.0.2.10", mock.meta.ClientIP)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestCalculateRejectsOversizedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCalculatorHandler(&calculatorServiceMock{})
	c, w := newGinContext(http.MethodPost, "/calculate", []byte(`{"total":"`+strings.Repeat("1", maxCalculateBody)+`"}`))

	h.Calculate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexServesForm(t *testing.T) {
	r := calculatorRouter(NewCalculatorHandler(&calculatorServiceMock{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `id="no_attendance"`)
	assert.Contains(t, w.Body.String(), `fetch("calculate"`)
}
