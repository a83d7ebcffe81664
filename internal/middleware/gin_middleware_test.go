package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalfonso89/currency-converter/internal/logger"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})
	return router
}

func TestRequestID_Generated(t *testing.T) {
	router := newRouter(RequestID())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

	requestID := recorder.Header().Get("X-Request-ID")
	_, err := uuid.Parse(requestID)
	require.NoError(t, err)
	assert.Equal(t, requestID, recorder.Body.String())
}

func TestRequestID_Propagated(t *testing.T) {
	router := newRouter(RequestID())

	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	request.Header.Set("X-Request-ID", "caller-supplied")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, "caller-supplied", recorder.Header().Get("X-Request-ID"))
	assert.Equal(t, "caller-supplied", recorder.Body.String())
}

func TestRequestLogger(t *testing.T) {
	var output bytes.Buffer
	router := newRouter(RequestID(), RequestLogger(logger.NewWithOutput("info", &output)))

	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	request.Header.Set("X-Request-ID", "abc")
	router.ServeHTTP(httptest.NewRecorder(), request)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(output.Bytes(), &line))
	assert.Equal(t, "HTTP Request", line["msg"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
	assert.Equal(t, "/ping", line["path"])
	assert.Equal(t, "abc", line["request_id"])
}

func TestSecurityHeaders(t *testing.T) {
	router := newRouter(SecurityHeaders())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
}
