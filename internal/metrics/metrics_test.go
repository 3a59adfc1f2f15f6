package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("accept", "success"))
	RecordTransition("accept", true)
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("accept", "success")))
}

func TestListenerGauge(t *testing.T) {
	done := ListenerOpened("balance")
	assert.Equal(t, float64(1), testutil.ToFloat64(liveListeners.WithLabelValues("balance")))
	done()
	assert.Equal(t, float64(0), testutil.ToFloat64(liveListeners.WithLabelValues("balance")))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/7", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `favorx_http_requests_total{method="GET",path="/ping/:id",status="200"}`))
}
