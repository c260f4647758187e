package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gkemhcs/kavach-auth/internal/config"
	"github.com/Gkemhcs/kavach-auth/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := New(&config.Config{Env: "development", Store: "memory"}, testLogger(), nil, nil, metrics.Nop{})

	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s.Handler(), "/healthz/detailed")
	require.Equal(t, http.StatusOK, rec.Code)
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "memory", body["store"])
}

func TestHealthzDetailed_Database(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer conn.Close()

	s := New(&config.Config{Env: "development", Store: "postgres"}, testLogger(), conn, nil, metrics.Nop{})

	mock.ExpectPing()
	rec := get(t, s.Handler(), "/healthz/detailed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pool"`)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = get(t, s.Handler(), "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	s := New(&config.Config{Env: "development", Store: "memory"}, testLogger(), nil, reg, collector)

	get(t, s.Handler(), "/healthz")
	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/healthz"`))
}
