package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRepositoryOp(t *testing.T) {
	before := testutil.ToFloat64(repositoryOperations.WithLabelValues("projects", "get", ResultNotFound))
	ObserveRepositoryOp("projects", "get", ResultNotFound)
	after := testutil.ToFloat64(repositoryOperations.WithLabelValues("projects", "get", ResultNotFound))
	assert.Equal(t, before+1, after)
}

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/projects/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/projects/:id", "404"))

	req := httptest.NewRequest(http.MethodGet, "/api/projects/17", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/projects/:id", "404"))
	assert.Equal(t, before+1, after)
}
