package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(method, target, body string) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query     string
		wantSkip  int
		wantLimit int
	}{
		{"", 0, 100},
		{"?skip=20&limit=10", 20, 10},
		{"?skip=-5&limit=0", 0, 100},
		{"?limit=100000", 0, 100},
		{"?skip=abc&limit=xyz", 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			skip, limit := pagination(newContext(http.MethodGet, "/items"+tt.query, ""))
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestParamID(t *testing.T) {
	tests := []struct {
		value   string
		want    uint
		wantErr bool
	}{
		{"7", 7, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"seven", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c := newContext(http.MethodGet, "/items/"+tt.value, "")
			c.SetParamNames("id")
			c.SetParamValues(tt.value)

			id, err := paramID(c, "id")
			if tt.wantErr {
				var he *echo.HTTPError
				require.ErrorAs(t, err, &he)
				assert.Equal(t, http.StatusBadRequest, he.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestBindFields(t *testing.T) {
	c := newContext(http.MethodPatch, "/projects/3?skip=1", `{"location":"Main St","budget":1200}`)
	c.SetParamNames("id")
	c.SetParamValues("3")

	fields, err := bindFields(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"location": "Main St", "budget": float64(1200)}, fields)

	_, err = bindFields(newContext(http.MethodPatch, "/projects/3", `["not","an","object"]`))
	assert.Error(t, err)
}

func TestCurrentUser_Missing(t *testing.T) {
	_, err := currentUser(newContext(http.MethodGet, "/me", ""))
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
