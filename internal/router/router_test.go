package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcpanel/internal/app"
	"gcpanel/internal/auth"
	"gcpanel/internal/cache"
	"gcpanel/internal/db/dbtest"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/handler"
	"gcpanel/internal/inventory"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
	"gcpanel/internal/service"
)

const (
	adminUser     = "admin"
	adminPassword = "admin-password"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	gdb := dbtest.New(t)
	cacheClient := cache.NewLocal(1000)

	userRepo := repository.NewUserRepository(gdb)
	projectRepo := repository.NewProjectRepository(gdb)
	rfiRepo := repository.NewRfiRepository(gdb)
	submittalRepo := repository.NewSubmittalRepository(gdb)

	audit := service.NewAuditService(repository.NewAuditRepository(gdb))
	t.Cleanup(audit.Close)
	principals := auth.NewPrincipalCache(100, time.Minute)

	authService := service.NewAuthService(userRepo, repository.NewRoleRepository(gdb), auth.NewJWTService("router-test"),
		auth.NewTokenStore(cacheClient), principals, audit, service.AuthOptions{
			AccessTTL:  5 * time.Minute,
			RefreshTTL: time.Hour,
		})
	_, err := authService.InitializeAuth(ctx, service.AdminBootstrap{
		Username: adminUser,
		Email:    "admin@example.com",
		Password: adminPassword,
	})
	require.NoError(t, err)

	projects := service.NewProjectService(projectRepo, cacheClient, audit)
	sessions := app.NewSessionStore(cacheClient)
	rfis := service.NewRfiService(rfiRepo, projectRepo, audit, sessions)
	submittals := service.NewSubmittalService(submittalRepo, projectRepo, audit, sessions)
	users := service.NewUserService(userRepo, principals, audit)
	settings := service.NewSettingsService(repository.NewConfigRepository(gdb), audit)
	admin := service.NewAdminService(map[string]service.Purger{"projects": projectRepo}, cacheClient, principals, audit)

	seededAt := time.Now()
	equipment := inventory.NewEquipmentStore(seededAt)
	materials := inventory.NewMaterialStore()
	documents := inventory.NewDocumentStore(seededAt)
	photos := inventory.NewPhotoStore(seededAt)
	transmittals := inventory.NewTransmittalStore(seededAt)
	dailyReports := inventory.NewDailyReportStore(seededAt)
	dispatcher := app.NewDispatcher(sessions, app.DefaultModules(app.Deps{
		Projects:     projects,
		Rfis:         rfis,
		Submittals:   submittals,
		Users:        users,
		Settings:     settings,
		Equipment:    equipment,
		Materials:    materials,
		Documents:    documents,
		Photos:       photos,
		Transmittals: transmittals,
		DailyReports: dailyReports,
	})...)

	e := echo.New()
	Register(e, slog.New(slog.NewTextHandler(io.Discard, nil)), authService, Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Modules:      handler.NewModuleHandler(dispatcher, sessions),
		Projects:     handler.NewProjectHandler(projects),
		Rfis:         handler.NewRfiHandler(rfis),
		Submittals:   handler.NewSubmittalHandler(submittals),
		Equipment:    handler.NewEquipmentHandler(equipment),
		Materials:    handler.NewMaterialHandler(materials),
		Documents:    handler.NewDocumentHandler(documents),
		Photos:       handler.NewPhotoHandler(photos),
		Transmittals: handler.NewTransmittalHandler(transmittals),
		DailyReports: handler.NewDailyReportHandler(dailyReports),
		Field:        handler.NewFieldHandler(documents, photos, transmittals),
		Users:        handler.NewUserHandler(users),
		Admin:        handler.NewAdminHandler(admin, settings, audit),
	})
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func login(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/auth/login", "", handler.LoginRequest{Login: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.LoginResult](t, rec)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func register(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/auth/register", "", handler.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "viewer-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return login(t, e, username, "viewer-password")
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decode[apperrors.ErrorResponse](t, rec).Code)

	rec = do(t, e, http.MethodGet, "/api/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/auth/login", "", handler.LoginRequest{Login: adminUser, Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode[apperrors.ErrorResponse](t, rec).Code)

	rec = do(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{"login": adminUser})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := login(t, e, adminUser, adminPassword)
	rec = do(t, e, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[struct {
		User        model.User        `json:"user"`
		Permissions []auth.Permission `json:"permissions"`
	}](t, rec)
	assert.Equal(t, adminUser, me.User.Username)
	assert.Contains(t, me.Permissions, auth.PermAdmin)

	rec = do(t, e, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked tokens are rejected")
}

func TestRegister_Duplicate(t *testing.T) {
	e := newTestServer(t)
	register(t, e, "viewer")

	rec := do(t, e, http.MethodPost, "/api/auth/register", "", handler.RegisterRequest{
		Username: "viewer",
		Email:    "other@example.com",
		Password: "viewer-password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPermissions(t *testing.T) {
	e := newTestServer(t)
	viewer := register(t, e, "viewer")
	admin := login(t, e, adminUser, adminPassword)

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   any
		want   int
	}{
		{"viewer reads projects", viewer, http.MethodGet, "/api/projects", nil, http.StatusOK},
		{"viewer cannot create projects", viewer, http.MethodPost, "/api/projects", map[string]any{"name": "X", "code": "X"}, http.StatusForbidden},
		{"viewer cannot list users", viewer, http.MethodGet, "/api/users", nil, http.StatusForbidden},
		{"viewer cannot read settings", viewer, http.MethodGet, "/api/settings", nil, http.StatusForbidden},
		{"admin lists users", admin, http.MethodGet, "/api/users", nil, http.StatusOK},
		{"admin lists entities", admin, http.MethodGet, "/api/admin/entities", nil, http.StatusOK},
		{"viewer reads equipment", viewer, http.MethodGet, "/api/equipment", nil, http.StatusOK},
		{"viewer cannot delete equipment", viewer, http.MethodDelete, "/api/equipment/abc", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestProjectCRUD(t *testing.T) {
	e := newTestServer(t)
	token := login(t, e, adminUser, adminPassword)

	rec := do(t, e, http.MethodPost, "/api/projects", token, map[string]any{"name": "Tower", "code": "TWR", "budget": "1500000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Project](t, rec)
	assert.Equal(t, model.ProjectStatusPlanning, created.Status)
	path := fmt.Sprintf("/api/projects/%d", created.ID)

	rec = do(t, e, http.MethodPost, "/api/projects", token, map[string]any{"name": "Again", "code": "TWR"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodPatch, path, token, map[string]any{"location": "Main St", "nickname": "ignored"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Main St", decode[model.Project](t, rec).Location)

	rec = do(t, e, http.MethodPut, path+"/status", token, handler.StatusRequest{Status: "construction"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ProjectStatusConstruction, decode[model.Project](t, rec).Status)

	rec = do(t, e, http.MethodPut, path+"/status", token, handler.StatusRequest{Status: "demolished"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/projects/code/TWR", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/projects?q=tow", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Project](t, rec), 1)

	rec = do(t, e, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, e, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodPost, fmt.Sprintf("/api/admin/projects/%d/restore", created.ID), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = do(t, e, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/projects/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRfiLifecycle(t *testing.T) {
	e := newTestServer(t)
	token := login(t, e, adminUser, adminPassword)

	rec := do(t, e, http.MethodPost, "/api/projects", token, map[string]any{"name": "Tower", "code": "TWR"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[model.Project](t, rec)

	rec = do(t, e, http.MethodPost, fmt.Sprintf("/api/projects/%d/rfis", project.ID), token, map[string]any{"subject": "Slab edge"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rfi := decode[model.Rfi](t, rec)
	assert.Equal(t, "RFI-0001", rfi.Number)
	path := fmt.Sprintf("/api/rfis/%d", rfi.ID)

	rec = do(t, e, http.MethodPut, path+"/status", token, handler.StatusRequest{Status: "answered"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[apperrors.ErrorResponse](t, rec).Code)

	rec = do(t, e, http.MethodPut, path+"/status", token, handler.StatusRequest{Status: "submitted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, path+"/transitions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tr := decode[service.Transitions[model.RfiStatus]](t, rec)
	assert.Equal(t, model.RfiStatusSubmitted, tr.Current)

	rec = do(t, e, http.MethodPost, path+"/respond", token, handler.RespondRequest{Response: "Use detail 4"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.RfiStatusAnswered, decode[model.Rfi](t, rec).Status)

	rec = do(t, e, http.MethodGet, "/api/rfis/mine", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Rfi](t, rec), 1)
}

func TestModules(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, adminUser, adminPassword)
	viewer := register(t, e, "viewer")

	rec := do(t, e, http.MethodGet, "/api/modules", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	for _, item := range decode[[]app.MenuItem](t, rec) {
		names = append(names, item.Name)
	}
	assert.Contains(t, names, "projects")
	assert.NotContains(t, names, "users")

	rec = do(t, e, http.MethodGet, "/api/modules/users", viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/modules/nowhere", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/modules/equipment", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "equipment", decode[app.View](t, rec).Module)

	rec = do(t, e, http.MethodGet, "/api/session", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[handler.SessionResponse](t, rec)
	assert.Equal(t, "equipment", state.CurrentModule)
	require.NotNil(t, state.View)
	assert.Equal(t, "equipment", state.View.Module)
}

func TestAssignmentNotifiesAssignee(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, adminUser, adminPassword)
	viewer := register(t, e, "viewer")

	rec := do(t, e, http.MethodGet, "/api/me", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	viewerID := decode[struct {
		User model.User `json:"user"`
	}](t, rec).User.ID

	rec = do(t, e, http.MethodGet, "/api/session", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[handler.SessionResponse](t, rec).Notifications)

	rec = do(t, e, http.MethodPost, "/api/projects", admin, map[string]any{"name": "Tower", "code": "TWR"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[model.Project](t, rec)

	rec = do(t, e, http.MethodPost, fmt.Sprintf("/api/projects/%d/rfis", project.ID), admin,
		map[string]any{"subject": "Slab edge", "assigned_to_id": viewerID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/session", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[handler.SessionResponse](t, rec)
	require.Len(t, state.Notifications, 1)
	assert.Equal(t, "You were assigned RFI-0001 Slab edge", state.Notifications[0].Message)
	require.NotNil(t, state.View)
	assert.Equal(t, app.DefaultModule, state.View.Module)

	rec = do(t, e, http.MethodGet, "/api/session", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[handler.SessionResponse](t, rec).Notifications, "the assigner is not notified")

	rec = do(t, e, http.MethodDelete, "/api/session/notifications", viewer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, http.MethodGet, "/api/session", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[handler.SessionResponse](t, rec).Notifications)
}

func TestFieldRegisters(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, adminUser, adminPassword)
	viewer := register(t, e, "viewer")

	rec := do(t, e, http.MethodGet, "/api/documents?q=permit", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	permits := decode[[]inventory.Document](t, rec)
	require.Len(t, permits, 2)

	checkout := fmt.Sprintf("/api/documents/%s/checkout", permits[0].ID)
	rec = do(t, e, http.MethodPost, checkout, viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, http.MethodPost, checkout, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, adminUser, decode[inventory.Document](t, rec).CheckedOutBy)

	rec = do(t, e, http.MethodPost, fmt.Sprintf("/api/documents/%s/checkin", permits[0].ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[inventory.Document](t, rec).CheckedOutBy)

	rec = do(t, e, http.MethodGet, "/api/transmittals?status=draft", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	drafts := decode[[]inventory.Transmittal](t, rec)
	require.Len(t, drafts, 1)

	send := fmt.Sprintf("/api/transmittals/%s/send", drafts[0].ID)
	rec = do(t, e, http.MethodPost, send, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, inventory.TransmittalSent, decode[inventory.Transmittal](t, rec).Status)
	rec = do(t, e, http.MethodPost, send, admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodPost, fmt.Sprintf("/api/transmittals/%s/acknowledge", drafts[0].ID), admin,
		handler.AcknowledgeRequest{Email: "inspections@city.example"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, inventory.TransmittalAcknowledged, decode[inventory.Transmittal](t, rec).Status)

	rec = do(t, e, http.MethodGet, "/api/photos?status=uploaded", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	uploaded := decode[[]inventory.Photo](t, rec)
	require.Len(t, uploaded, 1)
	rec = do(t, e, http.MethodPost, fmt.Sprintf("/api/photos/%s/review", uploaded[0].ID), admin,
		handler.PhotoReviewRequest{Approved: true, Rating: 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, inventory.PhotoApproved, decode[inventory.Photo](t, rec).Status)

	rec = do(t, e, http.MethodGet, "/api/daily-reports?status=draft", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]inventory.DailyReport](t, rec), 1)

	rec = do(t, e, http.MethodPost, "/api/daily-reports", admin, map[string]any{
		"date": "2025-06-04T00:00:00Z", "weather": "sunny", "crew_size": 0, "work_hours": 8, "created_by": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/modules/transmittals", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "transmittals", decode[app.View](t, rec).Module)
}
