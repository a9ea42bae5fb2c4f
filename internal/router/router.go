package router

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gcpanel/internal/auth"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/handler"
	"gcpanel/internal/inventory"
	"gcpanel/internal/metrics"
	"gcpanel/internal/service"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Modules      *handler.ModuleHandler
	Projects     *handler.ProjectHandler
	Rfis         *handler.RfiHandler
	Submittals   *handler.SubmittalHandler
	Equipment    *handler.InventoryHandler[inventory.Equipment]
	Materials    *handler.InventoryHandler[inventory.Material]
	Documents    *handler.InventoryHandler[inventory.Document]
	Photos       *handler.InventoryHandler[inventory.Photo]
	Transmittals *handler.InventoryHandler[inventory.Transmittal]
	DailyReports *handler.InventoryHandler[inventory.DailyReport]
	Field        *handler.FieldHandler
	Users        *handler.UserHandler
	Admin        *handler.AdminHandler
}

type inventoryRoutes interface {
	List(echo.Context) error
	Create(echo.Context) error
	Get(echo.Context) error
	Update(echo.Context) error
	Delete(echo.Context) error
}

// Register wires routes and middleware.
func Register(e *echo.Echo, logger *slog.Logger, authService service.AuthService, h Handlers) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware("gcpanel")))
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(logger)))

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(JWTConfig(authService)))

	read := auth.RequirePermission(auth.PermRead)
	create := auth.RequirePermission(auth.PermCreate)
	update := auth.RequirePermission(auth.PermUpdate)
	remove := auth.RequirePermission(auth.PermDelete)
	admin := auth.RequirePermission(auth.PermAdmin)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/me", h.Auth.Me)
	secured.PUT("/me/password", h.Auth.ChangePassword)

	secured.GET("/modules", h.Modules.Menu)
	secured.GET("/modules/:name", h.Modules.Open)
	secured.GET("/session", h.Modules.Session)
	secured.DELETE("/session/notifications", h.Modules.ClearNotifications)

	// Project routes
	secured.GET("/projects", h.Projects.List, read)
	secured.POST("/projects", h.Projects.Create, create)
	secured.GET("/projects/code/:code", h.Projects.GetByCode, read)
	secured.GET("/projects/:id", h.Projects.Get, read)
	secured.PATCH("/projects/:id", h.Projects.Update, update)
	secured.DELETE("/projects/:id", h.Projects.Delete, remove)
	secured.PUT("/projects/:id/status", h.Projects.SetStatus, update)
	secured.GET("/projects/:id/members", h.Projects.Members, read)
	secured.POST("/projects/:id/members/:userID", h.Projects.AddMember, update)
	secured.DELETE("/projects/:id/members/:userID", h.Projects.RemoveMember, update)
	secured.GET("/projects/:id/milestones", h.Projects.Milestones, read)
	secured.POST("/projects/:id/milestones", h.Projects.AddMilestone, update)
	secured.PUT("/milestones/:id/complete", h.Projects.CompleteMilestone, update)

	// RFI routes
	secured.GET("/projects/:id/rfis", h.Rfis.ListByProject, read)
	secured.POST("/projects/:id/rfis", h.Rfis.Create, create)
	rfis := secured.Group("/rfis")
	rfis.GET("", h.Rfis.List, read)
	rfis.GET("/mine", h.Rfis.Mine, read)
	rfis.GET("/overdue", h.Rfis.Overdue, read)
	rfis.GET("/:id", h.Rfis.Get, read)
	rfis.PATCH("/:id", h.Rfis.Update, update)
	rfis.DELETE("/:id", h.Rfis.Delete, remove)
	rfis.PUT("/:id/status", h.Rfis.UpdateStatus, update)
	rfis.GET("/:id/transitions", h.Rfis.Transitions, read)
	rfis.POST("/:id/respond", h.Rfis.Respond, update)
	rfis.GET("/:id/attachments", h.Rfis.Attachments, read)
	rfis.POST("/:id/attachments", h.Rfis.AddAttachment, create)
	rfis.DELETE("/:id/attachments/:attachmentID", h.Rfis.RemoveAttachment, remove)

	// Submittal routes
	secured.GET("/projects/:id/submittals", h.Submittals.ListByProject, read)
	secured.POST("/projects/:id/submittals", h.Submittals.Create, create)
	submittals := secured.Group("/submittals")
	submittals.GET("", h.Submittals.List, read)
	submittals.GET("/mine", h.Submittals.Mine, read)
	submittals.GET("/overdue", h.Submittals.Overdue, read)
	submittals.GET("/:id", h.Submittals.Get, read)
	submittals.PATCH("/:id", h.Submittals.Update, update)
	submittals.DELETE("/:id", h.Submittals.Delete, remove)
	submittals.PUT("/:id/status", h.Submittals.UpdateStatus, update)
	submittals.GET("/:id/transitions", h.Submittals.Transitions, read)
	submittals.POST("/:id/review", h.Submittals.Review, update)
	submittals.GET("/:id/attachments", h.Submittals.Attachments, read)
	submittals.POST("/:id/attachments", h.Submittals.AddAttachment, create)
	submittals.DELETE("/:id/attachments/:attachmentID", h.Submittals.RemoveAttachment, remove)

	// Inventory routes
	mountInventory(secured.Group("/equipment"), h.Equipment, read, create, update, remove)
	mountInventory(secured.Group("/materials"), h.Materials, read, create, update, remove)

	// Field registers
	documents := secured.Group("/documents")
	mountInventory(documents, h.Documents, read, create, update, remove)
	documents.POST("/:id/checkout", h.Field.Checkout, update)
	documents.POST("/:id/checkin", h.Field.Checkin, update)
	photos := secured.Group("/photos")
	mountInventory(photos, h.Photos, read, create, update, remove)
	photos.POST("/:id/review", h.Field.ReviewPhoto, update)
	transmittals := secured.Group("/transmittals")
	mountInventory(transmittals, h.Transmittals, read, create, update, remove)
	transmittals.POST("/:id/send", h.Field.SendTransmittal, update)
	transmittals.POST("/:id/acknowledge", h.Field.AcknowledgeTransmittal, update)
	mountInventory(secured.Group("/daily-reports"), h.DailyReports, read, create, update, remove)

	// Admin routes
	secured.GET("/users", h.Users.ListUsers, admin)
	secured.GET("/users/:id", h.Users.GetUser, admin)
	secured.PUT("/users/:id/status", h.Users.SetStatus, admin)
	secured.POST("/users/:id/roles/:role", h.Users.AssignRole, admin)
	secured.DELETE("/users/:id/roles/:role", h.Users.RevokeRole, admin)

	secured.GET("/admin/entities", h.Admin.Entities, admin)
	secured.DELETE("/admin/:entity/:id", h.Admin.HardDelete, admin)
	secured.POST("/admin/:entity/:id/restore", h.Admin.Restore, admin)
	secured.GET("/settings", h.Admin.Settings, admin)
	secured.GET("/settings/:key", h.Admin.Setting, admin)
	secured.PUT("/settings/:key", h.Admin.PutSetting, admin)
	secured.GET("/audit", h.Admin.Audit, admin)
}

func mountInventory(g *echo.Group, inv inventoryRoutes, read, create, update, remove echo.MiddlewareFunc) {
	g.GET("", inv.List, read)
	g.POST("", inv.Create, create)
	g.GET("/:id", inv.Get, read)
	g.PATCH("/:id", inv.Update, update)
	g.DELETE("/:id", inv.Delete, remove)
}

// JWTConfig resolves bearer tokens to users through the auth service, so
// revoked tokens and deactivated users are rejected.
func JWTConfig(authService service.AuthService) echojwt.Config {
	return echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			user, err := authService.GetUserByToken(c.Request().Context(), token)
			if err != nil {
				return nil, err
			}
			auth.SetUser(c, user)
			auth.SetToken(c, token)
			return user, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			httpErr := apperrors.MapErrorToHTTP(apperrors.ErrInvalidToken)
			if errors.Is(err, apperrors.ErrStorage) {
				httpErr = apperrors.MapErrorToHTTP(err)
			}
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		},
	}
}

func requestLoggerConfig(logger *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
