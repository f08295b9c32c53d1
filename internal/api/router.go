package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/accounts-api/docs"
	"github.com/99minutos/accounts-api/internal/api/handler"
	"github.com/99minutos/accounts-api/internal/api/middleware"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// Dependencies is everything the HTTP layer needs from the composition root.
type Dependencies struct {
	Log       zerolog.Logger
	Sessions  ports.SessionService
	Accounts  ports.AccountService
	Directory ports.DirectoryService
	Passwords ports.PasswordService

	// Blobs is served under /avatars/ when set. Backends with their own
	// URLs (S3) leave it nil.
	Blobs ports.AvatarStorage

	Checks      map[string]handler.DependencyCheck
	PageSize    int
	MaxPageSize int
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.BodyLimit("2M"))
	e.Use(echoprometheus.NewMiddleware("accounts"))

	// --- Handlers ---
	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	registrationHandler := handler.NewRegistrationHandler(deps.Accounts)
	passwordHandler := handler.NewPasswordHandler(deps.Passwords)
	userHandler := handler.NewUserHandler(deps.Directory, deps.Sessions, deps.PageSize, deps.MaxPageSize)
	requireUser := middleware.Authenticate(deps.Sessions, deps.Accounts)

	// --- Session routes ---
	e.POST("/login", sessionHandler.Login)
	e.DELETE("/logout", sessionHandler.Logout)

	// --- Registration routes ---
	e.POST("/registration", registrationHandler.Create)
	e.PUT("/registration", registrationHandler.Update, requireUser)
	e.DELETE("/registration", registrationHandler.Destroy, requireUser)
	e.DELETE("/registration/avatar", registrationHandler.DestroyAvatar, requireUser)

	// --- Password reset routes ---
	e.POST("/password", passwordHandler.Create)
	e.PUT("/password", passwordHandler.Update)

	// --- Directory routes (authenticated) ---
	v1 := e.Group("/v1", requireUser)
	v1.GET("/users", userHandler.List)
	v1.GET("/users/:id", userHandler.Show)
	v1.GET("/users/:id/avatar", userHandler.Avatar)
	v1.DELETE("/users/:id/sessions", userHandler.RevokeSessions, middleware.RBAC(domain.RoleAdmin))

	if deps.Blobs != nil {
		blobHandler := handler.NewAvatarBlobHandler(deps.Blobs)
		e.GET("/avatars/:key", blobHandler.Serve)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())     // Prometheus scrape endpoint
	e.GET("/swagger/*", echoSwagger.WrapHandler)       // API docs

	return e
}

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
