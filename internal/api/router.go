package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/crmadmin/access-core/internal/api/handler"
	"github.com/crmadmin/access-core/internal/api/middleware"
	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
	"github.com/crmadmin/access-core/internal/core/service"
)

// Deps are the collaborators the router wires into handlers and middleware.
type Deps struct {
	Auth      ports.AuthService
	Accounts  ports.AccountService
	Positions ports.PositionService
	Resolver  *service.PermissionResolver
	Audit     ports.AuditRecorder // optional

	// Health maps dependency names to readiness checks.
	Health map[string]handler.PingFunc

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	SwaggerEnabled bool
	Log            zerolog.Logger
}

// Router is the HTTP surface of the access core.
type Router struct {
	Echo *echo.Echo
	gate *middleware.Gate
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(d Deps) *Router {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	registerer := d.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "crm",
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || p == "/health" || p == "/health/ready"
		},
	}))

	r := &Router{
		Echo: e,
		gate: middleware.NewGate(d.Auth, d.Resolver, d.Audit, d.Log),
	}

	authHandler := handler.NewAuthHandler(d.Auth)
	accountHandler := handler.NewAccountHandler(d.Accounts)
	positionHandler := handler.NewPositionHandler(d.Positions)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	me := e.Group("/auth", r.gate.Authenticated())
	me.GET("/me", authHandler.Me)
	me.GET("/permissions", authHandler.Permissions)

	// --- Account settings ---
	account := e.Group("/account")
	r.Protect(account, domain.SectionAccountSettings, domain.ActionView, http.MethodGet, "/settings", accountHandler.GetSettings)
	r.Protect(account, domain.SectionAccountSettings, domain.ActionEdit, http.MethodPut, "/settings", accountHandler.UpdateSettings)

	// --- Position catalogue ---
	positions := e.Group("/positions")
	r.Protect(positions, domain.SectionPositions, domain.ActionView, http.MethodGet, "", positionHandler.List)
	r.Protect(positions, domain.SectionPositions, domain.ActionView, http.MethodGet, "/:id", positionHandler.Get)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health, d.Log)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational ---
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if d.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return r
}

// Protect mounts h on g behind the access gate. Every protected route
// declares the section and action it requires.
func (r *Router) Protect(g *echo.Group, section domain.Section, action domain.Action, method, path string, h echo.HandlerFunc) *echo.Route {
	return g.Add(method, path, h, r.gate.Require(section, action))
}

// ServeHTTP lets the router be used directly as an http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Echo.ServeHTTP(w, req)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error()
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
