package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/course"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/rollcall"
	"github.com/attendly/attendly/core/timetable"
	"github.com/attendly/attendly/core/user"
)

type (
	// Pinger reports whether the database is reachable.
	Pinger interface {
		PingContext(ctx context.Context) error
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DB             Pinger
		Validate       *validator.Validate
		Translator     ut.Translator
		OrgSvc         *organization.Service
		UserSvc        *user.Service
		CourseSvc      *course.Service
		TimetableSvc   *timetable.Service
		RollcallSvc    *rollcall.Service
		VAPIDPublicKey string
		DisableReqLogs bool
	}

	Server struct {
		ServerDeps
		app       *echo.Echo
		jwtConfig middleware.JWTConfig
		startedAt time.Time
		shutdown  chan os.Signal
		errors    chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		jwtConfig:  newJWTConfig(deps.Conf),
		startedAt:  time.Now(),
		shutdown:   make(chan os.Signal, 1),
		errors:     make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Server.ReadTimeout = s.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.Conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.Conf.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = s.Conf.Debug && !s.Conf.TestMode

	api := s.app.Group("/api")
	api.GET("/health", s.health)

	jwt := middleware.JWTWithConfig(s.jwtConfig)
	authed := []echo.MiddlewareFunc{jwt, s.authMiddleware}

	registerAuthAPI(api.Group("/auth"), s, authed)
	registerOrganizationAPI(api.Group("/organization", authed...), s)
	registerAttendanceAPI(api.Group("/attendance", authed...), s)
	registerTimetableAPI(api.Group("/timetable", authed...), s)
	registerCourseAPI(api.Group("/courses", authed...), s)
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

// Start serves until the listener fails, reporting the failure on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      float64   `json:"uptime"` // seconds
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
}

func (s *Server) health(ctx echo.Context) error {
	res := healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(s.startedAt).Seconds(),
		Environment: s.Conf.Env,
		Database:    "connected",
	}
	if s.DB == nil || s.DB.PingContext(ctx.Request().Context()) != nil {
		res.Database = "disconnected"
	}
	return ctx.JSON(http.StatusOK, res)
}
