package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/academic"
	"github.com/tmonsalve/aula/core/billing"
	"github.com/tmonsalve/aula/core/contract"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/settings"
	"github.com/tmonsalve/aula/core/student"
	"github.com/tmonsalve/aula/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc     *user.Service
		StudentSvc  *student.Service
		AcademicSvc *academic.Service
		BillingSvc  *billing.Service
		ContractSvc *contract.Service
		SettingsSvc *settings.Service
		NotifSvc    *notify.NotificationService

		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	initAuth(deps.Conf)

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	deps := s.deps

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(deps.Conf.Debug || deps.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = deps.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)
	s.app.Static("/media", deps.Conf.MediaRoot)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig)

	registerUserAPI(v1, jwt, deps.UserSvc, deps.Validate, deps.Translator)
	registerStudentAPI(v1, jwt, deps.StudentSvc, deps.UserSvc, deps.Validate)
	registerAcademicAPI(v1, jwt, deps.AcademicSvc, deps.UserSvc, deps.Validate)
	registerBillingAPI(v1, jwt, deps.BillingSvc, deps.StudentSvc, deps.UserSvc, deps.Conf, deps.Validate)
	registerContractAPI(v1, jwt, deps.ContractSvc, deps.StudentSvc, deps.UserSvc, deps.Conf, deps.Validate)
	registerSettingsAPI(v1, jwt, deps.SettingsSvc, deps.Validate)
	registerNotificationAPI(v1, jwt, deps.NotifSvc)
	registerUploadAPI(v1, jwt, deps.Conf)
}

func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%d", s.deps.Conf.Server.Host, s.deps.Conf.Server.Port)
	s.errors <- s.app.Start(addr)
}

// Errors reports fatal server errors; receiving one means the server is down.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal delivers SIGINT/SIGTERM, plus internal shutdown requests
// raised by the error handler.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Aula API!")
}
