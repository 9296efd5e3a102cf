package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/room"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
	"github.com/DailyDoseOfWezs/Schedulink/core/watch"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		UserSvc      user.ServiceInterface
		ClassroomSvc classroom.ServiceInterface
		RoomSvc      room.ServiceInterface
		RoomMonitor  *room.Monitor

		// SeenStore returns the notification dedup store of a viewer.
		SeenStore func(viewerID string) watch.SeenStore

		Validate   *validator.Validate
		Translator ut.Translator

		// SignalShutdown triggers a graceful server shutdown on integrity errors.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		auth *jwtAuth
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
		auth: newJWTAuth(opts.Conf),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.config)

	registerUserAPI(v1, jwt, s.auth, s.opts.UserSvc, s.opts.Validate)
	registerClassroomAPI(v1, jwt, s.auth, s.opts.UserSvc, s.opts.ClassroomSvc, s.opts.Validate)
	registerRoomAPI(v1, jwt, s.auth, s.opts.UserSvc, s.opts.RoomSvc, s.opts.RoomMonitor, s.opts.Validate)
	registerWatchAPI(v1, jwt, s.auth, s.opts.UserSvc, s.opts.ClassroomSvc, conf, s.opts.Logger, s.opts.SeenStore)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Conf.Server.Address()))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Schedulink API!")
}
