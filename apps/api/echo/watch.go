package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
	"github.com/DailyDoseOfWezs/Schedulink/core/watch"
)

type watchApi struct {
	auth      *jwtAuth
	userSvc   user.ServiceInterface
	classSvc  classroom.ServiceInterface
	conf      *core.Config
	logger    core.Logger
	seenStore func(viewerID string) watch.SeenStore
}

func registerWatchAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	userSvc user.ServiceInterface,
	classSvc classroom.ServiceInterface,
	conf *core.Config,
	logger core.Logger,
	seenStore func(viewerID string) watch.SeenStore,
) {
	api := watchApi{
		auth:      auth,
		userSvc:   userSvc,
		classSvc:  classSvc,
		conf:      conf,
		logger:    logger,
		seenStore: seenStore,
	}

	ng := g.Group("/classes", jwt)
	ng.GET("/:id/notifications", api.queryNotifications)
}

// queryNotifications runs one watcher check for the calling viewer and returns
// whatever is fresh. Dedup state lives in the per-viewer SeenStore, so a
// notification is delivered exactly once across client polls and restarts.
func (api *watchApi) queryNotifications(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notes := make([]watch.Notification, 0)
	collect := watch.NotifierFunc(func(n watch.Notification) { notes = append(notes, n) })
	seen := api.seenStore(actor.ID)

	var w *watch.Watcher
	if actor.IsTeacher() {
		w = watch.NewTeacherWatcher(api.classSvc, actor, ctx.Param("id"), seen, collect, api.conf, api.logger)
	} else {
		w = watch.NewStudentWatcher(api.classSvc, actor, ctx.Param("id"), seen, collect, api.conf, api.logger)
	}
	w.Poll(ctx.Request().Context())

	return ctx.JSON(http.StatusOK, notes)
}
