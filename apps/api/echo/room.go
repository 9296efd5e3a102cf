package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/DailyDoseOfWezs/Schedulink/core/room"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

type roomApi struct {
	auth     *jwtAuth
	userSvc  user.ServiceInterface
	svc      room.ServiceInterface
	monitor  *room.Monitor
	validate *validator.Validate
}

func registerRoomAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	userSvc user.ServiceInterface,
	svc room.ServiceInterface,
	monitor *room.Monitor,
	validate *validator.Validate,
) {
	api := roomApi{
		auth:     auth,
		userSvc:  userSvc,
		svc:      svc,
		monitor:  monitor,
		validate: validate,
	}

	rg := g.Group("/rooms", jwt)
	rg.POST("", api.create, teacherMiddleware())
	rg.GET("", api.query)
	rg.GET("/board", api.board)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.rename, teacherMiddleware())
	rg.POST("/:id/occupy", api.occupy, teacherMiddleware())
	rg.POST("/:id/release", api.release, teacherMiddleware())
}

// Handlers

func (api *roomApi) create(ctx echo.Context) error {
	var data room.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rm, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rm)
}

func (api *roomApi) query(ctx echo.Context) error {
	rooms, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

// board serves the shared occupancy board from the monitor's snapshot; it
// never hits the database so every viewer polls cheaply.
func (api *roomApi) board(ctx echo.Context) error {
	groups := api.monitor.Grouped()
	if groups == nil {
		groups = []room.BuildingGroup{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *roomApi) retrieve(ctx echo.Context) error {
	rm, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) rename(ctx echo.Context) error {
	var data room.RenameRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RenameRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rm, err := api.svc.Rename(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) occupy(ctx echo.Context) error {
	var data room.OccupyRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OccupyRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rm, err := api.svc.Occupy(ctx.Request().Context(), actor, ctx.Param("id"), data.Occupant, data.Section)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) release(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rm, err := api.svc.Release(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}
