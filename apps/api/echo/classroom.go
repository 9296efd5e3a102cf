package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

type classroomApi struct {
	auth     *jwtAuth
	userSvc  user.ServiceInterface
	svc      classroom.ServiceInterface
	validate *validator.Validate
}

func registerClassroomAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	userSvc user.ServiceInterface,
	svc classroom.ServiceInterface,
	validate *validator.Validate,
) {
	api := classroomApi{
		auth:     auth,
		userSvc:  userSvc,
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, teacherMiddleware())
	cg.GET("", api.queryClasses)
	cg.GET("/code/:code", api.retrieveClassByCode)
	cg.POST("/join", api.joinClass, studentMiddleware())
	cg.GET("/:id/students", api.queryClassStudents, teacherMiddleware())
	cg.GET("/:id/tasks", api.queryTasks)

	tg := g.Group("/tasks", jwt)
	tg.POST("", api.createTask, teacherMiddleware())
	tg.GET("/:id", api.retrieveTask)
	tg.PUT("/:id", api.updateTask, teacherMiddleware())
	tg.DELETE("/:id", api.destroyTask, teacherMiddleware())
	tg.PATCH("/:id/status", api.setTaskStatus)
	tg.PUT("/:id/submission", api.submitAnswer, studentMiddleware())
	tg.GET("/:id/submission", api.retrieveOwnSubmission, studentMiddleware())
	tg.GET("/:id/submissions", api.querySubmissions, teacherMiddleware())
	tg.POST("/:id/submissions/:subID/comment", api.commentSubmission, teacherMiddleware())
}

// Handlers

func (api *classroomApi) createClass(ctx echo.Context) error {
	var data classroom.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classroomApi) queryClasses(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []classroom.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classroomApi) retrieveClassByCode(ctx echo.Context) error {
	data := classroom.JoinClass{Code: ctx.Param("code")}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.GetClassByCode(ctx.Request().Context(), data.Code)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classroomApi) joinClass(ctx echo.Context) error {
	var data classroom.JoinClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.JoinClass(ctx.Request().Context(), actor, data.Code)
	if err != nil {
		if errors.Cause(err) == classroom.ErrAlreadyMember {
			return core.NewValidationError(nil, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classroomApi) queryClassStudents(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	students, err := api.svc.QueryClassStudents(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classroomApi) createTask(ctx echo.Context) error {
	var data classroom.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tsk, err := api.svc.CreateTask(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tsk)
}

func (api *classroomApi) retrieveTask(ctx echo.Context) error {
	tsk, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *classroomApi) queryTasks(ctx echo.Context) error {
	tasks, err := api.svc.QueryTasks(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []classroom.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *classroomApi) updateTask(ctx echo.Context) error {
	var data classroom.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tsk, err := api.svc.UpdateTask(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *classroomApi) destroyTask(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeleteTask(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) setTaskStatus(ctx echo.Context) error {
	var data TaskStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaskStatusRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tsk, err := api.svc.SetTaskStatus(ctx.Request().Context(), actor, ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *classroomApi) submitAnswer(ctx echo.Context) error {
	var data classroom.SubmitAnswer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAnswer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.SubmitAnswer(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *classroomApi) retrieveOwnSubmission(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"), actor.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *classroomApi) querySubmissions(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []classroom.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *classroomApi) commentSubmission(ctx echo.Context) error {
	var data classroom.CommentSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommentSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.CommentSubmission(ctx.Request().Context(), actor, ctx.Param("subID"), ctx.Param("id"), data.Comment)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

type TaskStatusRequest struct {
	Status string `json:"status" validate:"required,taskstatus"`
}

func (tr *TaskStatusRequest) Validate(validate *validator.Validate) error {
	tr.Status = core.CleanString(tr.Status, true /* lower */)
	return validate.Struct(tr)
}
