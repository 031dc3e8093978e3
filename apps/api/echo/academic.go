package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core/academic"
	"github.com/tmonsalve/aula/core/user"
)

type academicApi struct {
	svc      *academic.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerAcademicAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *academic.Service,
	usrSvc *user.Service,
	validate *validator.Validate,
) {
	api := academicApi{svc: svc, usrSvc: usrSvc, validate: validate}

	lg := g.Group("/levels", jwt)
	lg.POST("", api.createLevel, adminMiddleware())
	lg.GET("", api.queryLevels)
	lg.PUT("/:id", api.updateLevel, adminMiddleware())
	lg.DELETE("/:id", api.destroyLevel, adminMiddleware())

	gg := g.Group("/groups", jwt)
	gg.POST("", api.createGroup, staffMiddleware())
	gg.GET("", api.queryGroups)
	gg.GET("/:id", api.retrieveGroup)
	gg.PUT("/:id", api.updateGroup, staffMiddleware())
	gg.DELETE("/:id", api.destroyGroup, adminMiddleware())
	gg.GET("/:id/classes", api.queryGroupClasses)

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, staffMiddleware())
	cg.GET("/:id", api.retrieveClass)
	cg.DELETE("/:id", api.destroyClass, staffMiddleware())
	cg.POST("/:id/teacher", api.assignTeacher, staffMiddleware())
}

// Levels

func (api *academicApi) createLevel(ctx echo.Context) error {
	var data academic.NewLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLevel")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lvl, err := api.svc.CreateLevel(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating level")
	}
	return ctx.JSON(http.StatusCreated, lvl)
}

func (api *academicApi) queryLevels(ctx echo.Context) error {
	lvls, err := api.svc.QueryLevels(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying levels")
	}
	if lvls == nil {
		lvls = []academic.Level{}
	}
	return ctx.JSON(http.StatusOK, lvls)
}

func (api *academicApi) updateLevel(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data academic.NewLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLevel")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lvl, err := api.svc.UpdateLevel(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == academic.ErrLevelNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating level")
	}
	return ctx.JSON(http.StatusOK, lvl)
}

func (api *academicApi) destroyLevel(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.svc.DeleteLevel(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting level")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Groups

func (api *academicApi) createGroup(ctx echo.Context) error {
	var data academic.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.CreateGroup(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *academicApi) queryGroups(ctx echo.Context) error {
	grps, err := api.svc.QueryGroups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if grps == nil {
		grps = []academic.Group{}
	}
	return ctx.JSON(http.StatusOK, grps)
}

func (api *academicApi) retrieveGroup(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	grp, err := api.svc.GetGroup(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == academic.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *academicApi) updateGroup(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data academic.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.UpdateGroup(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == academic.ErrGroupNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *academicApi) destroyGroup(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.svc.DeleteGroup(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Scheduled classes

func (api *academicApi) queryGroupClasses(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	clss, err := api.svc.QueryGroupClasses(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying group classes")
	}
	if clss == nil {
		clss = []academic.ScheduledClass{}
	}
	return ctx.JSON(http.StatusOK, clss)
}

func (api *academicApi) createClass(ctx echo.Context) error {
	var data academic.NewScheduledClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScheduledClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *academicApi) retrieveClass(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	cls, err := api.svc.GetClass(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == academic.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *academicApi) destroyClass(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.svc.DeleteClass(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) assignTeacher(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data academic.AssignTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, res, err := api.svc.AssignClassTeacher(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == academic.ErrClassNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, ClassAssignedResponse{Class: cls, Notified: res.OK()})
}

type ClassAssignedResponse struct {
	Class    academic.ScheduledClass `json:"class"`
	Notified bool                    `json:"notified"`
}
