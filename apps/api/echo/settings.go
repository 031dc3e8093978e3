package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core/settings"
)

type settingsApi struct {
	svc      *settings.Service
	validate *validator.Validate
}

// registerSettingsAPI exposes the admin-editable configuration rows,
// including the notification message templates.
func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *settings.Service, validate *validator.Validate) {
	api := settingsApi{svc: svc, validate: validate}

	sg := g.Group("/settings", jwt, adminMiddleware())
	sg.GET("/:type", api.query)
	sg.GET("/:type/:key", api.retrieve)
	sg.PUT("/:type/:key", api.upsert)
	sg.DELETE("/:type/:key", api.destroy)
}

func (api *settingsApi) query(ctx echo.Context) error {
	sttngs, err := api.svc.Query(ctx.Request().Context(), ctx.Param("type"))
	if err != nil {
		return errors.Wrap(err, "querying settings")
	}
	if sttngs == nil {
		sttngs = []settings.Setting{}
	}
	return ctx.JSON(http.StatusOK, sttngs)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("type"), ctx.Param("key"))
	if err != nil {
		if errors.Cause(err) == settings.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding setting")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) upsert(ctx echo.Context) error {
	data := settings.UpsertSetting{
		Type: ctx.Param("type"),
		Key:  ctx.Param("key"),
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := ctx.Bind(&body); err != nil {
		return errors.Wrap(err, "binding setting value")
	}
	data.Value = body.Value
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Upsert(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting setting")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("type"), ctx.Param("key")); err != nil {
		return errors.Wrap(err, "deleting setting")
	}
	return ctx.NoContent(http.StatusNoContent)
}
