package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/contract"
	"github.com/tmonsalve/aula/core/student"
	"github.com/tmonsalve/aula/core/user"
)

// contractSubdir is where signed contract documents land under MediaRoot.
const contractSubdir = "contracts"

type contractApi struct {
	svc      *contract.Service
	stdSvc   *student.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerContractAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *contract.Service,
	stdSvc *student.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := contractApi{svc: svc, stdSvc: stdSvc, usrSvc: usrSvc, conf: conf, validate: validate}

	g.POST("/students/:id/contract", api.open, jwt, staffMiddleware())
	g.GET("/students/:id/contract", api.retrieve, jwt)

	cg := g.Group("/contracts", jwt)
	cg.POST("/:id/sign", api.sign)
	cg.POST("/:id/verification", api.requestVerification, staffMiddleware())
}

func (api *contractApi) open(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	a, err := api.svc.Open(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "opening contract")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *contractApi) retrieve(ctx echo.Context) error {
	st, err := contextStudent(ctx, api.stdSvc, api.usrSvc)
	if err != nil {
		return err
	}

	a, err := api.svc.GetForStudent(ctx.Request().Context(), st.ID)
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding student's contract")
	}
	return ctx.JSON(http.StatusOK, a)
}

// sign receives the student's signed contract as a multipart document. Only
// the contract's own student (or staff acting on their behalf) may sign.
func (api *contractApi) sign(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	a, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding contract by ID")
	}
	if err = api.checkContractAccess(ctx, a); err != nil {
		return err
	}

	var data contract.SignContract
	if data.DocumentPath, err = saveUploadedFile(ctx, api.conf, "document", contractSubdir); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, res, err := api.svc.Sign(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ContractResponse{Contract: a, Notified: res.OK()})
}

func (api *contractApi) requestVerification(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	a, err := api.svc.RequestVerification(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *contractApi) checkContractAccess(ctx echo.Context, a contract.Acceptance) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin || contextHasAnyRole(ctx, user.StaffRoles) {
		return nil
	}

	st, err := api.stdSvc.GetByID(ctx.Request().Context(), a.StudentID)
	if err != nil {
		return errors.Wrap(err, "finding contract's student")
	}
	if claims.IsStudent && st.UserID.Valid && st.UserID.Int == claims.UserID() {
		return nil
	}
	return errHttpForbidden
}

type ContractResponse struct {
	Contract contract.Acceptance `json:"contract"`
	Notified bool                `json:"notified"`
}
