package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/billing"
	"github.com/tmonsalve/aula/core/student"
	"github.com/tmonsalve/aula/core/user"
)

// voucherSubdir is where voucher scans land under MediaRoot.
const voucherSubdir = "vouchers"

type billingApi struct {
	svc      *billing.Service
	stdSvc   *student.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerBillingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *billing.Service,
	stdSvc *student.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := billingApi{svc: svc, stdSvc: stdSvc, usrSvc: usrSvc, conf: conf, validate: validate}

	pg := g.Group("/plans", jwt)
	pg.POST("", api.createPlan, staffMiddleware())
	pg.GET("/:id", api.retrievePlan, staffMiddleware())

	// registered on the parent group: a parameterized sub-group would
	// catch-all /students/:id and shadow the student retrieve route
	g.GET("/students/:id/plans", api.queryStudentPlans, jwt)
	g.POST("/students/:id/vouchers", api.uploadVoucher, jwt)

	vg := g.Group("/vouchers", jwt)
	vg.GET("", api.queryVouchers, cashierMiddleware())
	vg.GET("/:id", api.retrieveVoucher, cashierMiddleware())
	vg.POST("/:id/review", api.reviewVoucher, cashierMiddleware())
}

// Payment plans

func (api *billingApi) createPlan(ctx echo.Context) error {
	var data billing.NewPaymentPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPaymentPlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.CreatePlan(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return errors.Wrap(err, "creating payment plan")
	}
	return ctx.JSON(http.StatusCreated, plan)
}

func (api *billingApi) retrievePlan(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	plan, installments, err := api.svc.GetPlan(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == billing.ErrPlanNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding plan by ID")
	}
	return ctx.JSON(http.StatusOK, PlanResponse{Plan: plan, Installments: installments})
}

func (api *billingApi) queryStudentPlans(ctx echo.Context) error {
	st, err := contextStudent(ctx, api.stdSvc, api.usrSvc)
	if err != nil {
		return err
	}

	plans, err := api.svc.QueryStudentPlans(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying student plans")
	}
	if plans == nil {
		plans = []billing.PaymentPlan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

// Vouchers

// uploadVoucher receives a multipart proof of payment. Re-uploading while a
// voucher for the same installment is still pending replaces its file.
func (api *billingApi) uploadVoucher(ctx echo.Context) error {
	st, err := contextStudent(ctx, api.stdSvc, api.usrSvc)
	if err != nil {
		return err
	}

	data := billing.NewVoucher{}
	if data.InstallmentNumber, err = strconv.Atoi(ctx.FormValue("installment_number")); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "installment_number", Error: "a valid installment number is required"})
	}
	if data.DeclaredAmount, err = strconv.ParseFloat(ctx.FormValue("declared_amount"), 64); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "declared_amount", Error: "a valid declared amount is required"})
	}

	if data.FilePath, err = saveUploadedFile(ctx, api.conf, "file", voucherSubdir); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, res, err := api.svc.UploadVoucher(ctx.Request().Context(), st.ID, data)
	if err != nil {
		return errors.Wrap(err, "uploading voucher")
	}
	return ctx.JSON(http.StatusCreated, VoucherResponse{Voucher: v, Notified: res.OK()})
}

func (api *billingApi) queryVouchers(ctx echo.Context) error {
	filter := new(billing.VoucherFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Voucher{})
	}

	vouchers, err := api.svc.FilterVouchers(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying vouchers")
	}
	if vouchers == nil {
		vouchers = []billing.Voucher{}
	}
	return ctx.JSON(http.StatusOK, vouchers)
}

func (api *billingApi) retrieveVoucher(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	v, err := api.svc.GetVoucher(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == billing.ErrVoucherNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding voucher by ID")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *billingApi) reviewVoucher(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data billing.ReviewVoucher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewVoucher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	v, res, err := api.svc.ReviewVoucher(ctx.Request().Context(), id, claims.UserID(), data)
	if err != nil {
		if errors.Cause(err) == billing.ErrVoucherNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, VoucherResponse{Voucher: v, Notified: res.OK()})
}

type (
	PlanResponse struct {
		Plan         billing.PaymentPlan   `json:"plan"`
		Installments []billing.Installment `json:"installments"`
	}

	VoucherResponse struct {
		Voucher  billing.Voucher `json:"voucher"`
		Notified bool            `json:"notified"`
	}
)
