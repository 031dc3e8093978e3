package billing

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core"
)

// Voucher statuses. pending -> {approved | rejected}; both review outcomes
// are terminal for this pipeline.
const (
	VoucherPending  = "pending"
	VoucherApproved = "approved"
	VoucherRejected = "rejected"
)

// Review actions
const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

type PaymentPlan struct {
	ID              int       `json:"id"`
	StudentID       int       `json:"student_id"`
	TotalAmount     float64   `json:"total_amount"`
	EnrollmentFee   float64   `json:"enrollment_fee"`
	NumInstallments int       `json:"num_installments"`
	StartDate       time.Time `json:"start_date"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

type Installment struct {
	ID      int       `json:"id"`
	PlanID  int       `json:"plan_id"`
	Number  int       `json:"number"` // 1-based
	Amount  float64   `json:"amount"`
	DueDate time.Time `json:"due_date"`
	PaidAt  null.Time `json:"paid_at"`
}

// Voucher is a student-submitted proof of payment awaiting cashier review.
// Version guards concurrent review decisions.
type Voucher struct {
	ID                int         `json:"id"`
	StudentID         int         `json:"student_id"`
	InstallmentNumber int         `json:"installment_number"`
	DeclaredAmount    float64     `json:"declared_amount"`
	FilePath          string      `json:"-"`
	Status            string      `json:"status"`
	RejectReason      null.String `json:"reject_reason"`
	Version           int         `json:"version"`
	UploadedAt        time.Time   `json:"uploaded_at"` // UTC
	ReviewedAt        null.Time   `json:"reviewed_at"`
	ReviewedBy        null.Int    `json:"reviewed_by"` // cashier's user ID
}

func (v *Voucher) IsPending() bool { return v.Status == VoucherPending }

// NewPaymentPlan contains information needed to create a plan; installments
// are generated from it.
type NewPaymentPlan struct {
	StudentID       int       `json:"student_id" validate:"required"`
	TotalAmount     float64   `json:"total_amount" validate:"gt=0"`
	EnrollmentFee   float64   `json:"enrollment_fee" validate:"gte=0"`
	NumInstallments int       `json:"num_installments" validate:"gt=0"`
	StartDate       time.Time `json:"start_date" validate:"required"`
}

func (np *NewPaymentPlan) Validate(validate *validator.Validate) error {
	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.EnrollmentFee >= np.TotalAmount {
		return core.NewValidationError(nil, core.FieldError{
			Field: "enrollment_fee",
			Error: "enrollment fee must be below the total amount",
		})
	}
	return nil
}

// GenerateInstallments splits the financed amount (total - enrollment fee)
// into monthly two-decimal installments; the last installment absorbs the
// rounding remainder so the sum is exact.
func GenerateInstallments(plan PaymentPlan) []Installment {
	financedCents := int64(math.Round((plan.TotalAmount - plan.EnrollmentFee) * 100))
	baseCents := financedCents / int64(plan.NumInstallments)

	installments := make([]Installment, plan.NumInstallments)
	var allocated int64
	for i := range installments {
		cents := baseCents
		if i == plan.NumInstallments-1 {
			cents = financedCents - allocated
		}
		allocated += cents
		installments[i] = Installment{
			PlanID:  plan.ID,
			Number:  i + 1,
			Amount:  float64(cents) / 100,
			DueDate: plan.StartDate.AddDate(0, i, 0),
		}
	}
	return installments
}

// NewVoucher contains information needed to upload a voucher.
type NewVoucher struct {
	InstallmentNumber int     `json:"installment_number" validate:"gt=0"`
	DeclaredAmount    float64 `json:"declared_amount" validate:"gt=0"`
	FilePath          string  `json:"file_path" validate:"required"`
}

func (nv *NewVoucher) Validate(validate *validator.Validate) error {
	nv.FilePath = core.CleanString(nv.FilePath)
	return validate.Struct(nv)
}

// ReviewVoucher is the cashier's decision on a pending voucher. Version must
// match the reviewed voucher's current version. A rejection requires a
// human-readable reason; an approval never does.
type ReviewVoucher struct {
	Action  string `json:"action" validate:"required,oneof=approve reject"`
	Reason  string `json:"reason"`
	Version int    `json:"version"`
}

func (rv *ReviewVoucher) Validate(validate *validator.Validate) error {
	rv.Action = core.CleanString(rv.Action, true /* lower */)
	rv.Reason = core.CleanString(rv.Reason)
	if err := validate.Struct(rv); err != nil {
		return err
	}
	if rv.Action == ReviewReject && rv.Reason == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "reason",
			Error: "a rejection reason is required",
		})
	}
	return nil
}

type VoucherFilter struct {
	StudentID int    `query:"student_id"`
	Status    string `query:"status"`
}

func (vf *VoucherFilter) Clean() {
	vf.Status = core.CleanString(vf.Status, true /* lower */)
}
