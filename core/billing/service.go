package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/student"
)

var (
	// errors
	ErrPlanNotFound    = errors.New("payment plan not found")
	ErrVoucherNotFound = errors.New("voucher not found")
	// ErrReviewConflict means a concurrent reviewer's decision already stuck.
	ErrReviewConflict = errors.New("voucher was already reviewed")
)

type (
	Repository interface {
		CreatePaymentPlan(ctx context.Context, plan PaymentPlan, installments []Installment) (PaymentPlan, error)
		GetPaymentPlanByID(ctx context.Context, id int) (PaymentPlan, error)
		QueryStudentPlans(ctx context.Context, studentID int) ([]PaymentPlan, error)
		QueryPlanInstallments(ctx context.Context, planID int) ([]Installment, error)

		CreateVoucher(ctx context.Context, v Voucher) (Voucher, error)
		GetVoucherByID(ctx context.Context, id int) (Voucher, error)
		GetPendingVoucher(ctx context.Context, studentID, installmentNumber int) (Voucher, error)
		FilterVouchers(ctx context.Context, filter VoucherFilter) ([]Voucher, error)
		// ReplaceVoucherFile swaps a pending voucher's file and declared
		// amount, bumping its version.
		ReplaceVoucherFile(ctx context.Context, v Voucher) (Voucher, error)
		// UpdateVoucherStatus applies the review decision iff the stored
		// version and pending status still match; ErrReviewConflict otherwise.
		UpdateVoucherStatus(ctx context.Context, v Voucher, expectedVersion int) (Voucher, error)
	}

	// LevelNamer resolves an academic level's display name for snapshots.
	LevelNamer interface {
		LevelName(ctx context.Context, id int) string
	}

	Service struct {
		repo       Repository
		students   *student.Service
		levels     LevelNamer
		dispatcher *notify.Dispatcher
	}
)

func NewService(repo Repository, students *student.Service, levels LevelNamer, dispatcher *notify.Dispatcher) *Service {
	return &Service{
		repo:       repo,
		students:   students,
		levels:     levels,
		dispatcher: dispatcher,
	}
}

// Payment plans

func (svc *Service) CreatePlan(ctx context.Context, np NewPaymentPlan) (PaymentPlan, error) {
	if _, err := svc.students.GetByID(ctx, np.StudentID); err != nil {
		return PaymentPlan{}, err
	}
	plan := PaymentPlan{
		StudentID:       np.StudentID,
		TotalAmount:     np.TotalAmount,
		EnrollmentFee:   np.EnrollmentFee,
		NumInstallments: np.NumInstallments,
		StartDate:       np.StartDate.UTC(),
		CreatedAt:       time.Now().UTC(),
	}
	return svc.repo.CreatePaymentPlan(ctx, plan, GenerateInstallments(plan))
}

func (svc *Service) GetPlan(ctx context.Context, id int) (PaymentPlan, []Installment, error) {
	plan, err := svc.repo.GetPaymentPlanByID(ctx, id)
	if err != nil {
		return PaymentPlan{}, nil, err
	}
	installments, err := svc.repo.QueryPlanInstallments(ctx, id)
	if err != nil {
		return PaymentPlan{}, nil, err
	}
	return plan, installments, nil
}

func (svc *Service) QueryStudentPlans(ctx context.Context, studentID int) ([]PaymentPlan, error) {
	return svc.repo.QueryStudentPlans(ctx, studentID)
}

// Vouchers

// UploadVoucher records a proof of payment for a student's installment and
// notifies cashiers. Uploading over an existing pending voucher replaces its
// file (action "replaced"); otherwise a new voucher is created ("uploaded").
// The returned DispatchResult reports notification delivery separately from
// the upload itself.
func (svc *Service) UploadVoucher(ctx context.Context, studentID int, nv NewVoucher) (Voucher, notify.DispatchResult, error) {
	st, err := svc.students.GetByID(ctx, studentID)
	if err != nil {
		return Voucher{}, notify.DispatchResult{}, err
	}

	action := notify.ActionUploaded
	v, err := svc.repo.GetPendingVoucher(ctx, studentID, nv.InstallmentNumber)
	switch errors.Cause(err) {
	case nil:
		action = notify.ActionReplaced
		v.DeclaredAmount = nv.DeclaredAmount
		v.FilePath = nv.FilePath
		v.UploadedAt = time.Now().UTC()
		v, err = svc.repo.ReplaceVoucherFile(ctx, v)
	case ErrVoucherNotFound:
		v, err = svc.repo.CreateVoucher(ctx, Voucher{
			StudentID:         studentID,
			InstallmentNumber: nv.InstallmentNumber,
			DeclaredAmount:    nv.DeclaredAmount,
			FilePath:          nv.FilePath,
			Status:            VoucherPending,
			Version:           1,
			UploadedAt:        time.Now().UTC(),
		})
	}
	if err != nil {
		return Voucher{}, notify.DispatchResult{}, err
	}

	res := svc.dispatcher.Dispatch(ctx, notify.Event{
		Kind:       notify.KindVoucherUploaded,
		Action:     action,
		OccurredAt: v.UploadedAt,
		Student:    svc.studentRef(ctx, st),
		Voucher:    voucherRef(v),
	})
	return v, res, nil
}

func (svc *Service) GetVoucher(ctx context.Context, id int) (Voucher, error) {
	return svc.repo.GetVoucherByID(ctx, id)
}

func (svc *Service) FilterVouchers(ctx context.Context, filter VoucherFilter) ([]Voucher, error) {
	filter.Clean()
	return svc.repo.FilterVouchers(ctx, filter)
}

// ReviewVoucher applies a cashier's approve/reject decision. The transition
// is guarded by an optimistic version check: when a concurrent decision
// already stuck, the repo reports ErrReviewConflict and no event is emitted.
func (svc *Service) ReviewVoucher(ctx context.Context, voucherID, reviewerID int, rv ReviewVoucher) (Voucher, notify.DispatchResult, error) {
	v, err := svc.repo.GetVoucherByID(ctx, voucherID)
	if err != nil {
		return Voucher{}, notify.DispatchResult{}, err
	}
	if !v.IsPending() {
		return Voucher{}, notify.DispatchResult{}, core.NewConflictError(ErrReviewConflict)
	}
	expectedVersion := v.Version
	if rv.Version != 0 {
		expectedVersion = rv.Version
	}

	now := time.Now().UTC()
	action := notify.ActionApproved
	v.Status = VoucherApproved
	if rv.Action == ReviewReject {
		action = notify.ActionRejected
		v.Status = VoucherRejected
		v.RejectReason = null.StringFrom(rv.Reason)
	}
	v.ReviewedAt = null.TimeFrom(now)
	v.ReviewedBy = null.IntFrom(reviewerID)

	v, err = svc.repo.UpdateVoucherStatus(ctx, v, expectedVersion)
	if err != nil {
		if errors.Cause(err) == ErrReviewConflict {
			return Voucher{}, notify.DispatchResult{}, core.NewConflictError(err)
		}
		return Voucher{}, notify.DispatchResult{}, err
	}

	st, err := svc.students.GetByID(ctx, v.StudentID)
	if err != nil {
		return Voucher{}, notify.DispatchResult{}, errors.Wrap(err, "loading reviewed voucher's student")
	}
	res := svc.dispatcher.Dispatch(ctx, notify.Event{
		Kind:       notify.KindVoucherReviewed,
		Action:     action,
		Reason:     rv.Reason,
		OccurredAt: now,
		Student:    svc.studentRef(ctx, st),
		Voucher:    voucherRef(v),
	})
	return v, res, nil
}

func (svc *Service) studentRef(ctx context.Context, st student.Student) notify.StudentRef {
	return notify.StudentRef{
		ID:        st.ID,
		UserID:    st.UserID.Int,
		Name:      st.Name,
		Email:     st.Email,
		AdvisorID: st.AdvisorID.Int,
		LevelName: svc.levels.LevelName(ctx, st.LevelID.Int),
	}
}

func voucherRef(v Voucher) *notify.VoucherRef {
	return &notify.VoucherRef{
		ID:                v.ID,
		InstallmentNumber: v.InstallmentNumber,
		DeclaredAmount:    v.DeclaredAmount,
		FilePath:          v.FilePath,
		UploadedAt:        v.UploadedAt,
	}
}
