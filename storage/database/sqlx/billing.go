package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core/billing"
)

type planRow struct {
	ID              int       `db:"id"`
	StudentID       int       `db:"student_id"`
	TotalAmount     float64   `db:"total_amount"`
	EnrollmentFee   float64   `db:"enrollment_fee"`
	NumInstallments int       `db:"num_installments"`
	StartDate       time.Time `db:"start_date"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r planRow) toPlan() billing.PaymentPlan {
	return billing.PaymentPlan{
		ID:              r.ID,
		StudentID:       r.StudentID,
		TotalAmount:     r.TotalAmount,
		EnrollmentFee:   r.EnrollmentFee,
		NumInstallments: r.NumInstallments,
		StartDate:       r.StartDate.UTC(),
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

type installmentRow struct {
	ID      int       `db:"id"`
	PlanID  int       `db:"plan_id"`
	Number  int       `db:"number"`
	Amount  float64   `db:"amount"`
	DueDate time.Time `db:"due_date"`
	PaidAt  null.Time `db:"paid_at"`
}

func (r installmentRow) toInstallment() billing.Installment {
	return billing.Installment{
		ID:      r.ID,
		PlanID:  r.PlanID,
		Number:  r.Number,
		Amount:  r.Amount,
		DueDate: r.DueDate.UTC(),
		PaidAt:  r.PaidAt,
	}
}

type voucherRow struct {
	ID                int         `db:"id"`
	StudentID         int         `db:"student_id"`
	InstallmentNumber int         `db:"installment_number"`
	DeclaredAmount    float64     `db:"declared_amount"`
	FilePath          string      `db:"file_path"`
	Status            string      `db:"status"`
	RejectReason      null.String `db:"reject_reason"`
	Version           int         `db:"version"`
	UploadedAt        time.Time   `db:"uploaded_at"`
	ReviewedAt        null.Time   `db:"reviewed_at"`
	ReviewedBy        null.Int    `db:"reviewed_by"`
}

func (r voucherRow) toVoucher() billing.Voucher {
	return billing.Voucher{
		ID:                r.ID,
		StudentID:         r.StudentID,
		InstallmentNumber: r.InstallmentNumber,
		DeclaredAmount:    r.DeclaredAmount,
		FilePath:          r.FilePath,
		Status:            r.Status,
		RejectReason:      r.RejectReason,
		Version:           r.Version,
		UploadedAt:        r.UploadedAt.UTC(),
		ReviewedAt:        r.ReviewedAt,
		ReviewedBy:        r.ReviewedBy,
	}
}

const (
	planCols        = `id, student_id, total_amount, enrollment_fee, num_installments, start_date, created_at`
	installmentCols = `id, plan_id, number, amount, due_date, paid_at`
	voucherCols     = `id, student_id, installment_number, declared_amount, file_path, status, reject_reason, version, uploaded_at, reviewed_at, reviewed_by`
)

type BillingRepository struct {
	db *sqlx.DB
}

var _ billing.Repository = (*BillingRepository)(nil)

func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// Payment plans

// CreatePaymentPlan persists the plan and its installments in one transaction.
func (repo *BillingRepository) CreatePaymentPlan(ctx context.Context, plan billing.PaymentPlan, installments []billing.Installment) (billing.PaymentPlan, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return billing.PaymentPlan{}, errors.Wrap(err, "beginning plan tx")
	}
	defer func() { _ = tx.Rollback() }()

	q := `
		INSERT INTO payment_plan (student_id, total_amount, enrollment_fee, num_installments, start_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err = tx.QueryRowxContext(ctx, q,
		plan.StudentID, plan.TotalAmount, plan.EnrollmentFee, plan.NumInstallments, plan.StartDate, plan.CreatedAt,
	).Scan(&plan.ID)
	if err != nil {
		return billing.PaymentPlan{}, errors.Wrap(err, "creating payment plan")
	}

	iq := `INSERT INTO installment (plan_id, number, amount, due_date) VALUES ($1, $2, $3, $4)`
	for _, inst := range installments {
		if _, err = tx.ExecContext(ctx, iq, plan.ID, inst.Number, inst.Amount, inst.DueDate); err != nil {
			return billing.PaymentPlan{}, errors.Wrapf(err, "creating installment #%d", inst.Number)
		}
	}

	if err = tx.Commit(); err != nil {
		return billing.PaymentPlan{}, errors.Wrap(err, "committing plan tx")
	}
	return plan, nil
}

func (repo *BillingRepository) GetPaymentPlanByID(ctx context.Context, id int) (billing.PaymentPlan, error) {
	var row planRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+planCols+` FROM payment_plan WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return billing.PaymentPlan{}, billing.ErrPlanNotFound
	} else if err != nil {
		return billing.PaymentPlan{}, errors.Wrap(err, "getting payment plan")
	}
	return row.toPlan(), nil
}

func (repo *BillingRepository) QueryStudentPlans(ctx context.Context, studentID int) ([]billing.PaymentPlan, error) {
	var rows []planRow
	q := `SELECT ` + planCols + ` FROM payment_plan WHERE student_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student plans")
	}
	plans := make([]billing.PaymentPlan, len(rows))
	for i, row := range rows {
		plans[i] = row.toPlan()
	}
	return plans, nil
}

func (repo *BillingRepository) QueryPlanInstallments(ctx context.Context, planID int) ([]billing.Installment, error) {
	var rows []installmentRow
	q := `SELECT ` + installmentCols + ` FROM installment WHERE plan_id = $1 ORDER BY number`
	if err := repo.db.SelectContext(ctx, &rows, q, planID); err != nil {
		return nil, errors.Wrap(err, "querying plan installments")
	}
	installments := make([]billing.Installment, len(rows))
	for i, row := range rows {
		installments[i] = row.toInstallment()
	}
	return installments, nil
}

// Vouchers

func (repo *BillingRepository) CreateVoucher(ctx context.Context, v billing.Voucher) (billing.Voucher, error) {
	q := `
		INSERT INTO voucher (student_id, installment_number, declared_amount, file_path, status, version, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q,
		v.StudentID, v.InstallmentNumber, v.DeclaredAmount, v.FilePath, v.Status, v.Version, v.UploadedAt,
	).Scan(&v.ID)
	if err != nil {
		return billing.Voucher{}, errors.Wrap(err, "creating voucher")
	}
	return v, nil
}

func (repo *BillingRepository) GetVoucherByID(ctx context.Context, id int) (billing.Voucher, error) {
	var row voucherRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+voucherCols+` FROM voucher WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return billing.Voucher{}, billing.ErrVoucherNotFound
	} else if err != nil {
		return billing.Voucher{}, errors.Wrap(err, "getting voucher")
	}
	return row.toVoucher(), nil
}

func (repo *BillingRepository) GetPendingVoucher(ctx context.Context, studentID, installmentNumber int) (billing.Voucher, error) {
	var row voucherRow
	q := `
		SELECT ` + voucherCols + `
		FROM voucher
		WHERE student_id = $1 AND installment_number = $2 AND status = $3`
	err := repo.db.GetContext(ctx, &row, q, studentID, installmentNumber, billing.VoucherPending)
	if err == sql.ErrNoRows {
		return billing.Voucher{}, billing.ErrVoucherNotFound
	} else if err != nil {
		return billing.Voucher{}, errors.Wrap(err, "getting pending voucher")
	}
	return row.toVoucher(), nil
}

func (repo *BillingRepository) FilterVouchers(ctx context.Context, filter billing.VoucherFilter) ([]billing.Voucher, error) {
	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.StudentID != 0 {
		conds = append(conds, "student_id = "+arg(filter.StudentID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}

	q := `SELECT ` + voucherCols + ` FROM voucher`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY uploaded_at DESC`

	var rows []voucherRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering vouchers")
	}
	vouchers := make([]billing.Voucher, len(rows))
	for i, row := range rows {
		vouchers[i] = row.toVoucher()
	}
	return vouchers, nil
}

func (repo *BillingRepository) ReplaceVoucherFile(ctx context.Context, v billing.Voucher) (billing.Voucher, error) {
	q := `
		UPDATE voucher
		SET declared_amount = $2, file_path = $3, uploaded_at = $4, version = version + 1
		WHERE id = $1 AND status = $5
		RETURNING version`
	err := repo.db.QueryRowxContext(ctx, q, v.ID, v.DeclaredAmount, v.FilePath, v.UploadedAt, billing.VoucherPending).
		Scan(&v.Version)
	if err == sql.ErrNoRows {
		return billing.Voucher{}, billing.ErrVoucherNotFound
	} else if err != nil {
		return billing.Voucher{}, errors.Wrap(err, "replacing voucher file")
	}
	return v, nil
}

// UpdateVoucherStatus applies a review decision. The WHERE clause pins both
// the expected version and the pending status so exactly one concurrent
// decision can win.
func (repo *BillingRepository) UpdateVoucherStatus(ctx context.Context, v billing.Voucher, expectedVersion int) (billing.Voucher, error) {
	q := `
		UPDATE voucher
		SET status = $2, reject_reason = $3, reviewed_at = $4, reviewed_by = $5, version = version + 1
		WHERE id = $1 AND version = $6 AND status = $7
		RETURNING version`
	err := repo.db.QueryRowxContext(ctx, q,
		v.ID, v.Status, v.RejectReason, v.ReviewedAt, v.ReviewedBy, expectedVersion, billing.VoucherPending,
	).Scan(&v.Version)
	if err == sql.ErrNoRows {
		return billing.Voucher{}, billing.ErrReviewConflict
	} else if err != nil {
		return billing.Voucher{}, errors.Wrap(err, "updating voucher status")
	}
	return v, nil
}
