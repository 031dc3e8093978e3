package dummydb

import (
	"context"
	"sort"

	"github.com/tmonsalve/aula/core/billing"
)

type billingRepository struct {
	plans        *table[billing.PaymentPlan]
	installments *table[billing.Installment]
	vouchers     *table[billing.Voucher]
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{plans: db.plan, installments: db.installment, vouchers: db.voucher}
}

// Payment plans

func (repo *billingRepository) CreatePaymentPlan(ctx context.Context, plan billing.PaymentPlan, installments []billing.Installment) (billing.PaymentPlan, error) {
	repo.plans.Lock()
	plan.ID = repo.plans.nextPK()
	repo.plans.rows[plan.ID] = &plan
	repo.plans.Unlock()

	repo.installments.Lock()
	defer repo.installments.Unlock()
	for _, inst := range installments {
		inst.ID = repo.installments.nextPK()
		inst.PlanID = plan.ID
		instCopy := inst
		repo.installments.rows[inst.ID] = &instCopy
	}
	return plan, nil
}

func (repo *billingRepository) GetPaymentPlanByID(ctx context.Context, id int) (billing.PaymentPlan, error) {
	repo.plans.RLock()
	defer repo.plans.RUnlock()

	if plan, ok := repo.plans.rows[id]; ok {
		return *plan, nil
	}
	return billing.PaymentPlan{}, billing.ErrPlanNotFound
}

func (repo *billingRepository) QueryStudentPlans(ctx context.Context, studentID int) ([]billing.PaymentPlan, error) {
	repo.plans.RLock()
	defer repo.plans.RUnlock()

	var plans []billing.PaymentPlan
	for _, plan := range repo.plans.query() {
		if plan.StudentID == studentID {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].CreatedAt.After(plans[j].CreatedAt) })
	return plans, nil
}

func (repo *billingRepository) QueryPlanInstallments(ctx context.Context, planID int) ([]billing.Installment, error) {
	repo.installments.RLock()
	defer repo.installments.RUnlock()

	var installments []billing.Installment
	for _, inst := range repo.installments.query() {
		if inst.PlanID == planID {
			installments = append(installments, inst)
		}
	}
	sort.Slice(installments, func(i, j int) bool { return installments[i].Number < installments[j].Number })
	return installments, nil
}

// Vouchers

func (repo *billingRepository) CreateVoucher(ctx context.Context, v billing.Voucher) (billing.Voucher, error) {
	repo.vouchers.Lock()
	defer repo.vouchers.Unlock()

	v.ID = repo.vouchers.nextPK()
	repo.vouchers.rows[v.ID] = &v
	return v, nil
}

func (repo *billingRepository) GetVoucherByID(ctx context.Context, id int) (billing.Voucher, error) {
	repo.vouchers.RLock()
	defer repo.vouchers.RUnlock()

	if v, ok := repo.vouchers.rows[id]; ok {
		return *v, nil
	}
	return billing.Voucher{}, billing.ErrVoucherNotFound
}

func (repo *billingRepository) GetPendingVoucher(ctx context.Context, studentID, installmentNumber int) (billing.Voucher, error) {
	repo.vouchers.RLock()
	defer repo.vouchers.RUnlock()

	for _, v := range repo.vouchers.query() {
		if v.StudentID == studentID && v.InstallmentNumber == installmentNumber && v.Status == billing.VoucherPending {
			return v, nil
		}
	}
	return billing.Voucher{}, billing.ErrVoucherNotFound
}

func (repo *billingRepository) FilterVouchers(ctx context.Context, filter billing.VoucherFilter) ([]billing.Voucher, error) {
	repo.vouchers.RLock()
	defer repo.vouchers.RUnlock()

	var vouchers []billing.Voucher
	for _, v := range repo.vouchers.query() {
		if filter.StudentID != 0 && v.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		vouchers = append(vouchers, v)
	}
	sort.Slice(vouchers, func(i, j int) bool { return vouchers[i].UploadedAt.After(vouchers[j].UploadedAt) })
	return vouchers, nil
}

func (repo *billingRepository) ReplaceVoucherFile(ctx context.Context, v billing.Voucher) (billing.Voucher, error) {
	repo.vouchers.Lock()
	defer repo.vouchers.Unlock()

	orig, ok := repo.vouchers.rows[v.ID]
	if !ok || orig.Status != billing.VoucherPending {
		return billing.Voucher{}, billing.ErrVoucherNotFound
	}
	orig.DeclaredAmount = v.DeclaredAmount
	orig.FilePath = v.FilePath
	orig.UploadedAt = v.UploadedAt
	orig.Version++
	return *orig, nil
}

func (repo *billingRepository) UpdateVoucherStatus(ctx context.Context, v billing.Voucher, expectedVersion int) (billing.Voucher, error) {
	repo.vouchers.Lock()
	defer repo.vouchers.Unlock()

	orig, ok := repo.vouchers.rows[v.ID]
	if !ok || orig.Status != billing.VoucherPending || orig.Version != expectedVersion {
		return billing.Voucher{}, billing.ErrReviewConflict
	}
	orig.Status = v.Status
	orig.RejectReason = v.RejectReason
	orig.ReviewedAt = v.ReviewedAt
	orig.ReviewedBy = v.ReviewedBy
	orig.Version++
	return *orig, nil
}
