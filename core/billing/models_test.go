package billing_test

import (
	"testing"
	"time"

	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/billing"
)

func TestGenerateInstallments(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		total       float64
		fee         float64
		num         int
		wantAmounts []float64
	}{
		{name: "even split", total: 1200, fee: 0, num: 4, wantAmounts: []float64{300, 300, 300, 300}},
		{name: "fee deducted", total: 1200, fee: 200, num: 4, wantAmounts: []float64{250, 250, 250, 250}},
		{name: "last absorbs remainder", total: 1000, fee: 0, num: 3, wantAmounts: []float64{333.33, 333.33, 333.34}},
		{name: "cents survive", total: 100.01, fee: 0, num: 2, wantAmounts: []float64{50, 50.01}},
		{name: "single installment", total: 999.99, fee: 99.99, num: 1, wantAmounts: []float64{900}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := billing.PaymentPlan{
				ID:              1,
				TotalAmount:     tt.total,
				EnrollmentFee:   tt.fee,
				NumInstallments: tt.num,
				StartDate:       start,
			}
			installments := billing.GenerateInstallments(plan)
			require.Len(t, installments, tt.num)

			var sum float64
			for i, inst := range installments {
				assert.Equal(t, 1, inst.PlanID)
				assert.Equal(t, i+1, inst.Number)
				assert.InDelta(t, tt.wantAmounts[i], inst.Amount, 1e-9)
				assert.Equal(t, start.AddDate(0, i, 0), inst.DueDate)
				sum += inst.Amount
			}
			assert.InDelta(t, tt.total-tt.fee, sum, 0.001, "installments must sum to the financed amount")
		})
	}
}

func TestNewPaymentPlan_Validate(t *testing.T) {
	validate := validator.New()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	np := billing.NewPaymentPlan{StudentID: 1, TotalAmount: 1200, EnrollmentFee: 100, NumInstallments: 6, StartDate: start}
	assert.NoError(t, np.Validate(validate))

	// fee must stay below the total
	np.EnrollmentFee = 1200
	err := np.Validate(validate)
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "enrollment_fee", vErr.Fields[0].Field)

	np.EnrollmentFee = 100
	np.NumInstallments = 0
	assert.Error(t, np.Validate(validate))
}

func TestReviewVoucher_Validate(t *testing.T) {
	validate := validator.New()

	rv := billing.ReviewVoucher{Action: "approve"}
	assert.NoError(t, rv.Validate(validate))

	// action is case-insensitive
	rv = billing.ReviewVoucher{Action: " APPROVE "}
	assert.NoError(t, rv.Validate(validate))
	assert.Equal(t, billing.ReviewApprove, rv.Action)

	rv = billing.ReviewVoucher{Action: "shred"}
	assert.Error(t, rv.Validate(validate))

	// a rejection without a reason is invalid
	rv = billing.ReviewVoucher{Action: "reject"}
	err := rv.Validate(validate)
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "reason", vErr.Fields[0].Field)

	// a blank reason does not count
	rv = billing.ReviewVoucher{Action: "reject", Reason: "   "}
	assert.Error(t, rv.Validate(validate))

	rv = billing.ReviewVoucher{Action: "reject", Reason: "monto ilegible"}
	assert.NoError(t, rv.Validate(validate))

	// an approval never requires one
	rv = billing.ReviewVoucher{Action: "approve", Reason: ""}
	assert.NoError(t, rv.Validate(validate))
}
