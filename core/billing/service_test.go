package billing_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/billing"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/student"
	broadcastsvc "github.com/tmonsalve/aula/services/broadcast"
	emailsvc "github.com/tmonsalve/aula/services/email"
	dummydb "github.com/tmonsalve/aula/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type staticLevels map[int]string

func (l staticLevels) LevelName(ctx context.Context, id int) string { return l[id] }

type staticDirectory []notify.Recipient

func (d staticDirectory) Cashiers(ctx context.Context) ([]notify.Recipient, error) { return d, nil }

type testEnv struct {
	svc         *billing.Service
	students    *student.Service
	broadcaster *broadcastsvc.DummyBroadcaster
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := &core.Config{
		AppName:          "Aula",
		AdminEmail:       mail.Address{Address: "admin@aula.cl"},
		DefaultFromEmail: mail.Address{Name: "Aula", Address: "noreply@aula.cl"},
	}
	db, _ := dummydb.Open()
	stdSvc := student.NewService(dummydb.NewStudentRepository(db))
	broadcaster := broadcastsvc.NewDummyBroadcaster()
	dispatcher := notify.NewDispatcher(
		broadcaster,
		dummydb.NewNotificationRepository(db),
		emailsvc.NewConsoleServiceMock(conf),
		notify.NewRenderer(nil),
		staticDirectory{{UserID: 10, Name: "Caja 1", Email: "caja1@aula.cl"}},
		nopLogger{},
		conf,
	)
	svc := billing.NewService(dummydb.NewBillingRepository(db), stdSvc, staticLevels{1: "A1"}, dispatcher)
	return testEnv{svc: svc, students: stdSvc, broadcaster: broadcaster}
}

func createStudent(t *testing.T, env testEnv) student.Student {
	t.Helper()
	st, err := env.students.Create(context.Background(), student.NewStudent{
		Name: "Camila Rojas", Email: "camila@test.cl", LevelID: 1,
	})
	require.NoError(t, err)

	userID := 42
	st, err = env.students.Update(context.Background(), st.ID, student.UpdateStudent{
		Name: st.Name, Email: st.Email, UserID: &userID,
	})
	require.NoError(t, err)
	return st
}

func TestService_CreatePlan(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	plan, err := env.svc.CreatePlan(ctx, billing.NewPaymentPlan{
		StudentID:       st.ID,
		TotalAmount:     1200,
		EnrollmentFee:   200,
		NumInstallments: 4,
		StartDate:       start,
	})
	require.NoError(t, err)
	assert.NotZero(t, plan.ID)

	gotPlan, installments, err := env.svc.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, gotPlan.ID)
	require.Len(t, installments, 4)
	for i, inst := range installments {
		assert.Equal(t, i+1, inst.Number)
		assert.InDelta(t, 250, inst.Amount, 1e-9)
	}

	plans, err := env.svc.QueryStudentPlans(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	// unknown student
	_, err = env.svc.CreatePlan(ctx, billing.NewPaymentPlan{StudentID: 999, TotalAmount: 100, NumInstallments: 1, StartDate: start})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_UploadVoucher(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env)

	v, res, err := env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 2,
		DeclaredAmount:    45000,
		FilePath:          "vouchers/a.jpg",
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, billing.VoucherPending, v.Status)
	assert.Equal(t, 1, v.Version)

	sent := env.broadcaster.Sent()
	require.Len(t, sent, 1)
	payload := sent[0].Payload.(map[string]interface{})
	assert.Equal(t, "Camila Rojas subió un nuevo voucher para la cuota #2", payload["message"])

	// a second upload for the same installment replaces the pending file
	env.broadcaster.Reset()
	v2, res, err := env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 2,
		DeclaredAmount:    46000,
		FilePath:          "vouchers/b.jpg",
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, v.ID, v2.ID, "pending voucher must be replaced, not duplicated")
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, "vouchers/b.jpg", v2.FilePath)
	assert.InDelta(t, 46000, v2.DeclaredAmount, 1e-9)

	sent = env.broadcaster.Sent()
	require.Len(t, sent, 1)
	payload = sent[0].Payload.(map[string]interface{})
	assert.Equal(t, "Camila Rojas reemplazó un voucher para la cuota #2", payload["message"])

	// a different installment gets its own voucher
	v3, _, err := env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 3,
		DeclaredAmount:    45000,
		FilePath:          "vouchers/c.jpg",
	})
	require.NoError(t, err)
	assert.NotEqual(t, v.ID, v3.ID)

	vouchers, err := env.svc.FilterVouchers(ctx, billing.VoucherFilter{StudentID: st.ID})
	require.NoError(t, err)
	assert.Len(t, vouchers, 2)
}

func TestService_ReviewVoucher_approve(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env)

	v, _, err := env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 1, DeclaredAmount: 45000, FilePath: "vouchers/a.jpg",
	})
	require.NoError(t, err)
	env.broadcaster.Reset()

	reviewed, res, err := env.svc.ReviewVoucher(ctx, v.ID, 10, billing.ReviewVoucher{
		Action: billing.ReviewApprove, Version: v.Version,
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, billing.VoucherApproved, reviewed.Status)
	assert.Equal(t, v.Version+1, reviewed.Version)
	assert.Equal(t, 10, reviewed.ReviewedBy.Int)
	assert.True(t, reviewed.ReviewedAt.Valid)

	// student's private topic got notified
	sent := env.broadcaster.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "users.42", sent[0].Topic)
	payload := sent[0].Payload.(map[string]interface{})
	assert.Equal(t, "approved", payload["status"])
}

func TestService_ReviewVoucher_reject(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env)

	v, _, err := env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 1, DeclaredAmount: 45000, FilePath: "vouchers/a.jpg",
	})
	require.NoError(t, err)
	env.broadcaster.Reset()

	reviewed, _, err := env.svc.ReviewVoucher(ctx, v.ID, 10, billing.ReviewVoucher{
		Action: billing.ReviewReject, Reason: "monto ilegible", Version: v.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.VoucherRejected, reviewed.Status)
	assert.Equal(t, "monto ilegible", reviewed.RejectReason.String)

	payload := env.broadcaster.Sent()[0].Payload.(map[string]interface{})
	assert.Equal(t, "rejected", payload["status"])
	assert.Equal(t, "monto ilegible", payload["reason"])
}

// Two cashiers race on the same pending voucher: exactly one decision sticks,
// the loser gets a conflict and emits no event.
func TestService_ReviewVoucher_conflict(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env)

	v, _, err := env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 1, DeclaredAmount: 45000, FilePath: "vouchers/a.jpg",
	})
	require.NoError(t, err)

	_, _, err = env.svc.ReviewVoucher(ctx, v.ID, 10, billing.ReviewVoucher{
		Action: billing.ReviewApprove, Version: v.Version,
	})
	require.NoError(t, err)
	env.broadcaster.Reset()

	// the second decision carries the stale version
	_, _, err = env.svc.ReviewVoucher(ctx, v.ID, 11, billing.ReviewVoucher{
		Action: billing.ReviewReject, Reason: "monto ilegible", Version: v.Version,
	})
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))
	assert.Empty(t, env.broadcaster.Sent(), "a losing decision must not notify")

	// the first decision stands
	got, err := env.svc.GetVoucher(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.VoucherApproved, got.Status)
	assert.Equal(t, 10, got.ReviewedBy.Int)
}

func TestService_ReviewVoucher_staleVersion(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env)

	v, _, err := env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 1, DeclaredAmount: 45000, FilePath: "vouchers/a.jpg",
	})
	require.NoError(t, err)

	// the student replaced the file after the cashier loaded the voucher
	_, _, err = env.svc.UploadVoucher(ctx, st.ID, billing.NewVoucher{
		InstallmentNumber: 1, DeclaredAmount: 46000, FilePath: "vouchers/b.jpg",
	})
	require.NoError(t, err)

	_, _, err = env.svc.ReviewVoucher(ctx, v.ID, 10, billing.ReviewVoucher{
		Action: billing.ReviewApprove, Version: v.Version, // stale
	})
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))
}
