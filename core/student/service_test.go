package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/student"
	dummydb "github.com/tmonsalve/aula/storage/database/dummy"
)

func newService(t *testing.T) *student.Service {
	t.Helper()
	db, _ := dummydb.Open()
	return student.NewService(dummydb.NewStudentRepository(db))
}

func TestService_Create(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, student.NewStudent{
		Name:      "Camila Rojas",
		Email:     "camila@test.cl",
		AdvisorID: 5,
		LevelID:   1,
	})
	require.NoError(t, err)
	assert.NotZero(t, st.ID)
	assert.Equal(t, student.StatusLead, st.Status, "a new prospect always starts as a lead")
	assert.Equal(t, 5, st.AdvisorID.Int)
	assert.Equal(t, 1, st.LevelID.Int)
	assert.False(t, st.UserID.Valid, "no portal account until enrollment")

	// advisor and level are optional
	st, err = svc.Create(ctx, student.NewStudent{Name: "Ana Díaz"})
	require.NoError(t, err)
	assert.False(t, st.AdvisorID.Valid)
	assert.False(t, st.LevelID.Valid)
}

func TestService_ChangeStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, student.NewStudent{Name: "Camila Rojas"})
	require.NoError(t, err)

	walk := []string{student.StatusContacted, student.StatusTrialScheduled, student.StatusEnrolled}
	for _, status := range walk {
		st, err = svc.ChangeStatus(ctx, st.ID, student.ChangeStatus{Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, st.Status)
	}
	assert.True(t, st.IsEnrolled())

	// enrolled is terminal
	_, err = svc.ChangeStatus(ctx, st.ID, student.ChangeStatus{Status: student.StatusLost})
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "status", vErr.Fields[0].Field)
	assert.Equal(t, student.ErrInvalidTransition, errors.Cause(vErr.Err))

	// the stored status did not move
	got, err := svc.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusEnrolled, got.Status)

	// skipping ahead is rejected too
	lead, err := svc.Create(ctx, student.NewStudent{Name: "Ana Díaz"})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, lead.ID, student.ChangeStatus{Status: student.StatusEnrolled})
	assert.Error(t, err)

	_, err = svc.ChangeStatus(ctx, 999, student.ChangeStatus{Status: student.StatusContacted})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_Filter(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	camila, err := svc.Create(ctx, student.NewStudent{Name: "Camila Rojas", Email: "camila@test.cl", AdvisorID: 5})
	require.NoError(t, err)
	ana, err := svc.Create(ctx, student.NewStudent{Name: "Ana Díaz", AdvisorID: 6, LevelID: 2})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, ana.ID, student.ChangeStatus{Status: student.StatusContacted})
	require.NoError(t, err)

	got, err := svc.Filter(ctx, student.QueryFilter{Search: "camila"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, camila.ID, got[0].ID)

	got, err = svc.Filter(ctx, student.QueryFilter{Status: " CONTACTED "}) // cleaned
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ana.ID, got[0].ID)

	got, err = svc.Filter(ctx, student.QueryFilter{AdvisorID: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, camila.ID, got[0].ID)

	got, err = svc.Filter(ctx, student.QueryFilter{LevelID: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ana.ID, got[0].ID)

	got, err = svc.Filter(ctx, student.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestService_Update(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, student.NewStudent{Name: "Camila Rojas", Email: "camila@test.cl", Phone: "+56911111111"})
	require.NoError(t, err)

	levelID, userID := 3, 42
	got, err := svc.Update(ctx, st.ID, student.UpdateStudent{
		Name:    "Camila A. Rojas",
		Email:   st.Email,
		LevelID: &levelID,
		UserID:  &userID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Camila A. Rojas", got.Name)
	assert.Equal(t, "+56911111111", got.Phone, "blank phone keeps the stored one")
	assert.Equal(t, 3, got.LevelID.Int)
	assert.Equal(t, 42, got.UserID.Int)

	byUser, err := svc.GetByUserID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, st.ID, byUser.ID)
}
