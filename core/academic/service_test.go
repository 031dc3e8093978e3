package academic_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/academic"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/user"
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

type emptyDirectory struct{}

func (emptyDirectory) Cashiers(ctx context.Context) ([]notify.Recipient, error) { return nil, nil }

type testEnv struct {
	svc         *academic.Service
	usrRepo     user.Repository
	broadcaster *broadcastsvc.DummyBroadcaster
	repo        notify.NotificationRepository
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := &core.Config{
		AppName:          "Aula",
		AdminEmail:       mail.Address{Address: "admin@aula.cl"},
		DefaultFromEmail: mail.Address{Name: "Aula", Address: "noreply@aula.cl"},
	}
	db, _ := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	broadcaster := broadcastsvc.NewDummyBroadcaster()
	notifRepo := dummydb.NewNotificationRepository(db)
	dispatcher := notify.NewDispatcher(
		broadcaster, notifRepo, emailsvc.NewConsoleServiceMock(conf),
		notify.NewRenderer(nil), emptyDirectory{}, nopLogger{}, conf,
	)
	svc := academic.NewService(dummydb.NewAcademicRepository(db), usrSvc, dispatcher)
	return testEnv{svc: svc, usrRepo: usrRepo, broadcaster: broadcaster, repo: notifRepo}
}

func createUser(t *testing.T, repo user.Repository, name string, roles []string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Username:  name,
		Email:     name + "@aula.cl",
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

func TestService_levels(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a1, err := env.svc.CreateLevel(ctx, academic.NewLevel{Name: "A1", Position: 1})
	require.NoError(t, err)
	_, err = env.svc.CreateLevel(ctx, academic.NewLevel{Name: "B1", Position: 3})
	require.NoError(t, err)
	a2, err := env.svc.CreateLevel(ctx, academic.NewLevel{Name: "A2", Position: 2})
	require.NoError(t, err)

	levels, err := env.svc.QueryLevels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"A1", "A2", "B1"}, []string{levels[0].Name, levels[1].Name, levels[2].Name},
		"levels come back in curriculum order")

	a1, err = env.svc.UpdateLevel(ctx, a1.ID, academic.NewLevel{Name: "A1 - Principiante", Position: 1})
	require.NoError(t, err)
	assert.Equal(t, "A1 - Principiante", env.svc.LevelName(ctx, a1.ID))

	// LevelName swallows lookups that cannot resolve
	assert.Empty(t, env.svc.LevelName(ctx, 0))
	assert.Empty(t, env.svc.LevelName(ctx, 999))

	require.NoError(t, env.svc.DeleteLevel(ctx, a2.ID))
	_, err = env.svc.GetLevel(ctx, a2.ID)
	assert.Equal(t, academic.ErrLevelNotFound, errors.Cause(err))
}

func TestService_groups(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := createUser(t, env.usrRepo, "jorge", []string{user.RoleTeacher})
	cashier := createUser(t, env.usrRepo, "caja1", []string{user.RoleCashier})

	lvl, err := env.svc.CreateLevel(ctx, academic.NewLevel{Name: "A1", Position: 1})
	require.NoError(t, err)

	grp, err := env.svc.CreateGroup(ctx, academic.NewGroup{
		Name: "A1-Lun", LevelID: lvl.ID, TeacherID: teacher.ID, Capacity: 12, ScheduleLabel: "Lun/Mié 18:00",
	})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, grp.TeacherID.Int)

	// only teacher role holders may lead a group
	_, err = env.svc.CreateGroup(ctx, academic.NewGroup{
		Name: "A1-Mar", LevelID: lvl.ID, TeacherID: cashier.ID, Capacity: 12,
	})
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "teacher_id", vErr.Fields[0].Field)

	grp, err = env.svc.UpdateGroup(ctx, grp.ID, academic.NewGroup{
		Name: "A1-Lun/Mié", LevelID: lvl.ID, Capacity: 14, ScheduleLabel: "Lun/Mié 19:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "A1-Lun/Mié", grp.Name)
	assert.Equal(t, 14, grp.Capacity)
	assert.Equal(t, teacher.ID, grp.TeacherID.Int, "omitting the teacher keeps the assigned one")

	groups, err := env.svc.QueryGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	require.NoError(t, env.svc.DeleteGroup(ctx, grp.ID))
	_, err = env.svc.GetGroup(ctx, grp.ID)
	assert.Equal(t, academic.ErrGroupNotFound, errors.Cause(err))
}

func TestService_classes(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := createUser(t, env.usrRepo, "jorge", []string{user.RoleTeacher})

	lvl, err := env.svc.CreateLevel(ctx, academic.NewLevel{Name: "A1", Position: 1})
	require.NoError(t, err)
	grp, err := env.svc.CreateGroup(ctx, academic.NewGroup{Name: "A1-Lun", LevelID: lvl.ID, Capacity: 12})
	require.NoError(t, err)

	first := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err = env.svc.CreateClass(ctx, academic.NewScheduledClass{
			GroupID:     grp.ID,
			TeacherID:   teacher.ID,
			Topic:       "Saludos",
			StartsAt:    first.AddDate(0, 0, 7*i),
			DurationMin: 90,
		})
		require.NoError(t, err)
	}

	classes, err := env.svc.QueryGroupClasses(ctx, grp.ID)
	require.NoError(t, err)
	require.Len(t, classes, 3)
	for i := 1; i < len(classes); i++ {
		assert.True(t, classes[i].StartsAt.After(classes[i-1].StartsAt), "classes come back chronologically")
	}

	require.NoError(t, env.svc.DeleteClass(ctx, classes[0].ID))
	_, err = env.svc.GetClass(ctx, classes[0].ID)
	assert.Equal(t, academic.ErrClassNotFound, errors.Cause(err))
}

func TestService_AssignClassTeacher(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := createUser(t, env.usrRepo, "jorge", []string{user.RoleTeacher})
	student := createUser(t, env.usrRepo, "camila", []string{user.RoleStudent})

	lvl, err := env.svc.CreateLevel(ctx, academic.NewLevel{Name: "A1", Position: 1})
	require.NoError(t, err)
	grp, err := env.svc.CreateGroup(ctx, academic.NewGroup{Name: "A1-Lun", LevelID: lvl.ID, Capacity: 12})
	require.NoError(t, err)
	cls, err := env.svc.CreateClass(ctx, academic.NewScheduledClass{
		GroupID: grp.ID, Topic: "Saludos", StartsAt: time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC), DurationMin: 90,
	})
	require.NoError(t, err)

	cls, res, err := env.svc.AssignClassTeacher(ctx, cls.ID, academic.AssignTeacher{TeacherID: teacher.ID})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, teacher.ID, cls.TeacherID.Int)

	// teacher got a private broadcast and a persisted record
	sent := env.broadcaster.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.UserTopic(teacher.ID), sent[0].Topic)
	assert.Equal(t, "class_assigned", sent[0].Event)

	ns, err := env.repo.QueryUserNotifications(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Message, "A1-Lun")

	// non-teachers are refused
	_, _, err = env.svc.AssignClassTeacher(ctx, cls.ID, academic.AssignTeacher{TeacherID: student.ID})
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))

	_, _, err = env.svc.AssignClassTeacher(ctx, 999, academic.AssignTeacher{TeacherID: teacher.ID})
	assert.Equal(t, academic.ErrClassNotFound, errors.Cause(err))
}
