package contract_test

import (
	"context"
	"net/mail"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/contract"
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

type emptyDirectory struct{}

func (emptyDirectory) Cashiers(ctx context.Context) ([]notify.Recipient, error) { return nil, nil }

type staticLevels map[int]string

func (l staticLevels) LevelName(ctx context.Context, id int) string { return l[id] }

type testEnv struct {
	svc         *contract.Service
	students    *student.Service
	broadcaster *broadcastsvc.DummyBroadcaster
	mediaRoot   string
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := &core.Config{
		AppName:          "Aula",
		AdminEmail:       mail.Address{Address: "admin@aula.cl"},
		DefaultFromEmail: mail.Address{Name: "Aula", Address: "noreply@aula.cl"},
		MediaRoot:        t.TempDir(),
	}
	db, _ := dummydb.Open()
	stdSvc := student.NewService(dummydb.NewStudentRepository(db))
	broadcaster := broadcastsvc.NewDummyBroadcaster()
	dispatcher := notify.NewDispatcher(
		broadcaster, dummydb.NewNotificationRepository(db), emailsvc.NewConsoleServiceMock(conf),
		notify.NewRenderer(nil), emptyDirectory{}, nopLogger{}, conf,
	)
	svc := contract.NewService(dummydb.NewContractRepository(db), stdSvc, staticLevels{1: "A1"}, dispatcher)
	emailsvc.SentMessages = nil
	return testEnv{svc: svc, students: stdSvc, broadcaster: broadcaster, mediaRoot: conf.MediaRoot}
}

// writeDocument drops a signed document under the media root, where the
// dispatcher expects to find email attachments.
func writeDocument(t *testing.T, env testEnv, relPath string) {
	t.Helper()
	abs := filepath.Join(env.mediaRoot, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte("%PDF-1.4"), 0o644))
}

func createStudent(t *testing.T, env testEnv, advisorID int) student.Student {
	t.Helper()
	st, err := env.students.Create(context.Background(), student.NewStudent{
		Name: "Camila Rojas", Email: "camila@test.cl", AdvisorID: advisorID, LevelID: 1,
	})
	require.NoError(t, err)
	return st
}

func TestService_Open(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env, 5)

	a, err := env.svc.Open(ctx, st.ID)
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, contract.StatusUnsigned, a.Status)
	assert.Equal(t, 1, a.Version)
	assert.False(t, a.IsSigned())

	got, err := env.svc.GetForStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = env.svc.Open(ctx, 999)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_Sign(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env, 5)

	a, err := env.svc.Open(ctx, st.ID)
	require.NoError(t, err)

	writeDocument(t, env, "contracts/abc.pdf")
	a, res, err := env.svc.Sign(ctx, a.ID, contract.SignContract{DocumentPath: "contracts/abc.pdf"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, contract.StatusSigned, a.Status)
	assert.True(t, a.SignedAt.Valid)
	assert.Equal(t, "contracts/abc.pdf", a.DocumentPath)
	assert.Equal(t, 2, a.Version)

	// the admin email went out with the stored document attached
	require.Len(t, emailsvc.SentMessages, 1)
	assert.True(t, emailsvc.SentMessages[0].HasAttachments())

	// the registering advisor's topic got the event
	sent := env.broadcaster.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.AdvisorTopic(5), sent[0].Topic)
	assert.Equal(t, "contract_signed", sent[0].Event)

	// signing twice conflicts
	_, _, err = env.svc.Sign(ctx, a.ID, contract.SignContract{DocumentPath: "contracts/again.pdf"})
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))
	assert.Equal(t, contract.ErrAlreadySigned, errors.Cause(errors.Cause(err).(*core.ConflictError).Err))
}

// An advisor-less student signs fine; only the advisor broadcast is dropped.
func TestService_Sign_noAdvisor(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env, 0)

	a, err := env.svc.Open(ctx, st.ID)
	require.NoError(t, err)

	writeDocument(t, env, "contracts/abc.pdf")
	a, res, err := env.svc.Sign(ctx, a.ID, contract.SignContract{DocumentPath: "contracts/abc.pdf"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, contract.StatusSigned, a.Status)
	assert.Empty(t, env.broadcaster.Sent())
	assert.Equal(t, 1, res.Destinations, "only the admin email remains")
}

func TestService_RequestVerification(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	st := createStudent(t, env, 5)

	a, err := env.svc.Open(ctx, st.ID)
	require.NoError(t, err)

	// cannot verify an unsigned contract
	_, err = env.svc.RequestVerification(ctx, a.ID)
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))

	writeDocument(t, env, "contracts/abc.pdf")
	a, _, err = env.svc.Sign(ctx, a.ID, contract.SignContract{DocumentPath: "contracts/abc.pdf"})
	require.NoError(t, err)

	a, err = env.svc.RequestVerification(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.StatusVerificationPending, a.Status)
	assert.Equal(t, 3, a.Version)

	// latest acceptance still resolves for the student
	got, err := env.svc.GetForStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.StatusVerificationPending, got.Status)
}
