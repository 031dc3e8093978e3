package contract

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
	ErrNotFound       = errors.New("contract acceptance not found")
	ErrAlreadySigned  = errors.New("contract already signed")
	ErrNotSigned      = errors.New("contract has not been signed")
	ErrUpdateConflict = errors.New("contract was changed concurrently")
)

type (
	Repository interface {
		CreateAcceptance(ctx context.Context, a Acceptance) (Acceptance, error)
		GetAcceptanceByID(ctx context.Context, id int) (Acceptance, error)
		GetStudentAcceptance(ctx context.Context, studentID int) (Acceptance, error)
		// UpdateAcceptanceStatus applies a status transition iff the stored
		// version still matches; ErrUpdateConflict otherwise.
		UpdateAcceptanceStatus(ctx context.Context, a Acceptance, expectedVersion int) (Acceptance, error)
	}

	Service struct {
		repo       Repository
		students   *student.Service
		levels     LevelNamer
		dispatcher *notify.Dispatcher
	}

	// LevelNamer resolves an academic level's display name for snapshots.
	LevelNamer interface {
		LevelName(ctx context.Context, id int) string
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

// Open creates the unsigned acceptance for a student's enrollment.
func (svc *Service) Open(ctx context.Context, studentID int) (Acceptance, error) {
	if _, err := svc.students.GetByID(ctx, studentID); err != nil {
		return Acceptance{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateAcceptance(ctx, Acceptance{
		StudentID: studentID,
		Status:    StatusUnsigned,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Acceptance, error) {
	return svc.repo.GetAcceptanceByID(ctx, id)
}

func (svc *Service) GetForStudent(ctx context.Context, studentID int) (Acceptance, error) {
	return svc.repo.GetStudentAcceptance(ctx, studentID)
}

// Sign records the student's signature (unsigned -> signed) and notifies the
// registering advisor's topic plus the admin mailbox, attaching the signed
// document. A student without a registering advisor still signs fine; only
// the broadcast is dropped.
func (svc *Service) Sign(ctx context.Context, id int, sc SignContract) (Acceptance, notify.DispatchResult, error) {
	a, err := svc.repo.GetAcceptanceByID(ctx, id)
	if err != nil {
		return Acceptance{}, notify.DispatchResult{}, err
	}
	if a.IsSigned() {
		return Acceptance{}, notify.DispatchResult{}, core.NewConflictError(ErrAlreadySigned)
	}

	now := time.Now().UTC()
	expectedVersion := a.Version
	a.Status = StatusSigned
	a.DocumentPath = sc.DocumentPath
	a.SignedAt = null.TimeFrom(now)
	a.UpdatedAt = now

	a, err = svc.repo.UpdateAcceptanceStatus(ctx, a, expectedVersion)
	if err != nil {
		if errors.Cause(err) == ErrUpdateConflict {
			return Acceptance{}, notify.DispatchResult{}, core.NewConflictError(err)
		}
		return Acceptance{}, notify.DispatchResult{}, err
	}

	st, err := svc.students.GetByID(ctx, a.StudentID)
	if err != nil {
		return Acceptance{}, notify.DispatchResult{}, errors.Wrap(err, "loading signing student")
	}
	res := svc.dispatcher.Dispatch(ctx, notify.Event{
		Kind:       notify.KindContractSigned,
		OccurredAt: now,
		Student: notify.StudentRef{
			ID:        st.ID,
			UserID:    st.UserID.Int,
			Name:      st.Name,
			Email:     st.Email,
			AdvisorID: st.AdvisorID.Int,
			LevelName: svc.levels.LevelName(ctx, st.LevelID.Int),
		},
		Contract: &notify.ContractRef{
			ID:           a.ID,
			DocumentPath: a.DocumentPath,
			SignedAt:     now,
		},
	})
	return a, res, nil
}

// RequestVerification moves a signed acceptance to verification_pending.
func (svc *Service) RequestVerification(ctx context.Context, id int) (Acceptance, error) {
	a, err := svc.repo.GetAcceptanceByID(ctx, id)
	if err != nil {
		return Acceptance{}, err
	}
	if a.Status != StatusSigned {
		return Acceptance{}, core.NewConflictError(ErrNotSigned)
	}

	expectedVersion := a.Version
	a.Status = StatusVerificationPending
	a.UpdatedAt = time.Now().UTC()

	a, err = svc.repo.UpdateAcceptanceStatus(ctx, a, expectedVersion)
	if err != nil {
		if errors.Cause(err) == ErrUpdateConflict {
			return Acceptance{}, core.NewConflictError(err)
		}
		return Acceptance{}, err
	}
	return a, nil
}
