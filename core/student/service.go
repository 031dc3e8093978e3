package student

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core"
)

var (
	// errors
	ErrNotFound          = errors.New("student not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		GetStudentByUserID(ctx context.Context, userID int) (Student, error)
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	st := Student{
		Name:      ns.Name,
		Email:     ns.Email,
		Phone:     ns.Phone,
		Status:    StatusLead,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ns.AdvisorID != 0 {
		st.AdvisorID = null.IntFrom(ns.AdvisorID)
	}
	if ns.LevelID != 0 {
		st.LevelID = null.IntFrom(ns.LevelID)
	}
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByUserID(ctx context.Context, userID int) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.FilterStudents(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	st.Name = us.Name
	st.Email = us.Email
	if us.Phone != "" {
		st.Phone = us.Phone
	}
	if us.LevelID != nil {
		st.LevelID = null.IntFrom(*us.LevelID)
	}
	if us.UserID != nil {
		st.UserID = null.IntFrom(*us.UserID)
	}
	st.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, st)
}

// ChangeStatus validates the pipeline transition and persists it.
func (svc *Service) ChangeStatus(ctx context.Context, id int, cs ChangeStatus) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if !CanTransition(st.Status, cs.Status) {
		return Student{}, core.NewValidationError(ErrInvalidTransition, core.FieldError{
			Field: "status",
			Error: fmt.Sprintf("cannot move from %q to %q", st.Status, cs.Status),
		})
	}
	st.Status = cs.Status
	st.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, st)
}
