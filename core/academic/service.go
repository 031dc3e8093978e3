package academic

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/user"
)

var (
	// errors
	ErrLevelNotFound   = errors.New("level not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrTeacherRequired = errors.New("user does not hold the teacher role")
)

type (
	Repository interface {
		CreateLevel(ctx context.Context, lvl Level) (Level, error)
		GetLevelByID(ctx context.Context, id int) (Level, error)
		QueryAllLevels(ctx context.Context) ([]Level, error)
		UpdateLevel(ctx context.Context, lvl Level) (Level, error)
		DeleteLevel(ctx context.Context, id int) error

		CreateGroup(ctx context.Context, grp Group) (Group, error)
		GetGroupByID(ctx context.Context, id int) (Group, error)
		QueryAllGroups(ctx context.Context) ([]Group, error)
		UpdateGroup(ctx context.Context, grp Group) (Group, error)
		DeleteGroup(ctx context.Context, id int) error

		CreateClass(ctx context.Context, cls ScheduledClass) (ScheduledClass, error)
		GetClassByID(ctx context.Context, id int) (ScheduledClass, error)
		QueryGroupClasses(ctx context.Context, groupID int) ([]ScheduledClass, error)
		UpdateClass(ctx context.Context, cls ScheduledClass) (ScheduledClass, error)
		DeleteClass(ctx context.Context, id int) error
	}

	Service struct {
		repo       Repository
		usrSvc     *user.Service
		dispatcher *notify.Dispatcher
	}
)

func NewService(repo Repository, usrSvc *user.Service, dispatcher *notify.Dispatcher) *Service {
	return &Service{
		repo:       repo,
		usrSvc:     usrSvc,
		dispatcher: dispatcher,
	}
}

// Levels

func (svc *Service) CreateLevel(ctx context.Context, nl NewLevel) (Level, error) {
	return svc.repo.CreateLevel(ctx, Level{Name: nl.Name, Position: nl.Position})
}

func (svc *Service) GetLevel(ctx context.Context, id int) (Level, error) {
	return svc.repo.GetLevelByID(ctx, id)
}

// LevelName returns the level's display name, or "" when id is zero or the
// level is gone; callers substitute the human-readable fallback.
func (svc *Service) LevelName(ctx context.Context, id int) string {
	if id == 0 {
		return ""
	}
	lvl, err := svc.repo.GetLevelByID(ctx, id)
	if err != nil {
		return ""
	}
	return lvl.Name
}

func (svc *Service) QueryLevels(ctx context.Context) ([]Level, error) {
	return svc.repo.QueryAllLevels(ctx)
}

func (svc *Service) UpdateLevel(ctx context.Context, id int, nl NewLevel) (Level, error) {
	lvl, err := svc.repo.GetLevelByID(ctx, id)
	if err != nil {
		return Level{}, err
	}
	lvl.Name = nl.Name
	lvl.Position = nl.Position
	return svc.repo.UpdateLevel(ctx, lvl)
}

func (svc *Service) DeleteLevel(ctx context.Context, id int) error {
	return svc.repo.DeleteLevel(ctx, id)
}

// Groups

func (svc *Service) CreateGroup(ctx context.Context, ng NewGroup) (Group, error) {
	grp := Group{
		Name:          ng.Name,
		LevelID:       ng.LevelID,
		Capacity:      ng.Capacity,
		ScheduleLabel: ng.ScheduleLabel,
	}
	if ng.TeacherID != 0 {
		if err := svc.checkTeacher(ctx, ng.TeacherID); err != nil {
			return Group{}, err
		}
		grp.TeacherID = null.IntFrom(ng.TeacherID)
	}
	return svc.repo.CreateGroup(ctx, grp)
}

func (svc *Service) GetGroup(ctx context.Context, id int) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *Service) QueryGroups(ctx context.Context) ([]Group, error) {
	return svc.repo.QueryAllGroups(ctx)
}

func (svc *Service) UpdateGroup(ctx context.Context, id int, ng NewGroup) (Group, error) {
	grp, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	grp.Name = ng.Name
	grp.LevelID = ng.LevelID
	grp.Capacity = ng.Capacity
	grp.ScheduleLabel = ng.ScheduleLabel
	if ng.TeacherID != 0 {
		if err := svc.checkTeacher(ctx, ng.TeacherID); err != nil {
			return Group{}, err
		}
		grp.TeacherID = null.IntFrom(ng.TeacherID)
	}
	return svc.repo.UpdateGroup(ctx, grp)
}

func (svc *Service) DeleteGroup(ctx context.Context, id int) error {
	return svc.repo.DeleteGroup(ctx, id)
}

// Scheduled classes

func (svc *Service) CreateClass(ctx context.Context, nc NewScheduledClass) (ScheduledClass, error) {
	cls := ScheduledClass{
		GroupID:     nc.GroupID,
		Topic:       nc.Topic,
		StartsAt:    nc.StartsAt.UTC(),
		DurationMin: nc.DurationMin,
	}
	if nc.TeacherID != 0 {
		if err := svc.checkTeacher(ctx, nc.TeacherID); err != nil {
			return ScheduledClass{}, err
		}
		cls.TeacherID = null.IntFrom(nc.TeacherID)
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) GetClass(ctx context.Context, id int) (ScheduledClass, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryGroupClasses(ctx context.Context, groupID int) ([]ScheduledClass, error) {
	return svc.repo.QueryGroupClasses(ctx, groupID)
}

func (svc *Service) DeleteClass(ctx context.Context, id int) error {
	return svc.repo.DeleteClass(ctx, id)
}

// AssignClassTeacher assigns a teacher to a scheduled class and notifies
// them on their private topic.
func (svc *Service) AssignClassTeacher(ctx context.Context, classID int, at AssignTeacher) (ScheduledClass, notify.DispatchResult, error) {
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return ScheduledClass{}, notify.DispatchResult{}, err
	}

	tchr, err := svc.usrSvc.GetByID(ctx, at.TeacherID)
	if err != nil {
		return ScheduledClass{}, notify.DispatchResult{}, err
	}
	if !tchr.IsTeacher() {
		return ScheduledClass{}, notify.DispatchResult{}, core.NewValidationError(ErrTeacherRequired, core.FieldError{
			Field: "teacher_id",
			Error: ErrTeacherRequired.Error(),
		})
	}

	cls.TeacherID = null.IntFrom(tchr.ID)
	cls, err = svc.repo.UpdateClass(ctx, cls)
	if err != nil {
		return ScheduledClass{}, notify.DispatchResult{}, err
	}

	grp, _ := svc.repo.GetGroupByID(ctx, cls.GroupID)
	res := svc.dispatcher.Dispatch(ctx, notify.Event{
		Kind:       notify.KindClassAssigned,
		OccurredAt: time.Now().UTC(),
		Class: &notify.ClassRef{
			ID:            cls.ID,
			GroupName:     grp.Name,
			StartsAt:      cls.StartsAt,
			TeacherUserID: tchr.ID,
			TeacherName:   tchr.Name,
		},
	})
	return cls, res, nil
}

func (svc *Service) checkTeacher(ctx context.Context, userID int) error {
	tchr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !tchr.IsTeacher() {
		return core.NewValidationError(ErrTeacherRequired, core.FieldError{
			Field: "teacher_id",
			Error: ErrTeacherRequired.Error(),
		})
	}
	return nil
}
