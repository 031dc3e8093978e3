package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core"
)

// Prospect pipeline statuses. A student record starts as a lead and walks the
// sales pipeline until enrollment; "lost" is reachable from any non-enrolled
// status.
const (
	StatusLead           = "lead"
	StatusContacted      = "contacted"
	StatusTrialScheduled = "trial_scheduled"
	StatusEnrolled       = "enrolled"
	StatusLost           = "lost"
)

var AllStatuses = []string{StatusLead, StatusContacted, StatusTrialScheduled, StatusEnrolled, StatusLost}

// statusTransitions maps each status to the statuses it may move to.
var statusTransitions = map[string][]string{
	StatusLead:           {StatusContacted, StatusLost},
	StatusContacted:      {StatusTrialScheduled, StatusEnrolled, StatusLost},
	StatusTrialScheduled: {StatusEnrolled, StatusLost},
	StatusEnrolled:       {},
	StatusLost:           {},
}

// CanTransition reports whether a prospect may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Student struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	UserID    null.Int  `json:"user_id"`    // linked portal account, once enrolled
	LevelID   null.Int  `json:"level_id"`   // assigned academic level
	AdvisorID null.Int  `json:"advisor_id"` // registering advisor (user ID)
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (s *Student) IsEnrolled() bool { return s.Status == StatusEnrolled }

// NewStudent contains information needed to register a new prospect.
type NewStudent struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	AdvisorID int    `json:"advisor_id"`
	LevelID   int    `json:"level_id"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	LevelID *int   `json:"level_id"`
	UserID  *int   `json:"user_id"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate, orig Student) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	email := core.CleanString(us.Email, true /* lower */)
	if email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	return validate.Struct(us)
}

// ChangeStatus moves a prospect along the pipeline.
type ChangeStatus struct {
	Status string `json:"status" validate:"required"`
}

func (cs *ChangeStatus) Validate(validate *validator.Validate) error {
	cs.Status = core.CleanString(cs.Status, true /* lower */)
	return validate.Struct(cs)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Status    string `query:"status"`
	AdvisorID int    `query:"advisor_id"`
	LevelID   int    `query:"level_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.AdvisorID == 0 && qf.LevelID == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
