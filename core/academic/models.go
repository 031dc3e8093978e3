package academic

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core"
)

type Level struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"` // ordering in the curriculum
}

type Group struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	LevelID       int      `json:"level_id"`
	TeacherID     null.Int `json:"teacher_id"` // teacher's user ID
	Capacity      int      `json:"capacity"`
	ScheduleLabel string   `json:"schedule_label"` // eg. "Lun/Mié 18:00"
}

type ScheduledClass struct {
	ID          int       `json:"id"`
	GroupID     int       `json:"group_id"`
	TeacherID   null.Int  `json:"teacher_id"` // teacher's user ID
	Topic       string    `json:"topic"`
	StartsAt    time.Time `json:"starts_at"` // UTC
	DurationMin int       `json:"duration_min"`
}

type NewLevel struct {
	Name     string `json:"name" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

func (nl *NewLevel) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	return validate.Struct(nl)
}

type NewGroup struct {
	Name          string `json:"name" validate:"required"`
	LevelID       int    `json:"level_id" validate:"required"`
	TeacherID     int    `json:"teacher_id"`
	Capacity      int    `json:"capacity" validate:"gt=0"`
	ScheduleLabel string `json:"schedule_label"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.ScheduleLabel = core.CleanString(ng.ScheduleLabel)
	return validate.Struct(ng)
}

type NewScheduledClass struct {
	GroupID     int       `json:"group_id" validate:"required"`
	TeacherID   int       `json:"teacher_id"`
	Topic       string    `json:"topic"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	DurationMin int       `json:"duration_min" validate:"gt=0"`
}

func (nc *NewScheduledClass) Validate(validate *validator.Validate) error {
	nc.Topic = core.CleanString(nc.Topic)
	return validate.Struct(nc)
}

// AssignTeacher assigns a teacher to a scheduled class.
type AssignTeacher struct {
	TeacherID int `json:"teacher_id" validate:"required"`
}

func (at *AssignTeacher) Validate(validate *validator.Validate) error {
	return validate.Struct(at)
}
