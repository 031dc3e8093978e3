package student_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/tmonsalve/aula/core/student"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{student.StatusLead, student.StatusContacted, true},
		{student.StatusLead, student.StatusLost, true},
		{student.StatusLead, student.StatusTrialScheduled, false},
		{student.StatusLead, student.StatusEnrolled, false},
		{student.StatusContacted, student.StatusTrialScheduled, true},
		{student.StatusContacted, student.StatusEnrolled, true},
		{student.StatusContacted, student.StatusLost, true},
		{student.StatusContacted, student.StatusLead, false},
		{student.StatusTrialScheduled, student.StatusEnrolled, true},
		{student.StatusTrialScheduled, student.StatusLost, true},
		{student.StatusTrialScheduled, student.StatusContacted, false},
		// both end states are terminal
		{student.StatusEnrolled, student.StatusLost, false},
		{student.StatusEnrolled, student.StatusLead, false},
		{student.StatusLost, student.StatusLead, false},
		{student.StatusLost, student.StatusContacted, false},
		// self-transitions are not a thing
		{student.StatusLead, student.StatusLead, false},
		// unknown statuses go nowhere
		{"lol", student.StatusLead, false},
		{student.StatusLead, "lol", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, student.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNewStudent_Validate(t *testing.T) {
	validate := validator.New()

	ns := student.NewStudent{Name: "  Camila Rojas ", Email: " CAMILA@Test.cl ", Phone: " +56 9 1234 "}
	assert.NoError(t, ns.Validate(validate))
	assert.Equal(t, "Camila Rojas", ns.Name)
	assert.Equal(t, "camila@test.cl", ns.Email)
	assert.Equal(t, "+56 9 1234", ns.Phone)

	// email is optional, name is not
	ns = student.NewStudent{Name: "Camila Rojas"}
	assert.NoError(t, ns.Validate(validate))

	ns = student.NewStudent{Email: "camila@test.cl"}
	assert.Error(t, ns.Validate(validate))

	ns = student.NewStudent{Name: "Camila Rojas", Email: "not-an-email"}
	assert.Error(t, ns.Validate(validate))
}

func TestUpdateStudent_Validate(t *testing.T) {
	validate := validator.New()
	orig := student.Student{Name: "Camila Rojas", Email: "camila@test.cl"}

	// blank fields keep the original values
	us := student.UpdateStudent{}
	assert.NoError(t, us.Validate(validate, orig))
	assert.Equal(t, orig.Name, us.Name)
	assert.Equal(t, orig.Email, us.Email)

	us = student.UpdateStudent{Name: "Camila A. Rojas", Email: "NEW@Test.cl"}
	assert.NoError(t, us.Validate(validate, orig))
	assert.Equal(t, "Camila A. Rojas", us.Name)
	assert.Equal(t, "new@test.cl", us.Email)
}
