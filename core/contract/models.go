package contract

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core"
)

// Contract acceptance statuses: unsigned -> signed -> verification_pending.
// Signing is the student's own action; moving to verification is an admin
// action. Review outcomes past verification are outside this pipeline.
const (
	StatusUnsigned            = "unsigned"
	StatusSigned              = "signed"
	StatusVerificationPending = "verification_pending"
)

type Acceptance struct {
	ID           int       `json:"id"`
	StudentID    int       `json:"student_id"`
	Status       string    `json:"status"`
	DocumentPath string    `json:"-"` // signed contract PDF
	SignedAt     null.Time `json:"signed_at"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (a *Acceptance) IsSigned() bool { return a.Status != StatusUnsigned }

// SignContract is the student's signing action; the document path points at
// the stored signed PDF.
type SignContract struct {
	DocumentPath string `json:"document_path" validate:"required"`
}

func (sc *SignContract) Validate(validate *validator.Validate) error {
	sc.DocumentPath = core.CleanString(sc.DocumentPath)
	return validate.Struct(sc)
}
