package settings

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tmonsalve/aula/core"
)

// Setting types
const (
	TypeMail    = "mail"
	TypeGeneral = "general"
)

// Mail template keys. Rows of TypeMail hold admin-editable message templates
// with literal {{placeholder}} markers; see core/notify.
const (
	KeyContractSignedAdmin = "contract_signed_admin"
	KeyVoucherApproved     = "voucher_approved"
	KeyVoucherRejected     = "voucher_rejected"
)

// Setting is a raw (type, key) -> value configuration row.
type Setting struct {
	ID        int       `json:"id"`
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// UpsertSetting contains information needed to create or replace a Setting.
type UpsertSetting struct {
	Type  string `json:"type" validate:"required"`
	Key   string `json:"key" validate:"required,alphanum_"`
	Value string `json:"value" validate:"required"`
}

func (us *UpsertSetting) Validate(validate *validator.Validate) error {
	us.Type = core.CleanString(us.Type, true /* lower */)
	us.Key = core.CleanString(us.Key, true /* lower */)
	us.Value = core.CleanString(us.Value)
	return validate.Struct(us)
}
