package notify

import "time"

// Kind identifies a domain event raised by a completed business action.
type Kind string

const (
	KindVoucherUploaded Kind = "voucher_uploaded"
	KindVoucherReviewed Kind = "voucher_reviewed"
	KindContractSigned  Kind = "contract_signed"
	KindClassAssigned   Kind = "class_assigned"
)

// Action tags carried by events whose kind admits variants.
const (
	ActionUploaded = "uploaded"
	ActionReplaced = "replaced"
	ActionApproved = "approved"
	ActionRejected = "rejected"
)

// Recipient is a minimal user reference captured into an event snapshot at
// emit time, so channel resolution stays a pure function of the event.
type Recipient struct {
	UserID int
	Name   string
	Email  string
}

// StudentRef snapshots the student a business action concerns.
type StudentRef struct {
	ID        int
	UserID    int // linked portal account; 0 when none
	Name      string
	Email     string
	AdvisorID int    // registering advisor's user ID; 0 when none
	LevelName string // empty when no level assigned
}

type VoucherRef struct {
	ID                int
	InstallmentNumber int
	DeclaredAmount    float64
	FilePath          string
	UploadedAt        time.Time
}

type ContractRef struct {
	ID           int
	DocumentPath string // signed contract PDF
	SignedAt     time.Time
}

type ClassRef struct {
	ID            int
	GroupName     string
	StartsAt      time.Time
	TeacherUserID int
	TeacherName   string
}

// Event is an immutable snapshot of a completed business action. It is
// created once, never mutated, and consumed synchronously by the resolver
// and renderer within the triggering request.
type Event struct {
	Kind       Kind
	Action     string // uploaded|replaced|approved|rejected, where applicable
	Reason     string // human-readable rejection reason; required for ActionRejected
	OccurredAt time.Time

	Student  StudentRef
	Voucher  *VoucherRef
	Contract *ContractRef
	Class    *ClassRef

	// Cashiers is filled by the dispatcher for cashier-facing kinds.
	Cashiers []Recipient
}
