package notify

import (
	"fmt"
	"net/mail"
)

// Broadcast topics.
const (
	TopicCashiers = "cashiers"

	advisorTopicFmt = "advisor.%d"
	userTopicFmt    = "users.%d"
)

// AdvisorTopic is the per-advisor broadcast topic.
func AdvisorTopic(advisorUserID int) string {
	return fmt.Sprintf(advisorTopicFmt, advisorUserID)
}

// UserTopic is a user's private broadcast topic.
func UserTopic(userID int) string {
	return fmt.Sprintf(userTopicFmt, userID)
}

type (
	// Destination is a tagged variant: one of TopicDest, RecordDest, EmailDest.
	Destination interface {
		destination()
	}

	// TopicDest broadcasts a named event on a topic.
	TopicDest struct {
		Topic string
		Event string // wire event name
	}

	// RecordDest appends a persisted notification to a user's log.
	RecordDest struct {
		UserID int
	}

	// EmailDest sends a templated email, optionally with one attachment
	// referenced by stored file path.
	EmailDest struct {
		To             mail.Address
		TemplateKey    string
		Subject        string
		AttachmentPath string
	}
)

func (TopicDest) destination()  {}
func (RecordDest) destination() {}
func (EmailDest) destination()  {}

// Resolve maps an event snapshot to its ordered delivery destinations. It is
// a pure function: an event with nothing to resolve yields an empty slice,
// never an error.
func Resolve(evt Event) []Destination {
	switch evt.Kind {
	case KindVoucherUploaded:
		return resolveVoucherUploaded(evt)
	case KindVoucherReviewed:
		return resolveVoucherReviewed(evt)
	case KindContractSigned:
		return resolveContractSigned(evt)
	case KindClassAssigned:
		return resolveClassAssigned(evt)
	}
	return nil
}

// resolveVoucherUploaded: cashier-facing. Shared cashiers topic plus a
// persisted record for every cashier.
func resolveVoucherUploaded(evt Event) []Destination {
	dests := []Destination{TopicDest{Topic: TopicCashiers, Event: string(KindVoucherUploaded)}}
	for _, c := range evt.Cashiers {
		dests = append(dests, RecordDest{UserID: c.UserID})
	}
	return dests
}

// resolveVoucherReviewed: student-facing. Persisted record + private topic
// for the student's linked account, plus a status email.
func resolveVoucherReviewed(evt Event) []Destination {
	var dests []Destination
	if evt.Student.UserID != 0 {
		dests = append(dests,
			RecordDest{UserID: evt.Student.UserID},
			TopicDest{Topic: UserTopic(evt.Student.UserID), Event: string(KindVoucherReviewed)},
		)
	}
	if evt.Student.Email != "" {
		dest := EmailDest{
			To: mail.Address{Name: evt.Student.Name, Address: evt.Student.Email},
		}
		if evt.Action == ActionApproved {
			dest.TemplateKey = "voucher_approved"
			dest.Subject = "✅ Voucher aprobado"
		} else {
			dest.TemplateKey = "voucher_rejected"
			dest.Subject = "❌ Voucher rechazado"
		}
		dests = append(dests, dest)
	}
	return dests
}

// resolveContractSigned: advisor-facing broadcast (dropped without error when
// the student has no registering advisor) plus an admin email carrying the
// signed document.
func resolveContractSigned(evt Event) []Destination {
	var dests []Destination
	if evt.Student.AdvisorID != 0 {
		dests = append(dests, TopicDest{
			Topic: AdvisorTopic(evt.Student.AdvisorID),
			Event: string(KindContractSigned),
		})
	}
	dest := EmailDest{
		TemplateKey: "contract_signed_admin",
		Subject:     "📄 Contrato firmado",
	}
	if evt.Contract != nil {
		dest.AttachmentPath = evt.Contract.DocumentPath
	}
	dests = append(dests, dest)
	return dests
}

// resolveClassAssigned: teacher-facing. Private topic + persisted record.
func resolveClassAssigned(evt Event) []Destination {
	if evt.Class == nil || evt.Class.TeacherUserID == 0 {
		return nil
	}
	return []Destination{
		RecordDest{UserID: evt.Class.TeacherUserID},
		TopicDest{Topic: UserTopic(evt.Class.TeacherUserID), Event: string(KindClassAssigned)},
	}
}
