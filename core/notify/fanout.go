package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core"
)

type (
	// Directory lists notification recipients by role.
	Directory interface {
		Cashiers(ctx context.Context) ([]Recipient, error)
	}

	// ChannelError records an isolated delivery failure on one destination.
	ChannelError struct {
		Channel string
		Err     error
	}

	// DispatchResult separates "the business action succeeded" from "every
	// notification channel succeeded": callers own the domain result and may
	// surface or ignore channel failures.
	DispatchResult struct {
		Kind         Kind
		Destinations int
		Errors       []ChannelError
	}

	Dispatcher struct {
		broadcaster core.Broadcaster
		repo        NotificationRepository
		mailSvc     core.EmailService
		renderer    *Renderer
		directory   Directory
		logger      core.Logger
		conf        *core.Config
	}
)

func (r DispatchResult) OK() bool { return len(r.Errors) == 0 }

func NewDispatcher(
	broadcaster core.Broadcaster,
	repo NotificationRepository,
	mailSvc core.EmailService,
	renderer *Renderer,
	directory Directory,
	logger core.Logger,
	conf *core.Config,
) *Dispatcher {
	return &Dispatcher{
		broadcaster: broadcaster,
		repo:        repo,
		mailSvc:     mailSvc,
		renderer:    renderer,
		directory:   directory,
		logger:      logger,
		conf:        conf,
	}
}

// Dispatch resolves the event's destinations and delivers to each one
// synchronously and independently: a failed channel never blocks or rolls
// back the others. Zero resolved destinations is a no-op (warn-logged).
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) DispatchResult {
	res := DispatchResult{Kind: evt.Kind}

	if evt.Kind == KindVoucherUploaded && evt.Cashiers == nil {
		cashiers, err := d.directory.Cashiers(ctx)
		if err != nil {
			res.Errors = append(res.Errors, ChannelError{Channel: "directory", Err: err})
		}
		evt.Cashiers = cashiers
	}

	dests := Resolve(evt)
	res.Destinations = len(dests)
	if len(dests) == 0 {
		d.logger.Warn(fmt.Sprintf("event %q resolved zero destinations", evt.Kind))
		return res
	}

	message := d.renderer.Render(ctx, d.messageKey(evt), d.fields(evt))
	data := d.payload(evt, message)

	for _, dest := range dests {
		switch dst := dest.(type) {
		case TopicDest:
			if err := d.broadcaster.Broadcast(ctx, dst.Topic, dst.Event, data); err != nil {
				res.Errors = append(res.Errors, ChannelError{Channel: "broadcast:" + dst.Topic, Err: err})
			}
		case RecordDest:
			if err := d.persist(ctx, evt, dst, message, data); err != nil {
				res.Errors = append(res.Errors, ChannelError{Channel: fmt.Sprintf("record:user:%d", dst.UserID), Err: err})
			}
		case EmailDest:
			if err := d.email(ctx, evt, dst); err != nil {
				res.Errors = append(res.Errors, ChannelError{Channel: "email:" + dst.To.Address, Err: err})
			}
		}
	}

	for _, chErr := range res.Errors {
		d.logger.Error(fmt.Sprintf("delivering %q to %s: %v", evt.Kind, chErr.Channel, chErr.Err), chErr.Err)
	}
	return res
}

func (d *Dispatcher) persist(ctx context.Context, evt Event, dst RecordDest, message string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshalling payload")
	}
	_, err = d.repo.CreateNotification(ctx, Notification{
		UserID:    dst.UserID,
		Kind:      string(evt.Kind),
		Message:   message,
		Data:      raw,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// email renders the destination's mail template and hands the message off.
// A missing attachment file is fatal for this send only.
func (d *Dispatcher) email(ctx context.Context, evt Event, dst EmailDest) error {
	to := dst.To
	if to.Address == "" {
		to = d.conf.AdminEmail
	}

	body := d.renderer.Render(ctx, dst.TemplateKey, d.fields(evt))
	msg := &core.EmailMessage{
		To:          []mail.Address{to},
		Subject:     dst.Subject,
		TextContent: body,
		HTMLContent: mailLayout(body),
	}
	if dst.AttachmentPath != "" {
		// stored paths are media-relative
		if err := msg.AttachFile(filepath.Join(d.conf.MediaRoot, dst.AttachmentPath)); err != nil {
			return errors.Wrapf(err, "attaching %s", dst.AttachmentPath)
		}
	}
	d.mailSvc.SendMessages(msg)
	return nil
}

func (d *Dispatcher) messageKey(evt Event) string {
	switch evt.Kind {
	case KindVoucherUploaded:
		if evt.Action == ActionReplaced {
			return "voucher_replaced"
		}
		return "voucher_uploaded"
	case KindVoucherReviewed:
		if evt.Action == ActionRejected {
			return "voucher_rejected"
		}
		return "voucher_approved"
	default:
		return string(evt.Kind)
	}
}

// fields builds the renderer substitution set for an event. Missing
// relations substitute literal fallbacks, amounts are fixed two-decimal
// strings and dates dd/mm/yyyy.
func (d *Dispatcher) fields(evt Event) map[string]string {
	fields := map[string]string{
		"student_name": evt.Student.Name,
		"level":        orFallback(evt.Student.LevelName, FallbackNoLevel),
	}
	if evt.Reason != "" {
		fields["reason"] = evt.Reason
	}
	if v := evt.Voucher; v != nil {
		fields["installment_number"] = strconv.Itoa(v.InstallmentNumber)
		fields["declared_amount"] = core.FormatAmount(v.DeclaredAmount)
		fields["uploaded_at"] = core.FormatDateTime(v.UploadedAt)
	}
	if c := evt.Contract; c != nil {
		fields["signed_at"] = core.FormatDateTime(c.SignedAt)
	}
	if cl := evt.Class; cl != nil {
		fields["group_name"] = cl.GroupName
		fields["starts_at"] = core.FormatDateTime(cl.StartsAt)
		fields["teacher_name"] = cl.TeacherName
	}
	return fields
}

// payload is the structured JSON sent on broadcast topics and stored on
// notification records.
func (d *Dispatcher) payload(evt Event, message string) map[string]interface{} {
	data := map[string]interface{}{"message": message}
	if evt.Student.ID != 0 {
		data["student_id"] = evt.Student.ID
		data["student_name"] = evt.Student.Name
	}
	switch evt.Kind {
	case KindVoucherUploaded:
		data["voucher_id"] = evt.Voucher.ID
		data["installment_number"] = evt.Voucher.InstallmentNumber
		data["declared_amount"] = evt.Voucher.DeclaredAmount
		data["action"] = evt.Action
		data["uploaded_at"] = evt.Voucher.UploadedAt.UTC().Format(time.RFC3339)
	case KindVoucherReviewed:
		data["voucher_id"] = evt.Voucher.ID
		data["installment_number"] = evt.Voucher.InstallmentNumber
		data["status"] = evt.Action
		if evt.Action == ActionRejected {
			data["reason"] = evt.Reason
		}
	case KindContractSigned:
		data["contract_id"] = evt.Contract.ID
		data["signed_at"] = evt.Contract.SignedAt.UTC().Format(time.RFC3339)
	case KindClassAssigned:
		data["class_id"] = evt.Class.ID
		data["group_name"] = evt.Class.GroupName
		data["starts_at"] = evt.Class.StartsAt.UTC().Format(time.RFC3339)
	}
	return data
}

func mailLayout(body string) string {
	return "<!DOCTYPE html><html><body><p>" + body + "</p></body></html>"
}
