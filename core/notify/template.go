package notify

import (
	"context"
	"strings"
)

// Literal fallback strings substituted when a related record is absent, so a
// rendered message never carries an empty field.
const (
	FallbackNoLevel   = "Sin nivel asignado"
	FallbackNoAdvisor = "Sin asesor asignado"
)

// Default templates, keyed like the stored settings rows (type "mail").
// Stored rows override these; an absent or empty row falls back here.
var defaultTemplates = map[string]string{
	// broadcast / notification messages
	"voucher_uploaded": "{{student_name}} subió un nuevo voucher para la cuota #{{installment_number}}",
	"voucher_replaced": "{{student_name}} reemplazó un voucher para la cuota #{{installment_number}}",
	"contract_signed":  "{{student_name}} firmó su contrato de inscripción",
	"class_assigned":   "Se te asignó la clase {{group_name}} del {{starts_at}}",

	// student-facing review messages
	"voucher_approved": "Hola {{student_name}}, tu voucher de {{declared_amount}} para la cuota #{{installment_number}} fue aprobado.",
	"voucher_rejected": "Hola {{student_name}}, tu voucher para la cuota #{{installment_number}} fue rechazado: {{reason}}",

	// admin mail
	"contract_signed_admin": "El estudiante {{student_name}} ({{level}}) firmó su contrato el {{signed_at}}. Se adjunta el documento firmado.",
}

// TemplateSource resolves a stored template by key; ok=false means none is
// configured and the default applies.
type TemplateSource interface {
	TemplateContent(ctx context.Context, key string) (string, bool)
}

// TemplateSourceFunc adapts a func to TemplateSource.
type TemplateSourceFunc func(ctx context.Context, key string) (string, bool)

func (f TemplateSourceFunc) TemplateContent(ctx context.Context, key string) (string, bool) {
	return f(ctx, key)
}

type (
	Renderer struct {
		source TemplateSource
		// sequential applies replacements one-by-one over accumulated
		// output instead of a single pass over the original template.
		// Off by default: a replacement value containing a placeholder
		// token must not be re-substituted.
		sequential bool
	}

	RendererOption func(*Renderer)
)

// Sequential switches the renderer to chained substitution.
func Sequential() RendererOption {
	return func(r *Renderer) { r.sequential = true }
}

func NewRenderer(source TemplateSource, opts ...RendererOption) *Renderer {
	r := &Renderer{source: source}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render resolves the template for key and substitutes every {{name}} in
// fields. Unknown placeholders are left intact. Rendering is deterministic:
// the same key and fields always produce identical output.
func (r *Renderer) Render(ctx context.Context, key string, fields map[string]string) string {
	content := r.lookup(ctx, key)
	if content == "" {
		return ""
	}
	if r.sequential {
		for name, value := range fields {
			content = strings.ReplaceAll(content, placeholder(name), value)
		}
		return content
	}

	oldnew := make([]string, 0, 2*len(fields))
	for name, value := range fields {
		oldnew = append(oldnew, placeholder(name), value)
	}
	return strings.NewReplacer(oldnew...).Replace(content)
}

func (r *Renderer) lookup(ctx context.Context, key string) string {
	if r.source != nil {
		if content, ok := r.source.TemplateContent(ctx, key); ok && content != "" {
			return content
		}
	}
	return defaultTemplates[key]
}

func placeholder(name string) string {
	return "{{" + name + "}}"
}

// orFallback substitutes a literal human-readable fallback for a missing
// related value.
func orFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
