package models

// ActionKind is the closed set of action channels a workflow can use.
type ActionKind string

const (
	ActionEmail ActionKind = "email"
	ActionSMS   ActionKind = "sms"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	return k == ActionEmail || k == ActionSMS
}

// Action is one unit of work a workflow performs when fired: a rendered
// email or SMS sent to a recipient resolved from the event payload.
type Action struct {
	Kind          ActionKind `json:"kind"           validate:"required,oneof=email sms"`
	TemplateID    string     `json:"template_id"    validate:"required"`
	RecipientExpr string     `json:"recipient_expr" validate:"required"`
}
