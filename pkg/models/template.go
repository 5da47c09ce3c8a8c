package models

// Template is parameterized message text. Subject is only set for email
// templates. Body and Subject may contain {{placeholder}} variables resolved
// at render time. Variables declares the placeholder names the template
// expects; it is used for validation in the authoring UI, not enforced at
// render time.
type Template struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"    validate:"required"`
	Subject   string   `json:"subject,omitempty"`
	Body      string   `json:"body"    validate:"required"`
	Variables []string `json:"variables,omitempty"`
}
