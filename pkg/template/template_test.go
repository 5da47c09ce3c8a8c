package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantagecrm/automation/pkg/models"
)

func TestRender_SubstitutesVariables(t *testing.T) {
	tmpl := &models.Template{
		ID:      "win-notice",
		Subject: "Deal won: {{customer.name}}",
		Body:    "Hi {{owner}}, {{customer.name}} closed at {{value}}.",
	}

	rendered := Render(tmpl, map[string]string{
		"customer.name": "Acme",
		"owner":         "Kim",
		"value":         "75000",
	})

	assert.Equal(t, "Deal won: Acme", rendered.Subject)
	assert.Equal(t, "Hi Kim, Acme closed at 75000.", rendered.Body)
	assert.Empty(t, rendered.Warnings)
}

func TestRender_MissingVariableIsWarningNotError(t *testing.T) {
	tmpl := &models.Template{ID: "greet", Body: "Hi {{name}}"}

	rendered := Render(tmpl, map[string]string{})

	assert.Equal(t, "Hi ", rendered.Body)
	require.Len(t, rendered.Warnings, 1)
	assert.Contains(t, rendered.Warnings[0], `"name"`)
}

func TestRender_Idempotent(t *testing.T) {
	tmpl := &models.Template{
		ID:      "reminder",
		Subject: "{{invoice_id}} overdue",
		Body:    "Amount {{amount_due}} for {{customer.name}} ({{missing}})",
	}
	variables := map[string]string{
		"invoice_id":    "INV-9",
		"amount_due":    "120.50",
		"customer.name": "Acme",
	}

	first := Render(tmpl, variables)
	second := Render(tmpl, variables)

	assert.Equal(t, first, second)
}

func TestRender_NoEscaping(t *testing.T) {
	tmpl := &models.Template{ID: "raw", Body: "{{html}}"}

	rendered := Render(tmpl, map[string]string{"html": "<b>&amp;</b>"})

	assert.Equal(t, "<b>&amp;</b>", rendered.Body)
}

func TestRender_WhitespaceInsidePlaceholder(t *testing.T) {
	tmpl := &models.Template{ID: "ws", Body: "Hi {{ name }}"}

	rendered := Render(tmpl, map[string]string{"name": "Sam"})

	assert.Equal(t, "Hi Sam", rendered.Body)
}

func TestPlaceholders(t *testing.T) {
	tmpl := &models.Template{
		Subject: "{{a}} and {{b}}",
		Body:    "{{b}} then {{c.d}}",
	}

	assert.Equal(t, []string{"a", "b", "c.d"}, Placeholders(tmpl))
}
