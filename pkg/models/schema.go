package models

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Payload schemas document the field paths each trigger type carries and are
// enforced at the trigger ingestion boundary. Producers elsewhere in the CRM
// are not trusted to ship well-formed JSON.
var payloadSchemas = map[TriggerType]string{
	TriggerSaleWon: `{
		"type": "object",
		"required": ["value"],
		"properties": {
			"value":    {"type": "number"},
			"sale_id":  {"type": "string"},
			"customer": {"type": "object"}
		}
	}`,
	TriggerInvoiceOverdue: `{
		"type": "object",
		"required": ["invoice_id"],
		"properties": {
			"invoice_id": {"type": "string"},
			"amount_due": {"type": "number"},
			"customer":   {"type": "object"}
		}
	}`,
	TriggerTaskCompleted: `{
		"type": "object",
		"required": ["task_id"],
		"properties": {
			"task_id":  {"type": "string"},
			"assignee": {"type": "object"}
		}
	}`,
	TriggerScheduledTime: `{
		"type": "object",
		"required": ["workflow_id"],
		"properties": {
			"workflow_id":  {"type": "string"},
			"scheduled_at": {"type": "string"}
		}
	}`,
	TriggerManual: `{"type": "object"}`,
}

// PayloadError reports an event rejected at the ingestion boundary. It is not
// retryable: the producer sent a malformed event.
type PayloadError struct {
	TriggerType TriggerType
	Violations  []string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid payload for trigger %s: %v", e.TriggerType, e.Violations)
}

// ValidatePayload checks an event payload against the schema for its trigger
// type. Unknown trigger types and schema violations return a *PayloadError.
func ValidatePayload(triggerType TriggerType, payload EventPayload) error {
	if !triggerType.Valid() {
		return &PayloadError{
			TriggerType: triggerType,
			Violations:  []string{"unknown trigger type"},
		}
	}

	schema := gojsonschema.NewStringLoader(payloadSchemas[triggerType])
	document := gojsonschema.NewGoLoader(map[string]any(payload))

	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return fmt.Errorf("failed to validate payload for trigger %s: %w", triggerType, err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		violations = append(violations, violation.String())
	}

	return &PayloadError{TriggerType: triggerType, Violations: violations}
}
