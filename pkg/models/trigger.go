package models

// TriggerType is the closed set of business events that can fire workflows.
type TriggerType string

const (
	TriggerSaleWon        TriggerType = "sale_won"
	TriggerInvoiceOverdue TriggerType = "invoice_overdue"
	TriggerTaskCompleted  TriggerType = "task_completed"
	TriggerScheduledTime  TriggerType = "scheduled_time"
	TriggerManual         TriggerType = "manual"
)

// TriggerTypes returns every known trigger type.
func TriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerSaleWon,
		TriggerInvoiceOverdue,
		TriggerTaskCompleted,
		TriggerScheduledTime,
		TriggerManual,
	}
}

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerSaleWon, TriggerInvoiceOverdue, TriggerTaskCompleted, TriggerScheduledTime, TriggerManual:
		return true
	}

	return false
}

// ConditionOperator is the closed set of operators usable in trigger conditions.
type ConditionOperator string

const (
	OperatorEquals       ConditionOperator = "eq"
	OperatorGreater      ConditionOperator = "gt"
	OperatorGreaterEqual ConditionOperator = "gte"
	OperatorLess         ConditionOperator = "lt"
	OperatorLessEqual    ConditionOperator = "lte"
	OperatorIn           ConditionOperator = "in"
)

// Condition is a single field/operator/value predicate over an event payload.
// Conditions on one trigger are AND-ed together.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Value    any               `json:"value"`
}

// TriggerSpec describes when a workflow fires: the event class plus the
// conditions its payload must satisfy. Schedule carries a cron expression and
// is only meaningful for scheduled_time workflows.
type TriggerSpec struct {
	Type       TriggerType `json:"type"                 validate:"required"`
	Conditions []Condition `json:"conditions,omitempty"`
	Schedule   string      `json:"schedule,omitempty"`
}
