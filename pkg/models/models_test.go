package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPayload_Lookup(t *testing.T) {
	payload := EventPayload{
		"value": 75000.0,
		"customer": map[string]any{
			"email": "a@x.com",
			"address": map[string]any{
				"city": "Lisbon",
			},
		},
	}

	value, ok := payload.Lookup("value")
	require.True(t, ok)
	assert.InDelta(t, 75000.0, value, 0.001)

	email, ok := payload.Lookup("customer.email")
	require.True(t, ok)
	assert.Equal(t, "a@x.com", email)

	city, ok := payload.Lookup("customer.address.city")
	require.True(t, ok)
	assert.Equal(t, "Lisbon", city)

	_, ok = payload.Lookup("customer.phone")
	assert.False(t, ok)

	_, ok = payload.Lookup("value.nested")
	assert.False(t, ok)

	_, ok = payload.Lookup("")
	assert.False(t, ok)
}

func TestEventPayload_Flatten(t *testing.T) {
	payload := EventPayload{
		"value":  10000.0,
		"urgent": true,
		"customer": map[string]any{
			"name":  "Acme",
			"email": "ops@acme.test",
		},
		"tags": []any{"a", "b"},
		"note": nil,
	}

	flat := payload.Flatten()

	assert.Equal(t, "10000", flat["value"])
	assert.Equal(t, "true", flat["urgent"])
	assert.Equal(t, "Acme", flat["customer.name"])
	assert.Equal(t, "ops@acme.test", flat["customer.email"])
	assert.NotContains(t, flat, "tags")
	assert.NotContains(t, flat, "note")
}

func TestValidatePayload(t *testing.T) {
	err := ValidatePayload(TriggerSaleWon, EventPayload{"value": 75000.0})
	assert.NoError(t, err)

	err = ValidatePayload(TriggerSaleWon, EventPayload{"customer": map[string]any{}})
	require.Error(t, err)

	var payloadErr *PayloadError

	require.ErrorAs(t, err, &payloadErr)
	assert.Equal(t, TriggerSaleWon, payloadErr.TriggerType)
	assert.NotEmpty(t, payloadErr.Violations)
}

func TestValidatePayload_UnknownTriggerType(t *testing.T) {
	err := ValidatePayload(TriggerType("unknown"), EventPayload{})

	var payloadErr *PayloadError

	require.ErrorAs(t, err, &payloadErr)
	assert.Contains(t, payloadErr.Violations, "unknown trigger type")
}

func TestValidatePayload_ManualAcceptsAnything(t *testing.T) {
	assert.NoError(t, ValidatePayload(TriggerManual, EventPayload{}))
	assert.NoError(t, ValidatePayload(TriggerManual, EventPayload{"anything": "goes"}))
}

func TestTriggerTypeValid(t *testing.T) {
	for _, triggerType := range TriggerTypes() {
		assert.True(t, triggerType.Valid())
	}

	assert.False(t, TriggerType("sale_lost").Valid())
}
