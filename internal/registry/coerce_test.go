package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prudhvinik1/paymirror/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce_NullStringBecomesEmpty(t *testing.T) {
	spec := FieldSpec{Column: "name", Rule: RuleString}

	value, err := Coerce(nil, spec)

	require.NoError(t, err)
	assert.Equal(t, "", value, "null text must normalize to empty string, never NULL")
}

func TestCoerce_Timestamp(t *testing.T) {
	spec := FieldSpec{Column: "created", Rule: RuleTimestamp}

	value, err := Coerce(json.Number("1609459200"), spec)

	require.NoError(t, err)
	ts, ok := value.(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), ts)

	// Absent timestamps stay NULL
	value, err = Coerce(nil, spec)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestCoerce_IntegerAmountNoFloatDrift(t *testing.T) {
	spec := FieldSpec{Column: "amount", Rule: RuleInt}

	// Amounts arrive as json.Number when payloads are decoded with UseNumber
	value, err := Coerce(json.Number("900719925474099"), spec)

	require.NoError(t, err)
	assert.Equal(t, int64(900719925474099), value)
}

func TestCoerce_UnknownEnumValueRetained(t *testing.T) {
	spec := FieldSpec{Column: "status", Rule: RuleEnum, Known: []string{"succeeded", "pending", "failed"}}

	// The provider may add enum members at any time; an unknown member must
	// be stored, not rejected.
	value, err := Coerce("requires_action", spec)

	require.NoError(t, err)
	assert.Equal(t, "requires_action", value)
	assert.False(t, KnownEnumValue(spec, "requires_action"))
	assert.True(t, KnownEnumValue(spec, "pending"))
}

func TestCoerce_MetadataStoredOpaque(t *testing.T) {
	spec := FieldSpec{Column: "metadata", Rule: RuleJSON}

	value, err := Coerce(map[string]interface{}{"plan_tier": "gold"}, spec)

	require.NoError(t, err)
	assert.JSONEq(t, `{"plan_tier":"gold"}`, string(value.([]byte)))
}

func TestCoerce_TypeMismatch(t *testing.T) {
	spec := FieldSpec{Column: "name", Rule: RuleString}

	_, err := Coerce(json.Number("42"), spec)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestRecordFromRaw(t *testing.T) {
	desc := customerDescriptor()
	raw := remote.RawObject{
		"id":      "cus_123",
		"object":  "customer",
		"name":    nil,
		"email":   "jo@example.com",
		"balance": json.Number("-500"),
		"created": json.Number("1609459200"),
	}

	fields, err := RecordFromRaw(desc, raw)

	require.NoError(t, err)
	assert.Equal(t, "", fields["name"])
	assert.Equal(t, "jo@example.com", fields["email"])
	assert.Equal(t, int64(-500), fields["balance"])
	assert.Nil(t, fields["delinquent"], "absent bool stays NULL")
}

func TestRecordFromRaw_WrongObjectTag(t *testing.T) {
	desc := customerDescriptor()
	raw := remote.RawObject{"id": "ch_1", "object": "charge"}

	_, err := RecordFromRaw(desc, raw)

	require.Error(t, err)
}
