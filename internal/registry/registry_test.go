package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupUnknownKind(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("widget")

	require.Error(t, err)
	var unknownErr *UnknownKindError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "widget", unknownErr.Kind)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Descriptor{Kind: "customer", Table: "customers"})

	desc, err := reg.Lookup("customer")

	require.NoError(t, err)
	assert.Equal(t, "customers", desc.Table)
	assert.Equal(t, "customer", desc.Object, "object tag defaults to kind")
}

func TestBuiltinRegistry(t *testing.T) {
	reg := NewBuiltinRegistry()

	assert.Equal(t, []string{
		"balance_transaction", "card", "charge", "customer",
		"invoice", "plan", "subscription",
	}, reg.Kinds())

	// Every declared relation must point at a registered kind.
	for _, kind := range reg.Kinds() {
		desc, err := reg.Lookup(kind)
		require.NoError(t, err)
		for _, rel := range desc.Relations {
			_, err := reg.Lookup(rel.TargetKind)
			require.NoError(t, err, "%s.%s points at unregistered kind", kind, rel.Column)
		}
	}

	bt, err := reg.Lookup("balance_transaction")
	require.NoError(t, err)
	assert.True(t, bt.Immutable)
	assert.True(t, bt.InsertOnly)
}
