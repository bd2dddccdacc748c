package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prudhvinik1/paymirror/internal/remote"
)

// Coerce converts one raw provider value into its local storage
// representation according to the field's rule. A nil result means the
// column should be stored as NULL (text rules never return nil).
func Coerce(value interface{}, spec FieldSpec) (interface{}, error) {
	switch spec.Rule {
	case RuleString, RuleEnum:
		// Enum values pass through unvalidated-but-retained when the
		// provider sends a member we don't know yet.
		if value == nil {
			return "", nil
		}
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: expected string, got %T", spec.Column, value)
		}
		return s, nil

	case RuleTimestamp:
		if value == nil {
			return nil, nil
		}
		secs, err := toInt64(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", spec.Column, err)
		}
		return time.Unix(secs, 0).UTC(), nil

	case RuleInt:
		if value == nil {
			return nil, nil
		}
		n, err := toInt64(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", spec.Column, err)
		}
		return n, nil

	case RuleBool:
		if value == nil {
			return nil, nil
		}
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("field %s: expected bool, got %T", spec.Column, value)
		}
		return b, nil

	case RuleJSON:
		if value == nil {
			return nil, nil
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", spec.Column, err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("field %s: unknown coercion rule %d", spec.Column, spec.Rule)
	}
}

// KnownEnumValue reports whether an enum field's value is in its declared
// known-value set. Informational only; unknown values are stored as-is.
func KnownEnumValue(spec FieldSpec, value string) bool {
	for _, known := range spec.Known {
		if value == known {
			return true
		}
	}
	return false
}

// RecordFromRaw runs coercion over every declared field of a kind and
// returns the column value map. Relation fields are not touched here; they
// are the relation resolver's job.
func RecordFromRaw(desc *Descriptor, raw remote.RawObject) (map[string]interface{}, error) {
	if name := raw.ObjectName(); name != "" && name != desc.Object {
		return nil, fmt.Errorf("trying to fit a %q into %q", name, desc.Kind)
	}

	fields := make(map[string]interface{}, len(desc.Fields))
	for _, spec := range desc.Fields {
		value, err := Coerce(raw[spec.SourceKey], spec)
		if err != nil {
			return nil, err
		}
		fields[spec.Column] = value
	}
	return fields, nil
}

func toInt64(value interface{}) (int64, error) {
	switch n := value.(type) {
	case json.Number:
		return n.Int64()
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		// Tolerated for payloads decoded without UseNumber; amounts fit in
		// the float53 integer range in practice.
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}
