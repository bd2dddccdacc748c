package remote

// RawObject is the provider's nested key-value representation of one object,
// as decoded from JSON. Numbers are decoded as json.Number so integer amounts
// survive without float conversion.
type RawObject map[string]interface{}

// ID extracts the provider-assigned identifier, or "" if absent.
func (o RawObject) ID() string {
	id, _ := o["id"].(string)
	return id
}

// ObjectName extracts the provider's kind tag ("object" key), or "" if absent.
func (o RawObject) ObjectName() string {
	name, _ := o["object"].(string)
	return name
}

// IDFromValue extracts a remote identifier from a raw relation value, which
// is either a bare string id or an embedded object carrying its own "id".
func IDFromValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]interface{}:
		return RawObject(val).ID()
	case RawObject:
		return val.ID()
	default:
		return ""
	}
}

// EmbeddedObject returns the raw relation value as a full object
// representation, or nil when the value is an identifier-only reference.
func EmbeddedObject(v interface{}) RawObject {
	switch val := v.(type) {
	case map[string]interface{}:
		return RawObject(val)
	case RawObject:
		return val
	default:
		return nil
	}
}
