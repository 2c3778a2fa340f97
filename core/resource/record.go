package resource

import (
	"encoding/json"
	"fmt"
	"time"
)

// reserved document keys; everything else lives in Record.Fields
const (
	keyID        = "id"
	keyCreatedAt = "created_at"
	keyUpdatedAt = "updated_at"
)

// Fields is the schema-less payload of a Record. Values are whatever JSON
// decoding produced: string, float64, bool, nil, nested maps/slices.
type Fields map[string]interface{}

// Record is the uniform wrapper served for every collection.
// ID is unique within a collection and immutable after creation.
type Record struct {
	ID        string
	Fields    Fields
	CreatedAt time.Time // UTC
	UpdatedAt time.Time // UTC
}

// Clone returns a shallow copy safe for merging.
func (f Fields) Clone() Fields {
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// Merge overlays partial on top of f and returns the result; f is not modified.
func (f Fields) Merge(partial Fields) Fields {
	merged := f.Clone()
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// String returns the field as a string; "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Int returns the field as an int, coping with the numeric types JSON and
// callers hand us. ok is false when the field is absent or non-numeric.
func (f Fields) Int(key string) (int, bool) {
	switch n := f[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// Bool returns the field as a bool; false when absent or not a bool.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// IsSet reports whether the field is present, even if null.
func (f Fields) IsSet(key string) bool {
	_, ok := f[key]
	return ok
}

// MarshalJSON flattens the record: payload fields plus the reserved
// id/created_at/updated_at keys in a single object, the way the documents
// live in the store.
func (r Record) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(r.Fields)+3)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc[keyID] = r.ID
	doc[keyCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	doc[keyUpdatedAt] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(doc)
}

// UnmarshalJSON is the inverse of MarshalJSON; unknown keys land in Fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	doc := make(map[string]interface{})
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if id, ok := doc[keyID].(string); ok {
		r.ID = id
	}
	delete(doc, keyID)
	for _, e := range []struct {
		key string
		dst *time.Time
	}{{keyCreatedAt, &r.CreatedAt}, {keyUpdatedAt, &r.UpdatedAt}} {
		if s, ok := doc[e.key].(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", e.key, err)
			}
			*e.dst = t
		}
		delete(doc, e.key)
	}
	r.Fields = doc
	return nil
}

// eqValue compares two loosely-typed field values, normalizing the numeric
// types JSON decoding mixes up.
func eqValue(a, b interface{}) bool {
	if na, aok := toFloat(a); aok {
		nb, bok := toFloat(b)
		return bok && na == nb
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
