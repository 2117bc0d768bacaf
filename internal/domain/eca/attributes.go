package eca

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Attributes is the open key/value bag carried by entities, relationships
// and transactions. Values are JSON-compatible.
type Attributes map[string]any

// Clone returns a shallow copy of the attributes
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a new map holding a overlaid with other; keys in other win
func (a Attributes) Merge(other Attributes) Attributes {
	out := a.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// String returns the string value stored under key
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Decimal returns the numeric value stored under key as a decimal
func (a Attributes) Decimal(key string) (decimal.Decimal, bool) {
	v, ok := a[key]
	if !ok {
		return decimal.Zero, false
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

// Canonical returns a deterministic JSON encoding of the attributes.
// encoding/json sorts map keys, so equal maps encode identically.
func (a Attributes) Canonical() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return b, nil
}
