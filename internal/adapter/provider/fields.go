package provider

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields is a decoded partner response. Lookups ignore case, underscores and
// hyphens, so reference_id, referenceId and ReferenceID are the same key, and
// fall back to one level of data/result nesting.
type Fields map[string]any

var envelopes = []string{"data", "result", "response", "payload"}

func normKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// find prefers the exact key. Among other spellings of it, the one that
// sorts first wins, so repeated lookups agree.
func (f Fields) find(key string) (any, bool) {
	if v, ok := f[key]; ok && v != nil {
		return v, true
	}
	want := normKey(key)
	var match []string
	for k, v := range f {
		if v != nil && normKey(k) == want {
			match = append(match, k)
		}
	}
	if len(match) == 0 {
		return nil, false
	}
	slices.Sort(match)
	return f[match[0]], true
}

// Lookup returns the first key present, top level first, then envelopes.
func (f Fields) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := f.find(k); ok {
			return v, true
		}
	}
	for _, env := range envelopes {
		if inner := f.Map(env); inner != nil {
			for _, k := range keys {
				if v, ok := inner.find(k); ok {
					return v, true
				}
			}
		}
	}
	return nil, false
}

// Map returns a nested object at key, or nil.
func (f Fields) Map(key string) Fields {
	v, ok := f.find(key)
	if !ok {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return Fields(m)
	}
	return nil
}

func (f Fields) String(keys ...string) string {
	v, ok := f.Lookup(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}

// Bool accepts JSON booleans and the usual string spellings.
func (f Fields) Bool(keys ...string) bool {
	v, ok := f.Lookup(keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1", "valid", "success", "matched", "match":
			return true
		}
	}
	return false
}

func (f Fields) Decimal(keys ...string) decimal.NullDecimal {
	s := f.String(keys...)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Flatten returns a shallow copy suitable for storing as provider data.
func (f Fields) Flatten() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
