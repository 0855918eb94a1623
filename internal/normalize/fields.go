package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// object is a decoded JSON object whose fields are read lazily with typed
// accessors. The first failing accessor records the error.
type object struct {
	kind   string
	fields map[string]json.RawMessage
	err    error
}

func decodeObject(kind string, raw json.RawMessage) (*object, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &domain.NormalizationError{Kind: kind, Reason: "not a JSON object"}
	}
	return &object{kind: kind, fields: fields}, nil
}

func (o *object) fail(field, reason string) {
	if o.err == nil {
		o.err = &domain.NormalizationError{Kind: o.kind, Field: field, Reason: reason}
	}
}

func (o *object) raw(name string) (json.RawMessage, bool) {
	v, found := o.fields[name]
	if !found || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func (o *object) has(name string) bool {
	_, found := o.raw(name)
	return found
}

// str reads a string field. Missing and null fields yield "".
func (o *object) str(name string) string {
	v, found := o.raw(name)
	if !found {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		o.fail(name, "expected string")
		return ""
	}
	return s
}

// requiredStr reads a string field that must be present and non-blank.
func (o *object) requiredStr(name string) string {
	s := strings.TrimSpace(o.str(name))
	if s == "" && o.err == nil {
		o.fail(name, "required")
	}
	return s
}

// wallet reads a required address field. Addresses are case-insensitive
// and always lowercased so they compare equal as natural-key parts.
func (o *object) wallet(name string) string {
	return strings.ToLower(o.requiredStr(name))
}

// num reads a number given either as a JSON number or a numeric string.
func (o *object) num(name string) float64 {
	v, found := o.raw(name)
	if !found {
		return 0
	}
	f, err := flexFloat(v)
	if err != nil {
		o.fail(name, err.Error())
		return 0
	}
	return f
}

func (o *object) requiredNum(name string) float64 {
	if !o.has(name) {
		o.fail(name, "required")
		return 0
	}
	return o.num(name)
}

func (o *object) integer(name string) int64 {
	f := o.num(name)
	if f != math.Trunc(f) {
		o.fail(name, "expected integer")
		return 0
	}
	return int64(f)
}

func (o *object) boolean(name string) bool {
	v, found := o.raw(name)
	if !found {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if parsed, err := strconv.ParseBool(s); err == nil {
			return parsed
		}
	}
	o.fail(name, "expected boolean")
	return false
}

func flexFloat(v json.RawMessage) (float64, error) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return 0, fmt.Errorf("expected number")
	}
	switch t := decoded.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(strings.TrimSpace(t))
	default:
		return 0, fmt.Errorf("expected number")
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected number, got %q", n.String())
	}
	return f, nil
}
