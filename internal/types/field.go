package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"unicode/utf8"
)

// FieldKind is the closed set of input kinds a field may declare.
type FieldKind int

const (
	KindText FieldKind = iota
	KindMultilineText
	KindNumber
	KindBoolean
	KindSingleSelect
	KindURL
	KindImage
	KindList
	KindStructuredObject
)

var kindNames = map[FieldKind]string{
	KindText:             "text",
	KindMultilineText:    "textarea",
	KindNumber:           "number",
	KindBoolean:          "boolean",
	KindSingleSelect:     "select",
	KindURL:              "url",
	KindImage:            "image",
	KindList:             "list",
	KindStructuredObject: "object",
}

// String returns the descriptor spelling of the kind.
func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseFieldKind maps a descriptor spelling to a FieldKind.
func ParseFieldKind(s string) (FieldKind, error) {
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// MarshalJSON encodes the kind with its descriptor spelling.
func (k FieldKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a descriptor spelling.
func (k *FieldKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("field type must be a string: %w", err)
	}
	kind, err := ParseFieldKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Field is one named, typed, defaultable input slot of a component.
type Field struct {
	Name        string        `json:"name"`
	Kind        FieldKind     `json:"type"`
	Label       string        `json:"label"`
	Default     interface{}   `json:"default,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	HelpText    string        `json:"helpText,omitempty"`
	Validation  *Validation   `json:"validation,omitempty"`

	// HasDefault records whether the descriptor declared a default, so an
	// explicit null default is distinguishable from none.
	HasDefault bool `json:"-"`
}

// Validation holds declarative constraints on a field value.
type Validation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Message string   `json:"message,omitempty"`
}

// FieldOption is one choice of a select field. Descriptors may list plain
// strings, which decode with Label == Value.
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts either a string or a {label, value} object.
func (o *FieldOption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Label, o.Value = s, s
		return nil
	}
	type plain FieldOption
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("option must be a string or {label, value}: %w", err)
	}
	*o = FieldOption(p)
	return nil
}

// UnmarshalJSON decodes a field and records default presence.
func (f *Field) UnmarshalJSON(data []byte) error {
	type plain Field
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	raw, ok := keys["default"]
	p.HasDefault = ok
	if ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		p.Default = nil
	}
	*f = Field(p)
	return nil
}

// MarshalJSON keeps an explicit null default.
func (f Field) MarshalJSON() ([]byte, error) {
	type plain Field
	out, err := json.Marshal(plain(f))
	if err != nil || !f.HasDefault || f.Default != nil {
		return out, err
	}
	// omitempty dropped the explicit null; put it back.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(out, &obj); err != nil {
		return nil, err
	}
	obj["default"] = json.RawMessage("null")
	return json.Marshal(obj)
}

type kindRule func(f Field, value interface{}) error

// kindRules is the side-table of per-kind value checks.
var kindRules = map[FieldKind]kindRule{
	KindText:             expectString,
	KindMultilineText:    expectString,
	KindNumber:           expectNumber,
	KindBoolean:          expectBool,
	KindSingleSelect:     expectOption,
	KindURL:              expectURL,
	KindImage:            expectURL,
	KindList:             expectList,
	KindStructuredObject: expectObject,
}

// Check validates a value against the field's kind and constraints. A nil
// value always passes; required-ness is checked by the definition.
func (f Field) Check(value interface{}) error {
	if value == nil {
		return nil
	}
	rule, ok := kindRules[f.Kind]
	if !ok {
		return fmt.Errorf("field %q: unknown kind", f.Name)
	}
	if err := rule(f, value); err != nil {
		return f.fail(err.Error())
	}
	if f.Validation != nil {
		if err := f.Validation.check(value); err != nil {
			return f.fail(err.Error())
		}
	}
	return nil
}

func (f Field) fail(reason string) error {
	if f.Validation != nil && f.Validation.Message != "" {
		return fmt.Errorf("field %q: %s", f.Name, f.Validation.Message)
	}
	return fmt.Errorf("field %q: %s", f.Name, reason)
}

func (v *Validation) check(value interface{}) error {
	var measure float64
	switch x := value.(type) {
	case string:
		measure = float64(utf8.RuneCountInString(x))
		if v.Pattern != "" {
			re, err := regexp.Compile(v.Pattern)
			if err != nil {
				return fmt.Errorf("invalid pattern %q", v.Pattern)
			}
			if !re.MatchString(x) {
				return fmt.Errorf("does not match %q", v.Pattern)
			}
		}
	case float64:
		measure = x
	case int:
		measure = float64(x)
	default:
		return nil
	}
	if v.Min != nil && measure < *v.Min {
		return fmt.Errorf("below minimum %v", *v.Min)
	}
	if v.Max != nil && measure > *v.Max {
		return fmt.Errorf("above maximum %v", *v.Max)
	}
	return nil
}

func expectString(_ Field, value interface{}) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func expectNumber(_ Field, value interface{}) error {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return nil
	}
	return fmt.Errorf("expected number, got %T", value)
}

func expectBool(_ Field, value interface{}) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

func expectOption(f Field, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if len(f.Options) == 0 {
		return nil
	}
	for _, opt := range f.Options {
		if opt.Value == s {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of the declared options", s)
}

func expectURL(_ Field, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected URL string, got %T", value)
	}
	if _, err := url.Parse(s); err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	return nil
}

func expectList(_ Field, value interface{}) error {
	kind := reflect.TypeOf(value).Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	return nil
}

func expectObject(_ Field, value interface{}) error {
	kind := reflect.TypeOf(value).Kind()
	if kind != reflect.Map && kind != reflect.Struct {
		return fmt.Errorf("expected object, got %T", value)
	}
	return nil
}
