package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldType enumerates the value types a template field can declare
type FieldType string

const (
	FieldTypeFloat  FieldType = "float"
	FieldTypeInt    FieldType = "int"
	FieldTypeString FieldType = "string"
)

// IsNumeric reports whether values of this type are parsed as numbers
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeFloat || t == FieldTypeInt
}

// FieldSpec is one named, typed parameter in a test's result-entry template
type FieldSpec struct {
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Unit      string    `json:"unit,omitempty"`
	Reference Reference `json:"reference,omitempty"`
	Decimals  int       `json:"decimals,omitempty"`
	Method    string    `json:"method,omitempty"`
}

// TestTemplate is the ordered field list a test presents for result entry
type TestTemplate []FieldSpec

// Validate checks template-level invariants, in particular that field names
// are unique (they key both raw and derived value maps).
func (t TestTemplate) Validate() error {
	seen := make(map[string]bool, len(t))
	for _, f := range t {
		if f.Name == "" {
			return NewValidationError(ErrCodeValidationFailed, "template field name must not be empty", nil)
		}
		if seen[f.Name] {
			return NewValidationError(ErrCodeValidationFailed,
				fmt.Sprintf("duplicate template field name %q", f.Name), nil)
		}
		seen[f.Name] = true
		switch f.Type {
		case FieldTypeFloat, FieldTypeInt, FieldTypeString:
		default:
			return NewValidationError(ErrCodeValidationFailed,
				fmt.Sprintf("unknown field type %q for field %q", f.Type, f.Name), nil)
		}
	}
	return nil
}

// Field returns the spec with the given name, if present
func (t TestTemplate) Field(name string) (FieldSpec, bool) {
	for _, f := range t {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// AgeBasedReference holds child/adult overrides for a reference range
type AgeBasedReference struct {
	Child string `json:"child,omitempty"`
	Adult string `json:"adult,omitempty"`
}

// Reference is a field's expected-normal specification. Catalog templates
// store it either as a plain scalar ("80-100", 7.4) or as an object keyed by
// sex with an optional age_based override block. Both forms round-trip
// through JSON.
type Reference struct {
	Text     string
	Male     string
	Female   string
	Default  string
	AgeBased *AgeBasedReference

	structured bool
}

// IsStructured reports whether the reference was authored as an object
func (r Reference) IsStructured() bool {
	return r.structured
}

// IsZero reports whether no reference was provided at all
func (r Reference) IsZero() bool {
	return !r.structured && r.Text == ""
}

type referenceObject struct {
	Male     json.RawMessage    `json:"male,omitempty"`
	Female   json.RawMessage    `json:"female,omitempty"`
	Default  json.RawMessage    `json:"default,omitempty"`
	AgeBased *AgeBasedReference `json:"age_based,omitempty"`
}

// UnmarshalJSON accepts the scalar form (string or number) as well as the
// structured object form.
func (r *Reference) UnmarshalJSON(data []byte) error {
	*r = Reference{}

	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		r.Text = v
		return nil
	case json.Number:
		r.Text = v.String()
		return nil
	case map[string]interface{}:
		var obj referenceObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.structured = true
		r.Male = scalarString(obj.Male)
		r.Female = scalarString(obj.Female)
		r.Default = scalarString(obj.Default)
		r.AgeBased = obj.AgeBased
		return nil
	default:
		return fmt.Errorf("unsupported reference value of type %T", raw)
	}
}

// MarshalJSON writes back the same form the reference was authored in
func (r Reference) MarshalJSON() ([]byte, error) {
	if !r.structured {
		if r.Text == "" {
			return []byte("null"), nil
		}
		return json.Marshal(r.Text)
	}
	out := make(map[string]interface{}, 4)
	if r.Male != "" {
		out["male"] = r.Male
	}
	if r.Female != "" {
		out["female"] = r.Female
	}
	if r.Default != "" {
		out["default"] = r.Default
	}
	if r.AgeBased != nil {
		out["age_based"] = r.AgeBased
	}
	return json.Marshal(out)
}

// PlainReference builds the scalar form
func PlainReference(text string) Reference {
	return Reference{Text: text}
}

// StructuredReference builds the object form
func StructuredReference(male, female, def string, ageBased *AgeBasedReference) Reference {
	return Reference{
		Male:       male,
		Female:     female,
		Default:    def,
		AgeBased:   ageBased,
		structured: true,
	}
}

// scalarString renders a raw JSON scalar (string or number) as its display
// string; structured templates occasionally carry bare numbers for ranges.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
