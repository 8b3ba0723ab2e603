package domain

import "time"

// FieldKind enumerates the value kinds a dynamic capture field can carry.
type FieldKind string

// Canonical field kinds. A FieldValue populates exactly the member matching
// its Kind.
const (
	FieldText       FieldKind = "text"
	FieldNumber     FieldKind = "number"
	FieldDate       FieldKind = "date"
	FieldPrincipals FieldKind = "principals"
	FieldLabels     FieldKind = "labels"
	FieldCaptures   FieldKind = "captures"
)

// FieldValue is a tagged variant carrying one typed value.
type FieldValue struct {
	Kind       FieldKind   `json:"kind"`
	Text       *string     `json:"text,omitempty"`
	Number     *float64    `json:"number,omitempty"`
	Date       *time.Time  `json:"date,omitempty"`
	Principals []Principal `json:"principals,omitempty"`
	Labels     []string    `json:"labels,omitempty"`
	Captures   []string    `json:"captures,omitempty"`
}

// TextValue constructs a text field value.
func TextValue(s string) FieldValue { return FieldValue{Kind: FieldText, Text: &s} }

// NumberValue constructs a number field value.
func NumberValue(n float64) FieldValue { return FieldValue{Kind: FieldNumber, Number: &n} }

// DateValue constructs a date field value.
func DateValue(t time.Time) FieldValue { return FieldValue{Kind: FieldDate, Date: &t} }

// PrincipalsValue constructs a principals field value.
func PrincipalsValue(p ...Principal) FieldValue { return FieldValue{Kind: FieldPrincipals, Principals: p} }

// LabelsValue constructs a labels field value.
func LabelsValue(l ...string) FieldValue { return FieldValue{Kind: FieldLabels, Labels: l} }

// CapturesValue constructs a capture-reference field value.
func CapturesValue(ids ...string) FieldValue { return FieldValue{Kind: FieldCaptures, Captures: ids} }

// wellFormed reports whether exactly the member matching Kind is populated.
func (v FieldValue) wellFormed() bool {
	set := 0
	if v.Text != nil {
		set++
	}
	if v.Number != nil {
		set++
	}
	if v.Date != nil {
		set++
	}
	if v.Principals != nil {
		set++
	}
	if v.Labels != nil {
		set++
	}
	if v.Captures != nil {
		set++
	}
	if set != 1 {
		return false
	}
	switch v.Kind {
	case FieldText:
		return v.Text != nil
	case FieldNumber:
		return v.Number != nil
	case FieldDate:
		return v.Date != nil
	case FieldPrincipals:
		return v.Principals != nil
	case FieldLabels:
		return v.Labels != nil
	case FieldCaptures:
		return v.Captures != nil
	default:
		return false
	}
}

// commonFieldSchema applies to every capture type.
var commonFieldSchema = map[string]FieldKind{
	"labels":    FieldLabels,
	"assignees": FieldPrincipals,
	"related":   FieldCaptures,
	"subtype":   FieldText,
}

// typedFieldSchema extends the common schema per capture type.
var typedFieldSchema = map[CaptureType]map[string]FieldKind{
	CaptureTask: {
		"estimate":   FieldNumber,
		"start_date": FieldDate,
		"due_date":   FieldDate,
	},
	CaptureProject: {
		"estimate":   FieldNumber,
		"start_date": FieldDate,
		"due_date":   FieldDate,
	},
	CaptureCalendar: {
		"start_date": FieldDate,
		"due_date":   FieldDate,
		"location":   FieldText,
	},
	CaptureReflection: {
		"mood": FieldText,
	},
}

// FieldSchemaFor returns the field name to kind mapping accepted by the
// given capture type.
func FieldSchemaFor(t CaptureType) map[string]FieldKind {
	schema := make(map[string]FieldKind, len(commonFieldSchema)+4)
	for name, kind := range commonFieldSchema {
		schema[name] = kind
	}
	for name, kind := range typedFieldSchema[t] {
		schema[name] = kind
	}
	return schema
}

// ValidCaptureType reports whether t is one of the canonical capture types.
func ValidCaptureType(t CaptureType) bool {
	switch t {
	case CaptureIdea, CaptureTask, CaptureProject, CaptureReflection, CaptureOutline, CaptureCalendar:
		return true
	default:
		return false
	}
}

// ValidateFields checks every field against the capture type's schema. Field
// names outside the schema, kind mismatches, and malformed variants are
// rejected. Capture references inside the values are state-dependent and are
// checked separately by the transaction.
func ValidateFields(t CaptureType, fields map[string]FieldValue) error {
	if len(fields) == 0 {
		return nil
	}
	schema := FieldSchemaFor(t)
	for name, value := range fields {
		kind, ok := schema[name]
		if !ok {
			return InvalidFieldError{CaptureType: t, Field: name, Reason: "unknown field name"}
		}
		if value.Kind != kind {
			return InvalidFieldError{CaptureType: t, Field: name, Reason: "expected kind " + string(kind) + ", got " + string(value.Kind)}
		}
		if !value.wellFormed() {
			return InvalidFieldError{CaptureType: t, Field: name, Reason: "malformed value"}
		}
	}
	return nil
}

// Estimate returns the capture's numeric estimate field, or zero when absent.
// Sprint load accounting sums this across members.
func (c Capture) Estimate() float64 {
	v, ok := c.Fields["estimate"]
	if !ok || v.Kind != FieldNumber || v.Number == nil {
		return 0
	}
	return *v.Number
}

// RelatedCaptureIDs collects every capture reference held in the capture's
// field values.
func (c Capture) RelatedCaptureIDs() []string {
	var ids []string
	for _, v := range c.Fields {
		if v.Kind == FieldCaptures {
			ids = append(ids, v.Captures...)
		}
	}
	return ids
}

// CloneFieldValues deep-copies a field map so transaction snapshots cannot
// alias committed state.
func CloneFieldValues(in map[string]FieldValue) map[string]FieldValue {
	if in == nil {
		return nil
	}
	out := make(map[string]FieldValue, len(in))
	for name, v := range in {
		out[name] = v.clone()
	}
	return out
}

func (v FieldValue) clone() FieldValue {
	c := FieldValue{Kind: v.Kind}
	if v.Text != nil {
		s := *v.Text
		c.Text = &s
	}
	if v.Number != nil {
		n := *v.Number
		c.Number = &n
	}
	if v.Date != nil {
		d := *v.Date
		c.Date = &d
	}
	if v.Principals != nil {
		c.Principals = append([]Principal(nil), v.Principals...)
	}
	if v.Labels != nil {
		c.Labels = append([]string(nil), v.Labels...)
	}
	if v.Captures != nil {
		c.Captures = append([]string(nil), v.Captures...)
	}
	return c
}
