package tei

import "strings"

type ValueKind int

const (
	ScalarValue ValueKind = iota
	RangeValue
	NameValue
)

func (k ValueKind) String() string {
	switch k {
	case RangeValue:
		return "range"
	case NameValue:
		return "name"
	default:
		return "scalar"
	}
}

// NamePart is one component of a personal name. An empty Kind marks an
// undifferentiated literal (a persName with no sub-parts).
type NamePart struct {
	Kind string `json:"kind,omitempty"`
	Text string `json:"text"`
}

// Value is an extracted field value: a scalar string, a range
// (normalized/raw date or begin/end pair) or a personal-name composite.
type Value struct {
	Kind  ValueKind  `json:"kind"`
	Texts []string   `json:"texts,omitempty"`
	Parts []NamePart `json:"parts,omitempty"`
}

func Scalar(s string) Value {
	return Value{Kind: ScalarValue, Texts: []string{s}}
}

func Range(texts ...string) Value {
	return Value{Kind: RangeValue, Texts: texts}
}

func Composite(parts ...NamePart) Value {
	return Value{Kind: NameValue, Parts: parts}
}

// Literal reports whether a composite is an undifferentiated name literal
func (v Value) Literal() bool {
	return v.Kind == NameValue && len(v.Parts) > 0 && v.Parts[0].Kind == ""
}

// Strings returns the textual candidates of the value. Composites are
// joined into a single string.
func (v Value) Strings() []string {
	switch v.Kind {
	case NameValue:
		return []string{v.String()}
	default:
		out := make([]string, 0, len(v.Texts))
		for _, t := range v.Texts {
			if t != "" {
				out = append(out, t)
			}
		}
		return out
	}
}

func (v Value) String() string {
	switch v.Kind {
	case NameValue:
		texts := make([]string, 0, len(v.Parts))
		for _, p := range v.Parts {
			texts = append(texts, p.Text)
		}
		return strings.Join(texts, " ")
	case RangeValue:
		return strings.Join(v.Texts, "/")
	default:
		if len(v.Texts) == 0 {
			return ""
		}
		return v.Texts[0]
	}
}
