package codetypes

import "strings"

// Parameter is one declared parameter of a function. Default holds the
// normalized source text of the default value expression when HasDefault is
// set, so defaults stay aligned with the parameter that declares them.
type Parameter struct {
	Name       string `json:"name"`
	Default    string `json:"default,omitempty"`
	HasDefault bool   `json:"has_default,omitempty"`
}

// FunctionUnit is a function or method extracted from a source file.
type FunctionUnit struct {
	Name     string      `json:"name"`
	Params   []Parameter `json:"params"`
	BodyText string      `json:"body_text"` // full source text of the definition

	// Source location (informational, never compared)
	Language  string `json:"language"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"` // 1-based
}

// ParameterNames returns the ordered parameter names. Duplicates are kept.
func (f FunctionUnit) ParameterNames() []string {
	names := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		names = append(names, p.Name)
	}
	return names
}

// Defaults returns the default value texts in declaration order, one per
// parameter that declares a default.
func (f FunctionUnit) Defaults() []string {
	var defaults []string
	for _, p := range f.Params {
		if p.HasDefault {
			defaults = append(defaults, p.Default)
		}
	}
	return defaults
}

// Signature renders the comparable signature string: name(p1, p2, ...).
func (f FunctionUnit) Signature() string {
	return f.Name + "(" + strings.Join(f.ParameterNames(), ", ") + ")"
}

// FieldDescriptor describes one field of a data model. It is comparable so
// that field sets can be intersected by exact tuple equality.
type FieldDescriptor struct {
	Name           string `json:"field_name"`
	Type           string `json:"field_type"`
	ParametersText string `json:"parameters_text,omitempty"` // relationship constructor arguments
}

// Key renders the descriptor tuple as a stable string.
func (d FieldDescriptor) Key() string {
	if d.ParametersText == "" {
		return d.Name + ":" + d.Type
	}
	return d.Name + ":" + d.Type + "(" + d.ParametersText + ")"
}

// ModelUnit is a data-model class whose base matched a configured marker.
type ModelUnit struct {
	Name   string            `json:"name"`
	Fields []FieldDescriptor `json:"fields"`

	Language  string `json:"language"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
}

// Units holds everything extracted from one repository.
type Units struct {
	Functions []FunctionUnit
	Models    []ModelUnit
}

// Append adds the units of other to u.
func (u *Units) Append(other Units) {
	u.Functions = append(u.Functions, other.Functions...)
	u.Models = append(u.Models, other.Models...)
}

// Len returns the total number of units.
func (u Units) Len() int {
	return len(u.Functions) + len(u.Models)
}

// UnitExtractor parses a single source file into units. A returned error
// means the file could not be parsed and contributes nothing.
type UnitExtractor interface {
	Language() string
	Extensions() []string
	ExtractFile(path string, content []byte) (Units, error)
}

// NormalizeText collapses every run of whitespace in s to a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MatchesMarker reports whether a declared base name refers to marker. Names
// match exactly or when one is a qualified form of the other, so "Model"
// matches "models.Model" and `Illuminate\Database\Eloquent\Model` matches "Model".
func MatchesMarker(base, marker string) bool {
	base = strings.TrimLeft(strings.TrimSpace(base), `*\`)
	marker = strings.TrimLeft(strings.TrimSpace(marker), `*\`)
	if base == "" || marker == "" {
		return false
	}
	if base == marker {
		return true
	}
	return hasQualifiedSuffix(base, marker) || hasQualifiedSuffix(marker, base)
}

func hasQualifiedSuffix(name, suffix string) bool {
	if !strings.HasSuffix(name, suffix) || len(name) == len(suffix) {
		return false
	}
	sep := name[len(name)-len(suffix)-1]
	return sep == '.' || sep == '\\'
}
