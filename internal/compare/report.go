package compare

import (
	"encoding/json"

	"github.com/doITmagic/repo-similarity/internal/codetypes"
)

// PairScore is the comparison of two functions. Only the names and the
// aggregate similarity are serialized; the component scores are kept for
// callers that want to explain a match.
type PairScore struct {
	Name1      string  `json:"name1"`
	Name2      string  `json:"name2"`
	Similarity float64 `json:"similarity"`

	NameLexical       float64 `json:"-"`
	NameSemantic      float64 `json:"-"`
	SignatureLexical  float64 `json:"-"`
	SignatureSemantic float64 `json:"-"`
	BodySemantic      float64 `json:"-"`

	// Positions of the compared units in their repository's unit list
	Index1 int `json:"-"`
	Index2 int `json:"-"`
}

// FieldComparison is the field-level comparison of two models
type FieldComparison struct {
	CommonFields    []codetypes.FieldDescriptor `json:"common_fields"`
	FieldSimilarity float64                     `json:"field_similarity"`
}

// ModelPairScore is the comparison of two data models
type ModelPairScore struct {
	Name1           string          `json:"name1"`
	Name2           string          `json:"name2"`
	Similarity      float64         `json:"similarity"`
	FieldComparison FieldComparison `json:"field_comparison"`

	NameLexical float64 `json:"-"`
	Index1      int     `json:"-"`
	Index2      int     `json:"-"`
}

// MatchReport is the itemized outcome of one analysis run
type MatchReport struct {
	Functions []PairScore      `json:"functions"`
	Models    []ModelPairScore `json:"models"`
}

// NewMatchReport returns an empty report that serializes with empty lists
func NewMatchReport() *MatchReport {
	return &MatchReport{
		Functions: []PairScore{},
		Models:    []ModelPairScore{},
	}
}

// JSON renders the report, indented when pretty is set
func (r *MatchReport) JSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}
