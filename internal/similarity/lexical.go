// Package similarity scores pairs of code fragments, lexically through edit
// distance ratios and semantically through embedding cosine similarity.
package similarity

import (
	"math"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Lexical algorithms understood by NewLexicalScorer
const (
	AlgorithmIndel       = "indel"
	AlgorithmLevenshtein = "levenshtein"
	AlgorithmJaroWinkler = "jaro-winkler"
)

// LexicalScorer computes normalized string similarity ratios in [0, 100].
// It is pure and safe for concurrent use.
type LexicalScorer struct {
	algorithm string
	fold      bool
}

// NewLexicalScorer creates a scorer. An empty or unknown algorithm falls back
// to the indel (matching-subsequence) ratio.
func NewLexicalScorer(algorithm string, caseInsensitive bool) *LexicalScorer {
	switch algorithm {
	case AlgorithmLevenshtein, AlgorithmJaroWinkler:
	default:
		algorithm = AlgorithmIndel
	}
	return &LexicalScorer{algorithm: algorithm, fold: caseInsensitive}
}

// Algorithm returns the algorithm in use
func (s *LexicalScorer) Algorithm() string {
	return s.algorithm
}

// Ratio returns the similarity of a and b. Two empty strings are identical
// (100); one empty string against a non-empty one scores 0.
func (s *LexicalScorer) Ratio(a, b string) float64 {
	a, b = s.normalize(a), s.normalize(b)

	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	var ratio float64
	switch s.algorithm {
	case AlgorithmLevenshtein:
		ratio = edlibSimilarity(a, b, edlib.Levenshtein)
	case AlgorithmJaroWinkler:
		ratio = edlibSimilarity(a, b, edlib.JaroWinkler)
	default:
		ratio = indelRatio(a, b)
	}
	return clamp(ratio * 100)
}

func (s *LexicalScorer) normalize(text string) string {
	text = norm.NFC.String(text)
	if s.fold {
		text = cases.Fold().String(text)
	}
	return text
}

// indelRatio is 2*LCS / (len(a)+len(b)) measured in runes
func indelRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}

func edlibSimilarity(a, b string, algorithm edlib.Algorithm) float64 {
	score, err := edlib.StringsSimilarity(a, b, algorithm)
	if err != nil {
		return 0
	}
	return float64(score)
}

// Round2 rounds a score to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
