package risk

import (
	"strings"
	"unicode"
)

// Similarity scores how alike two device signatures are, from 0 (disjoint)
// to 1 (identical).
type Similarity interface {
	Similarity(a, b string) float64
}

// SimilarityFunc adapts a function to [Similarity].
type SimilarityFunc func(a, b string) float64

// Similarity calls f(a, b).
func (f SimilarityFunc) Similarity(a, b string) float64 { return f(a, b) }

// JaccardSimilarity compares the token sets of two normalized signatures.
// Tokens are runs of letters, digits and dots; case is ignored.
type JaccardSimilarity struct{}

// Similarity returns |A∩B| / |A∪B|. Two empty signatures are identical.
func (JaccardSimilarity) Similarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// Tokens splits a signature into its lowercase token set.
func Tokens(sig string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(sig), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.')
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
