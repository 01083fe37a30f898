package memory

import (
	"math"
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it into word tokens, dropping
// punctuation. Shared by deduplication, novelty, interference, and
// retrieval scoring.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// WordSet returns the set of word tokens in text.
func WordSet(text string) map[string]struct{} {
	words := Tokenize(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard is intersection-over-union of the two texts' word sets.
func Jaccard(a, b string) float64 {
	return JaccardSets(WordSet(a), WordSet(b))
}

// JaccardSets is Jaccard over prebuilt word sets, for callers scoring one
// text against a large pool.
func JaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var inter int
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// KeywordHitRatio is the fraction of query words that occur in the text.
func KeywordHitRatio(query, text string) float64 {
	queryWords := Tokenize(query)
	if len(queryWords) == 0 {
		return 0
	}

	set := WordSet(text)
	var hits int
	for _, w := range queryWords {
		if _, ok := set[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryWords))
}

// Cosine is the cosine similarity of two embeddings in [-1,1]. Mismatched
// or empty vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineNorm rescales cosine similarity from [-1,1] to [0,1].
func CosineNorm(a, b []float32) float64 {
	return (Cosine(a, b) + 1) / 2
}
