package text

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// Tokenize lowercases text and splits it on any run of non-letter,
// non-digit characters.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// WordCounts returns the token frequency table of text.
func WordCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}
	return counts
}

// IDF computes smoothed inverse document frequencies over a corpus of
// documents: log(N / (1 + df)) + 1.
func IDF(corpus []string) map[string]float64 {
	df := make(map[string]int)
	for _, doc := range corpus {
		for tok := range WordCounts(doc) {
			df[tok]++
		}
	}

	idf := make(map[string]float64, len(df))
	n := float64(len(corpus))
	for tok, count := range df {
		idf[tok] = math.Log(n/(1+float64(count))) + 1
	}
	return idf
}

// TFIDF weighs the token frequencies of text by the given inverse
// document frequencies. Tokens absent from idf score zero.
func TFIDF(text string, idf map[string]float64) map[string]float64 {
	scores := make(map[string]float64)
	for tok, tf := range WordCounts(text) {
		scores[tok] = float64(tf) * idf[tok]
	}
	return scores
}

// VectorizePair builds aligned token-count vectors for two texts over
// their combined vocabulary, sorted for determinism.
func VectorizePair(a, b string) (va, vb []float64) {
	ca := WordCounts(a)
	cb := WordCounts(b)

	vocab := make([]string, 0, len(ca)+len(cb))
	seen := make(map[string]bool, len(ca)+len(cb))
	for tok := range ca {
		seen[tok] = true
		vocab = append(vocab, tok)
	}
	for tok := range cb {
		if !seen[tok] {
			vocab = append(vocab, tok)
		}
	}
	sort.Strings(vocab)

	va = make([]float64, len(vocab))
	vb = make([]float64, len(vocab))
	for i, tok := range vocab {
		va[i] = float64(ca[tok])
		vb[i] = float64(cb[tok])
	}
	return va, vb
}

// CosineSimilarity returns the cosine of the angle between two equal
// length vectors; a zero vector yields zero.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Newf(errors.ErrorTypeData, "vectors differ in length: %d vs %d", len(a), len(b))
	}

	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return floats.Dot(a, b) / (na * nb), nil
}

// EuclideanDistance returns the L2 distance between two equal length
// vectors.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Newf(errors.ErrorTypeData, "vectors differ in length: %d vs %d", len(a), len(b))
	}
	return floats.Distance(a, b, 2), nil
}
