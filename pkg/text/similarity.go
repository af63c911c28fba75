// Package text provides fuzzy string lookup against a candidate
// collection and simple lexical statistics (word counts, TF-IDF,
// cosine/Euclidean measures over token vectors).
package text

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// Method selects the similarity measure used by FindSimilar.
type Method string

const (
	// MethodRatio ranks candidates by normalized Levenshtein similarity.
	MethodRatio Method = "ratio"
	// MethodEditDistance ranks candidates by raw Levenshtein distance.
	MethodEditDistance Method = "edit_distance"
)

// FindSimilar returns the candidate most similar to query under the
// chosen method. Matching is case-insensitive; ties keep the first
// occurrence in candidates.
func FindSimilar(query string, candidates []string, method Method) (string, error) {
	if len(candidates) == 0 {
		return "", errors.New(errors.ErrorTypeEmptyCandidates, "no candidates to match against")
	}

	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false

	switch method {
	case MethodRatio:
		best, bestScore := 0, strutil.Similarity(query, candidates[0], lev)
		for i, c := range candidates[1:] {
			if score := strutil.Similarity(query, c, lev); score > bestScore {
				best = i + 1
				bestScore = score
			}
		}
		return candidates[best], nil

	case MethodEditDistance:
		best, bestDist := 0, lev.Distance(query, candidates[0])
		for i, c := range candidates[1:] {
			if d := lev.Distance(query, c); d < bestDist {
				best = i + 1
				bestDist = d
			}
		}
		return candidates[best], nil

	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unknown similarity method %q", method)
	}
}
