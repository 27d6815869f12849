// Package strutil provides fuzzy string comparison helpers used to match
// free-form user input against known identifiers.
package strutil

import (
	"fmt"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Comparison methods accepted by Compare.
const (
	MethodRatio        = "ratio"
	MethodPartialRatio = "partial_ratio"
	MethodTokenSort    = "token_sort_ratio"
	MethodTokenSet     = "token_set_ratio"
)

// Compare scores the similarity of two strings on a 0-100 scale. Inputs
// are compared case-insensitively.
func Compare(a, b, method string) (int, error) {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)

	switch method {
	case MethodRatio:
		return fuzzy.Ratio(a, b), nil
	case MethodPartialRatio:
		return fuzzy.PartialRatio(a, b), nil
	case MethodTokenSort:
		return fuzzy.TokenSortRatio(a, b), nil
	case MethodTokenSet:
		return fuzzy.TokenSetRatio(a, b), nil
	default:
		return 0, fmt.Errorf("unknown comparison method %q", method)
	}
}

// Match pairs a candidate with its similarity score.
type Match struct {
	Value string
	Score int
}

// MostSimilar ranks candidates by token set similarity to the input,
// best match first. Ties keep the candidates' original order.
func MostSimilar(input string, candidates []string) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score, _ := Compare(input, c, MethodTokenSet)
		matches = append(matches, Match{Value: c, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
