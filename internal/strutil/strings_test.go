package strutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareCaseInsensitive(t *testing.T) {
	upper, err := Compare("ORDERS", "orders", MethodRatio)
	require.NoError(t, err)
	require.Equal(t, 100, upper)
}

func TestCompareMethods(t *testing.T) {
	for _, method := range []string{MethodRatio, MethodPartialRatio, MethodTokenSort, MethodTokenSet} {
		score, err := Compare("customer orders", "orders customer", method)
		require.NoError(t, err, method)
		require.GreaterOrEqual(t, score, 0, method)
		require.LessOrEqual(t, score, 100, method)
	}

	// Token-based methods ignore word order.
	score, err := Compare("customer orders", "orders customer", MethodTokenSort)
	require.NoError(t, err)
	require.Equal(t, 100, score)
}

func TestCompareUnknownMethod(t *testing.T) {
	_, err := Compare("a", "b", "levenshtein")
	require.Error(t, err)
	require.Contains(t, err.Error(), "levenshtein")
}

func TestMostSimilar(t *testing.T) {
	matches := MostSimilar("order table", []string{"CUSTOMERS", "ORDERS", "SHIPMENTS"})
	require.Len(t, matches, 3)
	require.Equal(t, "ORDERS", matches[0].Value)
	for i := 1; i < len(matches); i++ {
		require.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}
}

func TestMostSimilarEmpty(t *testing.T) {
	require.Empty(t, MostSimilar("anything", nil))
}
