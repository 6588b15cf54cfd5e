package tokenutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	require.Equal(t, 0, Estimate(""))
	require.Equal(t, 1, Estimate("a"))
	require.Equal(t, 1, Estimate("abcd"))
	require.Equal(t, 2, Estimate("abcde"))
	require.Equal(t, 1000, Estimate(strings.Repeat("abc ", 1000)))
	// wide runes count one token each
	require.Equal(t, 3, Estimate("你好吗"))
	require.Equal(t, 4, Estimate("ok你好吗"))
}

func TestEstimateMonotonic(t *testing.T) {
	text := ""
	prev := 0
	for _, piece := range []string{"alpha", " ", "beta gamma", "\n\n", "延长", "tail"} {
		text += piece
		cur := Estimate(text)
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestEstimateDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 50)
	require.Equal(t, Estimate(text), Estimate(text))
}

func TestTruncateToBudgetKeepsParagraphs(t *testing.T) {
	p1 := strings.Repeat("aaaa ", 80) // 100 tokens
	p2 := strings.Repeat("bbbb ", 80)
	p3 := strings.Repeat("cccc ", 80)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	out, ok := TruncateToBudget(text, 210)
	require.True(t, ok)
	require.Equal(t, p1+"\n\n"+p2, out)
	require.LessOrEqual(t, Estimate(out), 210)

	out, ok = TruncateToBudget(text, Estimate(text))
	require.True(t, ok)
	require.Equal(t, text, out)
}

func TestTruncateToBudgetNothingFits(t *testing.T) {
	text := strings.Repeat("word ", 200)
	out, ok := TruncateToBudget(text, 10)
	require.False(t, ok)
	require.Empty(t, out)
}

func TestTruncateToBudgetZero(t *testing.T) {
	_, ok := TruncateToBudget("anything", 0)
	require.False(t, ok)
}
