// Package tokenutil approximates generative-model token counts without a
// tokenizer dependency. ASCII text runs about four characters per token;
// wide (CJK and similar) runes count as one token each. Estimates stay
// within roughly 25% of real tokenizer output for natural language, so
// budget holders should keep DefaultMargin in reserve.
package tokenutil

import "strings"

// DefaultMargin is the fraction of a token budget callers should reserve
// to absorb estimation error.
const DefaultMargin = 0.25

// Estimate returns the approximate token count of text. It is pure and
// non-decreasing: appending characters never lowers the estimate.
func Estimate(text string) int {
	ascii, wide := countRunes(text)
	return (ascii+3)/4 + wide
}

// TruncateToBudget returns the longest prefix of text that ends on a
// paragraph boundary (blank line) and fits within budget tokens. The second
// return is false when not even the first paragraph fits.
func TruncateToBudget(text string, budget int) (string, bool) {
	if budget <= 0 {
		return "", false
	}
	if Estimate(text) <= budget {
		return text, true
	}
	paragraphs := strings.Split(text, "\n\n")
	ascii, wide := 0, 0
	kept := 0
	for i, p := range paragraphs {
		pa, pw := countRunes(p)
		ascii += pa
		wide += pw
		if i > 0 {
			ascii += 2 // the "\n\n" separator
		}
		if (ascii+3)/4+wide > budget {
			break
		}
		kept = i + 1
	}
	if kept == 0 {
		return "", false
	}
	return strings.Join(paragraphs[:kept], "\n\n"), true
}

func countRunes(text string) (ascii int, wide int) {
	for _, r := range text {
		if r > 127 {
			wide++
			continue
		}
		ascii++
	}
	return ascii, wide
}
