package embed

// EstimateTokens gives a rough token count for batch budgeting: about four
// characters per token of English text. Exact tokenization is not required
// here; the budget has generous headroom.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := len(text) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
