package tokenizer

import "strings"

// CountTokens gives a rough token estimate for a chunk of English text.
// Good enough for metadata and batching decisions; swap in tiktoken-go if
// exact per-model counts ever matter.
func CountTokens(text string) int {
	words := strings.Fields(text)
	return max(len(words)*4/3, 1)
}
