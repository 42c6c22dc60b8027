package tagging

import "strings"

// GenerateTags classifies text into emotion categories by fuzzy-matching
// each token against the keyword index. The result is always non-empty:
// when nothing matches (including empty input) it is [CategoryGeneral].
// Output order follows the fixed category order, with no duplicates.
func GenerateTags(text string) []string {
	tokens := tokenize(text)

	matched := make(map[string]bool)
	for _, token := range tokens {
		for _, category := range categories {
			for _, keyword := range keywords[category] {
				// Cheap length pre-filter; a match within 2 edits cannot
				// differ in length by more than 2.
				if abs(len(token)-len(keyword)) > 2 {
					continue
				}
				maxEdits := max(len(token), len(keyword)) / 4
				if maxEdits > 2 {
					maxEdits = 2
				}
				if Levenshtein(token, keyword) <= maxEdits {
					matched[category] = true
					break
				}
			}
		}
	}

	if len(matched) == 0 {
		return []string{CategoryGeneral}
	}
	tags := make([]string, 0, len(matched))
	for _, category := range categories {
		if matched[category] {
			tags = append(tags, category)
		}
	}
	return tags
}

// tokenize lower-cases the text, strips everything but word characters and
// whitespace, splits on whitespace runs and drops tokens of length <= 2.
func tokenize(text string) []string {
	var cleaned strings.Builder
	cleaned.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			cleaned.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			cleaned.WriteRune(' ')
		}
	}

	fields := strings.Fields(cleaned.String())
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
