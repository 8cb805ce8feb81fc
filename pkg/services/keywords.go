package services

import (
	"strings"
	"unicode"

	"github.com/atina-inc/atina-engine/pkg/models"
)

const minKeywordLen = 3

// ExtractKeywords derives the normalized keyword set for pattern matching
// from receipt line items: lowercased words, punctuation stripped, numeric
// and currency tokens dropped, deduplicated in first-seen order, capped at
// max.
func ExtractKeywords(items []models.LineItem, max int) []string {
	if max <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var keywords []string

	for _, item := range items {
		for _, word := range strings.Fields(strings.ToLower(item.Description)) {
			word = strings.TrimFunc(word, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsNumber(r)
			})
			if len([]rune(word)) < minKeywordLen {
				continue
			}
			if isNumericToken(word) {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			keywords = append(keywords, word)
			if len(keywords) == max {
				return keywords
			}
		}
	}
	return keywords
}

// isNumericToken reports whether a token is a quantity or amount rather than
// a word: digits with optional separators and currency markers.
func isNumericToken(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '.' || r == ',' || r == '$' || r == '€' || r == '%' || r == 'x':
			// Common in "2x", "$12.50", "1,000".
		default:
			return false
		}
	}
	return hasDigit
}
