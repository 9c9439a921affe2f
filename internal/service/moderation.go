package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

var (
	spamKeywords     = []string{"scam", "fake", "virus", "malware", "spam"}
	positiveKeywords = []string{"great", "awesome", "excellent", "love", "perfect", "amazing"}
	negativeKeywords = []string{"bad", "terrible", "awful", "hate", "worst", "useless"}
)

// Spam heuristics.
const (
	spamKeywordThreshold = 2
	capsMinLength        = 10
	capsMaxRatio         = 0.5
)

func countKeywords(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return n
}

// AnalyzeSentiment labels a comment by comparing how many positive and
// negative keywords it contains. A tie is neutral.
func AnalyzeSentiment(comment string) string {
	lower := strings.ToLower(comment)
	pos := countKeywords(lower, positiveKeywords)
	neg := countKeywords(lower, negativeKeywords)
	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// IsSpam flags comments that shout (more than half upper case once longer
// than ten characters), repeat any non-space character three times in a
// row, or mention at least two spam keywords.
func IsSpam(comment string) bool {
	if n := utf8.RuneCountInString(comment); n > capsMinLength {
		upper := 0
		for _, r := range comment {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(n) > capsMaxRatio {
			return true
		}
	}

	var prev rune
	run := 0
	for _, r := range comment {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= 3 && r != ' ' {
			return true
		}
	}

	return countKeywords(strings.ToLower(comment), spamKeywords) >= spamKeywordThreshold
}
