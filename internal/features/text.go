package features

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ecomtrust/kestrel/internal/domain"
)

var (
	urlPattern   = regexp.MustCompile(`(?i)https?://|www\.`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// punctuation classes counted into punct_ratio.
const punctuationChars = ".,!?;:"

// textFeatures fills the text-derived review features. All counts are over
// runes, not bytes, so multi-byte text does not skew the ratios. Empty text
// yields 0 for every ratio.
func textFeatures(v domain.FeatureVector, text string) {
	runes := []rune(text)
	n := float64(len(runes))
	v[domain.FeatTextLen] = n

	var upper, digit, punct, exclaim, question float64
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			digit++
		}
		if strings.ContainsRune(punctuationChars, r) {
			punct++
		}
		switch r {
		case '!':
			exclaim++
		case '?':
			question++
		}
	}
	v[domain.FeatUpperRatio] = safeRatio(upper, n)
	v[domain.FeatDigitRatio] = safeRatio(digit, n)
	v[domain.FeatPunctRatio] = safeRatio(punct, n)
	v[domain.FeatExclaimRatio] = safeRatio(exclaim, n)
	v[domain.FeatQuestionRatio] = safeRatio(question, n)

	words := strings.Fields(text)
	v[domain.FeatWordCount] = float64(len(words))
	if len(words) > 0 {
		var totalLen float64
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			totalLen += float64(len([]rune(w)))
			unique[w] = struct{}{}
		}
		v[domain.FeatAvgWordLen] = totalLen / float64(len(words))
		v[domain.FeatUniqueWordRatio] = float64(len(unique)) / float64(len(words))
	}

	if urlPattern.MatchString(text) {
		v[domain.FeatHasURL] = 1
	}
	if emailPattern.MatchString(text) {
		v[domain.FeatHasEmail] = 1
	}
	v[domain.FeatRepeatedChars] = float64(repeatedRuns(runes))
}

// repeatedRuns counts maximal runs of the same rune repeated 3+ times.
func repeatedRuns(runes []rune) int {
	count := 0
	runLen := 1
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && runes[i] == runes[i-1] {
			runLen++
			continue
		}
		if runLen >= 3 {
			count++
		}
		runLen = 1
	}
	return count
}
