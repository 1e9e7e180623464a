package speech

import (
	"math"
	"regexp"

	"github.com/agnivade/levenshtein"
)

// punctuation and whitespace carry no phonetic weight
var strippedRe = regexp.MustCompile(`[、。\s]`)

// Similarity scores how close a transcript is to the expected narration,
// as a percentage rounded to one decimal. Both strings are compared with
// punctuation and spaces removed.
func Similarity(expected, transcribed string) float64 {
	a := strippedRe.ReplaceAllString(expected, "")
	b := strippedRe.ReplaceAllString(transcribed, "")

	lenA := len([]rune(a))
	lenB := len([]rune(b))
	maxLen := lenA
	if lenB > maxLen {
		maxLen = lenB
	}
	if maxLen == 0 {
		return 100
	}

	distance := levenshtein.ComputeDistance(a, b)
	similarity := float64(maxLen-distance) / float64(maxLen) * 100
	return math.Round(similarity*10) / 10
}
