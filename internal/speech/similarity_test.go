package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 100.0, Similarity("おおのさと", "おおのさと"), 0.01)

	// punctuation and whitespace are ignored
	assert.InDelta(t, 100.0, Similarity("おおのさと、が かった。", "おおのさとがかった"), 0.01)

	// both empty after stripping
	assert.InDelta(t, 100.0, Similarity("、。", " "), 0.01)

	// completely different
	assert.Less(t, Similarity("あいうえお", "かきくけこ"), 50.0)
}

func TestSimilarity_OneDecimal(t *testing.T) {
	// 1 edit over 6 runes: (6-1)/6*100 = 83.333... -> 83.3
	got := Similarity("あいうえおか", "あいうえおき")
	assert.Equal(t, 83.3, got)
}

func TestSimilarity_EmptyTranscript(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("おおのさと", ""))
}

func TestConvertDifficultWords(t *testing.T) {
	got := ConvertDifficultWords("快挙を成し遂げた稽古の結果")
	assert.Equal(t, "かいきょをなしとげたけいこのけっか", got)

	// unknown words pass through untouched
	assert.Equal(t, "大の里", ConvertDifficultWords("大の里"))
}
