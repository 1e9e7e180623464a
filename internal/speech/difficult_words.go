package speech

import "strings"

// Kanji the speech engine keeps misreading, with the readings that fix them.
// Applied as a second-attempt escalation before falling back to whole-text
// kana conversion.
var difficultWords = map[string]string{
	"快挙":   "かいきょ",
	"毎試合":  "まいしあい",
	"稽古":   "けいこ",
	"技術":   "ぎじゅつ",
	"光り":   "ひかり",
	"展開":   "てんかい",
	"成し遂げ": "なしとげ",
	"評価":   "ひょうか",
	"才能":   "さいのう",
	"努力":   "どりょく",
	"組み合わ": "くみあわ",
	"結果":   "けっか",
	"活躍":   "かつやく",
	"期待":   "きたい",
	"挑戦":   "ちょうせん",
	"宣言":   "せんげん",
	"記録":   "きろく",
	"達成":   "たっせい",
	"圧倒的":  "あっとうてき",
	"発揮":   "はっき",
	"話題":   "わだい",
	"近年":   "きんねん",
	"稀有":   "けう",
	"精神力":  "せいしんりょく",
	"物語":   "ものがた",
	"関係者":  "かんけいしゃ",
}

// ConvertDifficultWords rewrites known hard-to-read kanji into kana.
func ConvertDifficultWords(text string) string {
	converted := text
	for kanji, kana := range difficultWords {
		converted = strings.ReplaceAll(converted, kanji, kana)
	}
	return converted
}
