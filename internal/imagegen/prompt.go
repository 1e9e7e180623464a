package imagegen

import (
	"fmt"
	"regexp"
	"strings"
)

// sceneAnalysis is what the builder could glean from one scene's narration.
type sceneAnalysis struct {
	characters []string
	location   string
	action     string
	emotion    string
	elements   []string
	keyword    string
}

type concept struct {
	action   string
	emotion  string
	elements string
	keyword  string
}

// rotating per-scene framing: opener, key point, surprise, reflection, wrap-up
var concepts = []concept{
	{"視聴者に語りかけている", "楽しげな、笑顔の", "周囲に電球マークや星のアイコンを配置", "はじまり"},
	{"重要ポイントを指差し確認している", "真剣な、集中した", "チェックマークや矢印のアイコンを配置", "ポイント"},
	{"驚いた表情で両手を挙げている", "驚いた、興味深い", "感嘆符や注目マークを配置", "注目"},
	{"考え込んでいる様子で首をかしげている", "思慮深い、考え中の", "疑問符や思考の雲を配置", "考察"},
	{"喜びの表情で拳を上げている", "嬉しい、満足した", "星やキラキラマークを配置", "まとめ"},
}

var rankPatterns = []*regexp.Regexp{
	regexp.MustCompile(`横綱[^\s、。！？]*`),
	regexp.MustCompile(`大関[^\s、。！？]*`),
	regexp.MustCompile(`関脇[^\s、。！？]*`),
	regexp.MustCompile(`小結[^\s、。！？]*`),
	regexp.MustCompile(`前頭[^\s、。！？]*`),
	regexp.MustCompile(`力士[^\s、。！？]*`),
}

// kanji runs of 3-4 characters followed by a particle look like ring names
var namePattern = regexp.MustCompile(`[一-龯]{3,4}(が|は|も|と|の|、)`)

var locationKeywords = []struct {
	keyword  string
	location string
}{
	{"国技館", "両国国技館"},
	{"土俵", "大相撲の土俵"},
	{"稽古", "稽古場"},
	{"場所", "本場所の会場"},
	{"巡業", "巡業先"},
	{"部屋", "相撲部屋"},
}

var locationFeatures = map[string]string{
	"両国国技館": "吊り屋根、満員の観客席（簡略化）、土俵",
	"大相撲の土俵": "円形の土俵、俵、四隅の房（青・赤・白・黒）",
	"稽古場":   "シンプルな土俵、タオル、水桶",
	"本場所の会場": "土俵、観客席の雰囲気、幕",
	"巡業先":   "地方の会場、観客との距離が近い雰囲気",
	"相撲部屋":  "稽古場、神棚、土俵",
}

var elementKeywords = []struct {
	keyword string
	element string
}{
	{"稽古", "稽古道具や汗のエフェクト"},
	{"取組", "土俵の俵や行司の軍配"},
	{"優勝", "優勝杯やトロフィー、紙吹雪"},
	{"表彰", "賞状や花束"},
	{"勝", "上昇する矢印や星マーク"},
	{"番", "数字カウンターや対戦表"},
}

var sentenceSplitRe = regexp.MustCompile(`[。！？]`)

// BuildPrompt renders the hand-drawn 9:16 illustration prompt for one scene.
// The scene index rotates the framing so consecutive scenes vary in pose and
// mood.
func BuildPrompt(sceneText string, sceneIndex int) string {
	analysis := analyzeScene(sceneText, sceneIndex)
	keyPhrase := extractKeyPhrase(sceneText)

	var b strings.Builder
	fmt.Fprintf(&b, "# Hand-Drawn YouTube Video Asset - Scene %d\n\n", sceneIndex+1)

	b.WriteString(`## Global Style
- Art Style: グラフィックレコーディング / 手描きのスケッチ / 絵本風イラスト
- Texture: 紙に描いたマーカーペン、クレヨン、色鉛筆の温かい質感
- Vibe: 親しみやすく、柔らかく、可愛らしい雰囲気
- Background: きれいな白、クリーム色、または薄い紙のテクスチャ背景
- Aspect Ratio: **9:16 (縦長・縦型)**

## Character Reference & Layout
- Base Character: Use 'image_0.png' as character reference (力士キャラクター)
- Apply image-to-image transfer with hand-drawn style
`)
	b.WriteString(characterLayout(analysis.characters))

	fmt.Fprintf(&b, "\n\n## Scene Content\n### シーン概要\n「%s」というシーンを手書き風イラストで表現する。\n\n", sceneText)

	b.WriteString("### Main Subject & Characters\n")
	b.WriteString(characterDescription(analysis))

	fmt.Fprintf(&b, "\n\n### Background & Location\n%s\n\n", backgroundDetail(analysis.location, sceneText))

	fmt.Fprintf(&b, "### Supporting Visual Elements\n%s\n\n", sceneElements(analysis.elements))

	fmt.Fprintf(&b, `### Text Elements (IMPORTANT - Japanese Text Integration)
**CRITICAL**: Include Japanese text prominently in the image as part of the illustration:

- **Main Text (画面上部)**: "%s"
  - Style: 手描きの太字、マーカーペン風の日本語文字
  - Position: 画面上部20%%のエリア、中央寄せ
  - Background: 薄い黄色やピンクの手書き強調背景（蛍光ペン風）

- **Supporting Labels (キャラクター周辺)**: %s、%s
  - Style: 小さめの手書き文字、矢印や線で指示

- **Additional Context (画面下部)**: 「%s」「%s」などの小さな手書きメモ

**Text must be clearly readable, prominent, and integrated into the hand-drawn aesthetic.**

`, keyPhrase, analysis.keyword, strings.Join(analysis.characters, "、"), analysis.location, analysis.keyword)

	fmt.Fprintf(&b, `### Composition
- Layout: 9:16縦長構図（縦型動画最適化）
- Text Zone (上部20%%): 「%s」を大きく配置
- Character Zone (中央50%%): %d人のキャラクター配置
- Context Zone (下部30%%): 背景、場所、追加要素
- Emphasis: 手描きの集中線、温かい色のオーラ、キラキラエフェクトで強調

## Technical Requirements
- Output Format: PNG
- Resolution: 1024x1792 (9:16 aspect ratio)
- Language: All text in Japanese (MUST include "%s" and labels)
- Character: Consistent with reference image (image_0.png) for all characters
- Character Count: %d sumo wrestlers in the scene
- Text Integration: Japanese text must be part of the illustration, not an overlay`,
		keyPhrase, len(analysis.characters), keyPhrase, len(analysis.characters))

	return b.String()
}

func analyzeScene(sceneText string, sceneIndex int) sceneAnalysis {
	c := concepts[sceneIndex%len(concepts)]

	characters := extractCharacters(sceneText)
	if len(characters) == 0 {
		characters = []string{"力士"}
	}

	return sceneAnalysis{
		characters: characters,
		location:   extractLocation(sceneText),
		action:     c.action,
		emotion:    c.emotion,
		elements:   extractElements(sceneText),
		keyword:    c.keyword,
	}
}

// extractKeyPhrase picks the headline text drawn inside the image, at most
// about 20 characters.
func extractKeyPhrase(sceneText string) string {
	clean := strings.Join(strings.Fields(sceneText), "")
	if cleanRunes := []rune(clean); len(cleanRunes) <= 20 {
		return clean
	}

	first := strings.TrimSpace(sentenceSplitRe.Split(sceneText, 2)[0])
	if len([]rune(first)) <= 20 {
		return first
	}

	return string([]rune(clean)[:15]) + "…"
}

func extractCharacters(text string) []string {
	var characters []string
	for _, p := range rankPatterns {
		characters = append(characters, p.FindAllString(text, -1)...)
	}

	names := namePattern.FindAllStringSubmatch(text, -1)
	for i, m := range names {
		if i >= 2 {
			break
		}
		characters = append(characters, strings.TrimSuffix(m[0], m[1]))
	}

	seen := make(map[string]bool)
	var unique []string
	for _, c := range characters {
		if seen[c] {
			continue
		}
		seen[c] = true
		unique = append(unique, c)
		if len(unique) == 3 {
			break
		}
	}
	return unique
}

func extractLocation(text string) string {
	for _, lk := range locationKeywords {
		if strings.Contains(text, lk.keyword) {
			return lk.location
		}
	}
	return "相撲の会場"
}

func extractElements(text string) []string {
	var elements []string
	for _, ek := range elementKeywords {
		if strings.Contains(text, ek.keyword) {
			elements = append(elements, ek.element)
		}
	}
	if len(elements) == 0 {
		elements = append(elements, "相撲に関連する手描きのアイコン")
	}
	return elements
}

func characterLayout(characters []string) string {
	switch len(characters) {
	case 1:
		return `- Character Count: 1 sumo wrestler
- Position: 画面中央、大きく配置
- Variation: Use image_0.png reference, maintain consistency`
	case 2:
		return fmt.Sprintf(`- Character Count: 2 sumo wrestlers (both based on image_0.png reference)
- Position: 左右に並べて配置、または対峙する構図
- Variation: 同じキャラクターデザインで、表情やポーズを変えて区別
- Labels: 各キャラクターに「%s」「%s」のラベルを手書きで追加`, characters[0], characters[1])
	default:
		return fmt.Sprintf(`- Character Count: %d sumo wrestlers (all based on image_0.png reference)
- Position: 画面に複数配置、前後や左右に配置して奥行きを表現
- Variation: 同じキャラクターデザインで、サイズ・表情・ポーズを変えて区別
- Labels: 各キャラクターに「%s」のラベルを手書きで追加`, len(characters), strings.Join(characters, "」「"))
	}
}

func characterDescription(a sceneAnalysis) string {
	if len(a.characters) == 1 {
		return fmt.Sprintf(`%sのキャラクターが画面中央で%s。
表情は%sで、視聴者に親しみやすい印象を与える。
キャラクターの周囲に名前や役割を示す手書きラベルを配置。`, a.characters[0], a.action, a.emotion)
	}

	positions := []string{"左側", "中央", "右側"}
	actions := []string{"力強くポーズ", "語りかけている", "注目している", "驚いている"}
	var lines []string
	for i, char := range a.characters {
		lines = append(lines, fmt.Sprintf("- %s: %sに配置、%s", char, positions[i%len(positions)], actions[i%len(actions)]))
	}

	return fmt.Sprintf(`%d人のキャラクターが登場:
%s

全員が同じ 'image_0.png' の力士デザインをベースに、表情、ポーズ、サイズを変えて個性を表現。
各キャラクターには手書きのラベルで名前を明記。`, len(a.characters), strings.Join(lines, "\n"))
}

func backgroundDetail(location, sceneText string) string {
	mood := "落ち着いた"
	if strings.Contains(sceneText, "熱戦") || strings.Contains(sceneText, "激") {
		mood = "熱気溢れる"
	}

	features, ok := locationFeatures[location]
	if !ok {
		features = "相撲らしい雰囲気の背景"
	}

	return fmt.Sprintf(`手書き風の背景として「%s」を描く。
- 背景スタイル: シンプルな線画、薄い色でのベタ塗り
- 場所の特徴: %s
- 雰囲気: %s
- 装飾: 場所に応じた小物や装飾を手描きで追加（俵、房、幕など）`, location, features, mood)
}

func sceneElements(elements []string) string {
	return fmt.Sprintf(`シーンを豊かにするための手描き要素:
- メイン要素: %s
- アクション指示線: 動きや注目点を示す手描きの矢印や集中線
- 感情表現: 汗マーク、炎のエフェクト、輝きエフェクト
- テキスト補助: 「ドン！」「ガッツ！」などの擬音語・擬態語を手書きで追加`, strings.Join(elements, "、"))
}
