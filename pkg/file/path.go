package file

import (
	"path/filepath"
	"strings"
	"unicode"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if lastDot <= 0 {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return filepath.Join(dir, filename+ext)
	}

	nameWithoutExt := filename[:lastDot]

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return filepath.Join(dir, nameWithoutExt+ext)
}

// SanitizeName rewrites a free-form topic into a string safe for use in
// file and directory names. Letters, digits and Japanese scripts are kept,
// everything else becomes an underscore. The result is capped at maxLen runes.
func SanitizeName(name string, maxLen int) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	runes := []rune(out)
	if maxLen > 0 && len(runes) > maxLen {
		out = string(runes[:maxLen])
	}
	return out
}
