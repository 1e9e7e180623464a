package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "dir/clip.mp3", ReplaceExt("dir/clip.wav", ".mp3"))
	assert.Equal(t, "dir/clip.mp3", ReplaceExt("dir/clip.wav", "mp3"))
	assert.Equal(t, "dir/clip.mp3", ReplaceExt("dir/clip", "mp3"))
	assert.Equal(t, "", ReplaceExt("", ".mp3"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "sumo_news", SanitizeName("sumo news", 30))
	assert.Equal(t, "大相撲特報_", SanitizeName("大相撲特報！", 30))
	assert.Equal(t, "abc", SanitizeName("abcdef", 3))
	assert.Equal(t, "_____", SanitizeName("!@#$%", 30))
}
