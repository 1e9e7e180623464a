package assembler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkArgs(t *testing.T) {
	a := New("/tmp/out")
	args := a.chunkArgs("scene_0.png", "scene_0.mp3", "chunk_0.mp4")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-loop 1")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-c:a aac")
	assert.Contains(t, joined, "-shortest")
	assert.Contains(t, joined, "-pix_fmt yuv420p")
	assert.Equal(t, "chunk_0.mp4", args[len(args)-1])

	// image input must come before the audio input
	assert.Less(t, indexOf(args, "scene_0.png"), indexOf(args, "scene_0.mp3"))
}

func TestConcatArgs(t *testing.T) {
	a := New("/tmp/out")
	args := a.concatArgs("list.txt", "final.mp4")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f concat")
	assert.Contains(t, joined, "-c copy")
	assert.Equal(t, "final.mp4", args[len(args)-1])
}

func TestBgmArgs(t *testing.T) {
	a := New("/tmp/out")
	args := a.bgmArgs("video.mp4", "bgm.mp3", "final.mp4")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-filter_complex [1:a]volume=0.05[bgm];[0:a][bgm]amix=inputs=2:duration=first:dropout_transition=0[aout]")
	assert.Contains(t, joined, "-map 0:v")
	assert.Contains(t, joined, "-map [aout]")
	assert.Contains(t, joined, "-c:v copy")
	assert.Contains(t, joined, "-c:a aac")
	assert.Contains(t, joined, "-shortest")
}

func TestAssemble_CountMismatch(t *testing.T) {
	a := New(t.TempDir())
	_, err := a.Assemble(context.Background(), []string{"a.png", "b.png"}, []string{"a.mp3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset count mismatch")
}

func TestAddBackgroundMusic_MissingFileKeepsVideo(t *testing.T) {
	a := New(t.TempDir())

	got, err := a.AddBackgroundMusic(context.Background(), "narration.mp4", "/nonexistent/bgm.mp3")
	require.NoError(t, err)
	assert.Equal(t, "narration.mp4", got)

	got, err = a.AddBackgroundMusic(context.Background(), "narration.mp4", "")
	require.NoError(t, err)
	assert.Equal(t, "narration.mp4", got)
}

func TestListPath(t *testing.T) {
	a := New("/tmp/out")
	assert.Equal(t, "/tmp/out/sumo_news.txt", a.listPath())
}

func TestWriteConcatList(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, writeConcatList(listPath, []string{"/out/chunk_0.mp4", "/out/chunk_1.mp4"}))

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	assert.Equal(t, "file '/out/chunk_0.mp4'\nfile '/out/chunk_1.mp4'\n", string(data))
}

func indexOf(args []string, value string) int {
	for i, a := range args {
		if a == value {
			return i
		}
	}
	return -1
}
