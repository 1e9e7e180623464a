package assembler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sumochan15/agentworkflow/pkg/file"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

const (
	narrationFileName = "sumo_news.mp4"
	bgmFileName       = "sumo_news_with_bgm.mp4"
)

// bgm is mixed under the narration at 5% volume and trimmed to its length
const bgmFilter = "[1:a]volume=0.05[bgm];[0:a][bgm]amix=inputs=2:duration=first:dropout_transition=0[aout]"

// Assembler turns per-scene image/audio pairs into one vertical video by
// shelling out to ffmpeg: still-image chunks, ordered concat, then an
// optional background-music mix.
type Assembler struct {
	ffmpegCmd string
	outputDir string
}

func New(outputDir string) Assembler {
	return Assembler{
		ffmpegCmd: "ffmpeg",
		outputDir: filepath.Clean(outputDir),
	}
}

// Assemble renders the narrated video from matched image and audio lists.
// The counts must already be verified equal by the caller.
func (a Assembler) Assemble(ctx context.Context, imagePaths, audioPaths []string) (string, error) {
	if len(imagePaths) != len(audioPaths) {
		return "", fmt.Errorf("asset count mismatch: %d images, %d audio files", len(imagePaths), len(audioPaths))
	}

	log.Info("Assembling video from %d scenes...", len(imagePaths))

	chunkPaths := make([]string, 0, len(imagePaths))
	for i := range imagePaths {
		chunkPath := filepath.Join(a.outputDir, fmt.Sprintf("chunk_%d.mp4", i))
		if err := a.run(ctx, a.chunkArgs(imagePaths[i], audioPaths[i], chunkPath)); err != nil {
			return "", fmt.Errorf("chunk %d: %w", i, err)
		}
		chunkPaths = append(chunkPaths, chunkPath)
	}

	finalPath := filepath.Join(a.outputDir, narrationFileName)
	listPath := a.listPath()
	if err := writeConcatList(listPath, chunkPaths); err != nil {
		return "", err
	}

	if err := a.run(ctx, a.concatArgs(listPath, finalPath)); err != nil {
		return "", fmt.Errorf("concat: %w", err)
	}

	log.Info("Video assembled: %s", finalPath)
	return finalPath, nil
}

// listPath is the concat demuxer input, named after the final video.
func (a Assembler) listPath() string {
	return file.ReplaceExt(filepath.Join(a.outputDir, narrationFileName), ".txt")
}

// AddBackgroundMusic mixes bgm under the narration. A missing bgm file is
// not an error: the narration-only video is returned unchanged.
func (a Assembler) AddBackgroundMusic(ctx context.Context, videoPath, bgmPath string) (string, error) {
	if bgmPath == "" {
		log.Warn("No background music configured, keeping narration-only video")
		return videoPath, nil
	}
	if _, err := os.Stat(bgmPath); err != nil {
		log.Warn("Background music file not found: %s", bgmPath)
		return videoPath, nil
	}

	log.Info("Adding background music...")

	finalPath := filepath.Join(a.outputDir, bgmFileName)
	if err := a.run(ctx, a.bgmArgs(videoPath, bgmPath, finalPath)); err != nil {
		return "", fmt.Errorf("bgm mix: %w", err)
	}

	log.Info("Background music added: %s", finalPath)
	return finalPath, nil
}

func (a Assembler) run(ctx context.Context, args []string) error {
	cmdPath, err := exec.LookPath(a.ffmpegCmd)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cmdPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", strings.Join(args, " "), err, tail(output))
	}
	return nil
}

// chunkArgs loops the still image for the audio duration.
func (Assembler) chunkArgs(imagePath, audioPath, outputPath string) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-shortest",
		"-pix_fmt", "yuv420p",
		outputPath,
	}
}

// concatArgs joins the chunks losslessly through the concat demuxer.
func (Assembler) concatArgs(listPath, outputPath string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
}

// bgmArgs mixes bgm under the narration, copying the video stream.
func (Assembler) bgmArgs(videoPath, bgmPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-i", bgmPath,
		"-filter_complex", bgmFilter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	}
}

func writeConcatList(listPath string, chunkPaths []string) error {
	var b strings.Builder
	for _, p := range chunkPaths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func tail(output []byte) string {
	const max = 512
	if len(output) <= max {
		return string(output)
	}
	return string(output[len(output)-max:])
}
