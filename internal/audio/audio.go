package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/baobao-lyrics/baobao/internal/ffmpeg"
)

// settings for the audio handed to the ASR backend
type CompressionOptions struct {
	Format     string // mp3 or aac
	SampleRate int    // Hz
	Channels   int
	Bitrate    string // e.g. "64k"
}

// 16kHz mono is what whisper resamples to anyway
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

func (o CompressionOptions) kwargs() ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"vn": "",
		"ar": o.SampleRate,
		"ac": o.Channels,
	}
	switch o.Format {
	case "aac":
		kwargs["acodec"] = "aac"
	default:
		kwargs["acodec"] = "libmp3lame"
	}
	if o.Bitrate != "" {
		kwargs["b:a"] = o.Bitrate
	}
	return kwargs
}

// Extension is the file extension matching Format
func (o CompressionOptions) Extension() string {
	if o.Format == "aac" {
		return ".m4a"
	}
	return ".mp3"
}

// duration of an audio/video file via ffprobe
func GetDuration(filePath string) (time.Duration, error) {
	return Probe(context.Background(), filePath)
}

func Probe(ctx context.Context, filePath string) (time.Duration, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return 0, fmt.Errorf("file not found: %s", filePath)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeDuration(out.Bytes())
}

// ffprobe reports duration as a string of seconds
func parseProbeDuration(probe []byte) (time.Duration, error) {
	if !gjson.ValidBytes(probe) {
		return 0, fmt.Errorf("failed to parse ffprobe output")
	}
	d := gjson.GetBytes(probe, "format.duration")
	if !d.Exists() {
		return 0, fmt.Errorf("ffprobe output has no duration")
	}
	seconds := d.Float()
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid duration %q", d.String())
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// re-encodes input (audio or music video) into a small mono file for upload
func CompressAudio(
	ctx context.Context,
	inputPath, outputPath string,
	opts CompressionOptions,
) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}

	err = ffmpeg.Input(inputPath).
		Output(outputPath, opts.kwargs()).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	return nil
}

var (
	videoExts = map[string]bool{
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
		".webm": true, ".m4v": true, ".flv": true, ".mpg": true,
		".mpeg": true, ".wmv": true, ".3gp": true,
	}
	audioExts = map[string]bool{
		".mp3": true, ".wav": true, ".flac": true, ".m4a": true,
		".aac": true, ".ogg": true, ".opus": true, ".wma": true,
		".aiff": true,
	}
)

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is an audio file based on extension
func IsAudioFile(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is either audio or video
func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}
