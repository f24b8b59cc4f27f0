package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/baobao-lyrics/baobao/internal/ffmpeg"
)

// ErrNoAudio is returned for a music video without an audio stream
var ErrNoAudio = errors.New("video has no audio track")

// video file information
type Info struct {
	Path      string
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64
	Codec     string
	HasAudio  bool
}

// holds options for audio extraction
type ExtractAudioOptions struct {
	Format     string // wav, mp3 or flac
	SampleRate int    // Hz
	Channels   int
	Bitrate    string // lossy formats only
}

// 16kHz mono WAV
func DefaultExtractAudioOptions() ExtractAudioOptions {
	return ExtractAudioOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
	}
}

// Processor pulls the soundtrack out of music videos with ffmpeg
type Processor struct {
	tempDir string
}

func NewProcessor(tempDir string) *Processor {
	return &Processor{tempDir: tempDir}
}

// AudioPath is where ExtractAudio writes when no output path is given
func (p *Processor) AudioPath(videoPath string, opts ExtractAudioOptions) string {
	base := filepath.Base(videoPath)
	base = base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(p.tempDir, base+"."+opts.Format)
}

// extracts audio from video file, refusing videos without a sound track
func (p *Processor) ExtractAudio(
	ctx context.Context,
	videoPath, outputPath string,
	opts ExtractAudioOptions,
) (string, error) {
	info, err := p.GetInfo(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if !info.HasAudio {
		return "", fmt.Errorf("%s: %w", filepath.Base(videoPath), ErrNoAudio)
	}

	if outputPath == "" {
		outputPath = p.AudioPath(videoPath, opts)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	kwargs := ffmpeg.KwArgs{
		"vn": "",
		"ar": opts.SampleRate,
		"ac": opts.Channels,
	}
	switch opts.Format {
	case "mp3":
		kwargs["acodec"] = "libmp3lame"
		if opts.Bitrate != "" {
			kwargs["b:a"] = opts.Bitrate
		}
	case "flac":
		kwargs["acodec"] = "flac"
	default:
		kwargs["acodec"] = "pcm_s16le"
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return "", err
	}

	err = ffmpeg.Input(videoPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return "", fmt.Errorf("ffmpeg extraction failed: %w", err)
	}

	return outputPath, nil
}

// retrieves video file information through ffprobe
func (p *Processor) GetInfo(
	ctx context.Context,
	videoPath string,
) (*Info, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file not found: %s", videoPath)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := parseInfo(out.Bytes())
	if err != nil {
		return nil, err
	}
	info.Path = videoPath
	return info, nil
}

func parseInfo(probe []byte) (*Info, error) {
	if !gjson.ValidBytes(probe) {
		return nil, fmt.Errorf("failed to parse ffprobe output")
	}

	info := &Info{
		Duration: time.Duration(gjson.GetBytes(probe, "format.duration").Float() * float64(time.Second)),
	}

	for _, stream := range gjson.GetBytes(probe, "streams").Array() {
		switch stream.Get("codec_type").String() {
		case "audio":
			info.HasAudio = true
		case "video":
			if info.Codec != "" {
				continue
			}
			info.Codec = stream.Get("codec_name").String()
			info.Width = int(stream.Get("width").Int())
			info.Height = int(stream.Get("height").Int())
			info.FrameRate = parseRate(stream.Get("avg_frame_rate").String())
		}
	}
	return info, nil
}

// ffprobe rates are fractions such as "30000/1001"
func parseRate(rate string) float64 {
	var num, den float64
	if _, err := fmt.Sscanf(rate, "%f/%f", &num, &den); err != nil || den == 0 {
		return 0
	}
	return num / den
}
