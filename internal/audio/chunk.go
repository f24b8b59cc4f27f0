package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/baobao-lyrics/baobao/internal/ffmpeg"
)

// audio chunk info; StartTime is the offset applied to chunk timestamps
type ChunkInfo struct {
	Path      string
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
}

func (c ChunkInfo) Duration() time.Duration {
	return c.EndTime - c.StartTime
}

// splits an audio file into chunks of specified duration
func ChunkAudio(
	ctx context.Context,
	audioPath string,
	chunkDuration time.Duration,
	outputDir string,
) ([]ChunkInfo, error) {
	return ChunkAudioConcurrent(ctx, audioPath, chunkDuration, outputDir, 0)
}

// ChunkAudioConcurrent splits an audio file with at most concurrency ffmpeg
// processes at once (default 4). Files no longer than one chunk come back as a
// single chunk pointing at the original path, so only pass the returned
// chunks to CleanupChunks when there is more than one.
func ChunkAudioConcurrent(
	ctx context.Context,
	audioPath string,
	chunkDuration time.Duration,
	outputDir string,
	concurrency int,
) ([]ChunkInfo, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkDuration)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	totalDuration, err := Probe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}

	planned := planChunks(audioPath, outputDir, totalDuration, chunkDuration)
	if len(planned) == 1 {
		planned[0].Path = audioPath
		return planned, nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan ChunkInfo)
	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	for i := 0; i < concurrency; i++ {
		wg.Go(func() {
			for chunk := range jobs {
				if ctx.Err() != nil {
					continue
				}
				err := ffmpeg.Input(audioPath, ffmpeg.KwArgs{"ss": chunk.StartTime.Seconds()}).
					Output(chunk.Path, ffmpeg.KwArgs{
						"t": chunk.Duration().Seconds(),
						"c": "copy",
					}).
					OverWriteOutput().
					SetFfmpegPath(ffmpegPath).
					Run()
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("failed to create chunk %d: %w", chunk.Index, err)
					}
					mu.Unlock()
					cancel()
				}
			}
		})
	}

feed:
	for _, chunk := range planned {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- chunk:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		_ = CleanupChunks(planned)
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		_ = CleanupChunks(planned)
		return nil, err
	}

	return planned, nil
}

// planChunks lays out fixed-length windows covering total; the last chunk
// absorbs a remainder shorter than a tenth of a chunk so no chunk is a sliver
func planChunks(audioPath, outputDir string, total, chunkDuration time.Duration) []ChunkInfo {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	ext := filepath.Ext(audioPath)

	var chunks []ChunkInfo
	for start := time.Duration(0); start < total; start += chunkDuration {
		end := start + chunkDuration
		if end > total || total-end < chunkDuration/10 {
			end = total
		}
		chunks = append(chunks, ChunkInfo{
			Path:      filepath.Join(outputDir, fmt.Sprintf("%s_chunk_%03d%s", base, len(chunks), ext)),
			Index:     len(chunks),
			StartTime: start,
			EndTime:   end,
		})
		if end == total {
			break
		}
	}

	if len(chunks) == 0 {
		chunks = append(chunks, ChunkInfo{Path: audioPath, EndTime: total})
	}

	return chunks
}

// removes all chunk files
func CleanupChunks(chunks []ChunkInfo) error {
	var lastErr error
	for _, chunk := range chunks {
		if err := os.Remove(chunk.Path); err != nil && !os.IsNotExist(err) {
			lastErr = err
		}
	}
	return lastErr
}
