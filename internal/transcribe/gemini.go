package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/baobao-lyrics/baobao/internal/audio"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

// implements Transcriber interface using Google Gemini
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
}

type transcriptWord struct {
	Text  string
	Start float64
	End   float64
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64
	End   float64
	Text  string
	Words []transcriptWord
}

func NewGeminiTranscriber(ctx context.Context, opts Options) (*GeminiTranscriber, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiTranscriber{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

// transcribes single audio file
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	uploadedFile, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}

	defer func() {
		_, _ = t.client.Files.Delete(ctx, uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(t.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, err := t.parseTranscriptionResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	duration, _ := audio.GetDuration(audioPath)

	return &Result{
		Segments: segments,
		Language: t.options.Language,
		Duration: duration,
	}, nil
}

// transcribes a single chunk and adjusts timestamps
func (t *GeminiTranscriber) TranscribeChunk(ctx context.Context, chunk audio.ChunkInfo) ([]subtitle.Segment, error) {
	result, err := t.Transcribe(ctx, chunk.Path)
	if err != nil {
		return nil, err
	}
	return offsetSegments(result.Segments, chunk.StartTime), nil
}

// transcribes multiple chunks in parallel
func (t *GeminiTranscriber) TranscribeWithChunks(ctx context.Context, chunks []audio.ChunkInfo, concurrency int) (*Result, error) {
	segments, err := transcribeChunks(ctx, chunks, concurrency, t.TranscribeChunk)
	if err != nil {
		return nil, err
	}

	return &Result{
		Segments: segments,
		Language: t.options.Language,
		Duration: chunksDuration(chunks),
	}, nil
}

// creates the prompt for transcription
func (t *GeminiTranscriber) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Transcribe the sung lyrics in this audio, one lyric line per entry. ")
	sb.WriteString("For each line provide 'start' and 'end' timestamps in seconds (as numbers), the exact 'text' sung, ")
	sb.WriteString("and a 'words' array with one object per word or character containing 'text', 'start' and 'end'. ")
	sb.WriteString("Format your response as a JSON array of these line objects. ")
	sb.WriteString("Write Chinese in simplified characters exactly as sung and do not translate. ")

	if t.options.Language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", t.options.Language))
	}

	if t.options.Prompt != "" {
		sb.WriteString(t.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response into segments
func (t *GeminiTranscriber) parseTranscriptionResponse(result *genai.GenerateContentResponse) ([]subtitle.Segment, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					responseText += part.Text
				}
			}
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	transcriptSegments, err := extractTranscriptSegments(cleanJSONResponse(responseText))
	if err != nil {
		return nil, fmt.Errorf("%w (response: %s)", err, truncateString(responseText, 200))
	}

	return toSubtitleSegments(transcriptSegments), nil
}

// extractTranscriptSegments finds the first JSON value in text that holds a
// usable segment array, either at the top level or nested in a wrapper object
func extractTranscriptSegments(text string) ([]transcriptSegment, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}

		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}

		if segments, ok := findSegments(gjson.ParseBytes(raw)); ok {
			return segments, nil
		}
	}
	return nil, fmt.Errorf("no transcript segments found in response")
}

func findSegments(value gjson.Result) ([]transcriptSegment, bool) {
	switch {
	case value.IsArray():
		items := value.Array()
		segments := make([]transcriptSegment, 0, len(items))
		for _, item := range items {
			if !item.IsObject() {
				return nil, false
			}
			segments = append(segments, segmentFromJSON(item))
		}
		if !validateSegments(segments) {
			return nil, false
		}
		return segments, true

	case value.IsObject():
		var found []transcriptSegment
		value.ForEach(func(_, child gjson.Result) bool {
			if segments, ok := findSegments(child); ok {
				found = segments
				return false
			}
			return true
		})
		return found, found != nil
	}
	return nil, false
}

func segmentFromJSON(item gjson.Result) transcriptSegment {
	seg := transcriptSegment{
		Start: item.Get("start").Float(),
		End:   item.Get("end").Float(),
		Text:  item.Get("text").String(),
	}
	for _, w := range item.Get("words").Array() {
		text := w.Get("text").String()
		if text == "" {
			text = w.Get("word").String()
		}
		seg.Words = append(seg.Words, transcriptWord{
			Text:  text,
			Start: w.Get("start").Float(),
			End:   w.Get("end").Float(),
		})
	}
	return seg
}

// at least one segment must carry text or a timestamp
func validateSegments(segments []transcriptSegment) bool {
	for _, seg := range segments {
		if seg.Text != "" || seg.Start != 0 || seg.End != 0 {
			return true
		}
	}
	return false
}

func toSubtitleSegments(in []transcriptSegment) []subtitle.Segment {
	segments := make([]subtitle.Segment, len(in))
	for i, ts := range in {
		seg := subtitle.Segment{
			Start: subtitle.Seconds(ts.Start),
			End:   subtitle.Seconds(ts.End),
			Text:  strings.TrimSpace(ts.Text),
		}
		for _, w := range ts.Words {
			text := strings.TrimSpace(w.Text)
			if text == "" {
				continue
			}
			seg.Words = append(seg.Words, subtitle.Word{
				Text:  text,
				Start: subtitle.Seconds(w.Start),
				End:   subtitle.Seconds(w.End),
			})
		}
		segments[i] = seg
	}
	return segments
}

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	// remove ```json and ``` markers
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (t *GeminiTranscriber) Close() error {
	return nil
}
