package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HighlightColor wraps the active word in karaoke output
const HighlightColor = "#00ff00"

// interface for serializing a reconciled timeline
type Renderer interface {
	Render(segments []Segment) (string, error)
}

// SubRip, one entry per segment
type SRTRenderer struct {
	Output OutputFormat
}

// SubRip, one entry per highlight window
type KaraokeRenderer struct {
	Output OutputFormat
}

// lyric timestamp format
type LRCRenderer struct {
	Output OutputFormat
}

// WebVTT format
type VTTRenderer struct {
	Output OutputFormat
}

// Advanced SubStation Alpha with \k karaoke timing
type ASSRenderer struct {
	Output   OutputFormat
	Title    string
	FontName string
	FontSize int
}

func NewRenderer(format Format, output OutputFormat) (Renderer, error) {
	switch format {
	case FormatSRT:
		return &SRTRenderer{Output: output}, nil
	case FormatKaraoke:
		return &KaraokeRenderer{Output: output}, nil
	case FormatLRC:
		return &LRCRenderer{Output: output}, nil
	case FormatVTT:
		return &VTTRenderer{Output: output}, nil
	case FormatASS:
		return &ASSRenderer{
			Output:   output,
			Title:    "Baobao Lyrics",
			FontName: "Noto Sans CJK SC",
			FontSize: 48,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// renders segments and writes the document, creating parent directories
func WriteFile(r Renderer, segments []Segment, path string) error {
	doc, err := r.Render(segments)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(doc), 0644)
}

func (r *SRTRenderer) Render(segments []Segment) (string, error) {
	if err := validate(segments); err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(segments))
	for _, seg := range segments {
		blocks = append(blocks, srtBlock(
			len(blocks)+1,
			seg.Start,
			seg.End,
			r.Output.Lines(seg, seg.Text),
		))
	}
	return joinSRT(blocks), nil
}

func (r *KaraokeRenderer) Render(segments []Segment) (string, error) {
	if err := validate(segments); err != nil {
		return "", err
	}

	var blocks []string
	add := func(start, end time.Duration, lines []string) {
		blocks = append(blocks, srtBlock(len(blocks)+1, start, end, lines))
	}

	for _, seg := range segments {
		windows := HighlightWindows(seg)
		if len(windows) == 0 {
			add(seg.Start, seg.End, r.Output.Lines(seg, seg.Text))
			continue
		}

		if windows[0].Start > seg.Start {
			lead := seg
			if r.Output != OutputPlain {
				lead.Pinyin = highlightPinyin(seg, -1)
			}
			add(seg.Start, windows[0].Start, r.Output.Lines(lead, seg.Text))
		}
		for _, w := range windows {
			line := highlightWord(seg, w.Index)
			active := seg
			if r.Output != OutputPlain {
				active.Pinyin = highlightPinyin(seg, w.Index)
			}
			add(w.Start, w.End, r.Output.Lines(active, line))
		}
	}
	return joinSRT(blocks), nil
}

func (r *LRCRenderer) Render(segments []Segment) (string, error) {
	if err := validate(segments); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, seg := range segments {
		lines := r.Output.Lines(seg, seg.Text)
		sb.WriteString(fmt.Sprintf("[%s]%s\n",
			formatLRCTime(seg.Start),
			strings.Join(lines, " / ")))
	}
	return sb.String(), nil
}

func (r *VTTRenderer) Render(segments []Segment) (string, error) {
	if err := validate(segments); err != nil {
		return "", err
	}

	var sb strings.Builder

	// VTT header
	sb.WriteString("WEBVTT\n\n")

	for i, seg := range segments {
		// optional cue identifier
		sb.WriteString(fmt.Sprintf("%d\n", i+1))

		// timestamps: 00:00:00.000 --> 00:00:00.000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatVTTTime(seg.Start),
			formatVTTTime(seg.End)))

		sb.WriteString(strings.Join(r.Output.Lines(seg, seg.Text), "\n"))
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

func (r *ASSRenderer) Render(segments []Segment) (string, error) {
	if err := validate(segments); err != nil {
		return "", err
	}

	var sb strings.Builder

	// script info section
	sb.WriteString("[Script Info]\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", r.Title))
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	// v4+ styles section; SecondaryColour is the unsung karaoke fill
	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf("Style: Default,%s,%d,&H0000FF00,&H00FFFFFF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		r.FontName, r.FontSize))

	// events section
	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, seg := range segments {
		lines := r.Output.Lines(seg, karaokeTags(seg))
		sb.WriteString(fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(seg.Start),
			formatASSTime(seg.End),
			escapeASSText(strings.Join(lines, "\n"))))
	}

	return sb.String(), nil
}

func srtBlock(index int, start, end time.Duration, lines []string) string {
	return fmt.Sprintf("%d\n%s --> %s\n%s",
		index,
		formatSRTTime(start),
		formatSRTTime(end),
		strings.Join(lines, "\n"))
}

// blocks separated by one blank line, document ends with a single newline
func joinSRT(blocks []string) string {
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// highlightWord renders the segment line with word k wrapped in a font tag.
// Spacing between words follows the source line when the words can be found
// in it in order.
func highlightWord(seg Segment, k int) string {
	open := fmt.Sprintf(`<font color="%s">`, HighlightColor)
	const closeTag = "</font>"

	if spans, ok := wordSpans(seg.Text, seg.Words); ok {
		span := spans[k]
		return seg.Text[:span[0]] + open + seg.Text[span[0]:span[1]] + closeTag + seg.Text[span[1]:]
	}

	sep := ""
	if strings.ContainsAny(seg.Text, " \t") {
		sep = " "
	}
	parts := make([]string, len(seg.Words))
	for i, w := range seg.Words {
		parts[i] = w.Text
		if i == k {
			parts[i] = open + w.Text + closeTag
		}
	}
	return strings.Join(parts, sep)
}

// highlightPinyin rebuilds the pinyin line from the per-character readings
// with the syllables of word k wrapped in a font tag, or none when k is
// negative. Characters are located
// in the line so a repeated character is only lit where it is sung; when the
// readings do not line up with the text, every reading of a character in the
// word is lit. The plain pinyin is returned when there are no readings.
func highlightPinyin(seg Segment, k int) string {
	if len(seg.Syllables) == 0 {
		return seg.Pinyin
	}

	active := make([]bool, len(seg.Syllables))
	if k < 0 || k >= len(seg.Words) {
		return joinSyllables(seg.Syllables, active)
	}
	word := seg.Words[k].Text
	spans, ok := wordSpans(seg.Text, seg.Words)
	if ok {
		cursor := 0
		for i, syl := range seg.Syllables {
			idx := strings.Index(seg.Text[cursor:], syl.Char)
			if syl.Char == "" || idx < 0 {
				ok = false
				break
			}
			start := cursor + idx
			active[i] = start >= spans[k][0] && start < spans[k][1]
			cursor = start + len(syl.Char)
		}
	}
	if !ok {
		for i, syl := range seg.Syllables {
			active[i] = syl.Char != "" && strings.Contains(word, syl.Char)
		}
	}

	return joinSyllables(seg.Syllables, active)
}

func joinSyllables(syllables []Syllable, active []bool) string {
	open := fmt.Sprintf(`<font color="%s">`, HighlightColor)
	const closeTag = "</font>"

	parts := make([]string, 0, len(syllables))
	for i, syl := range syllables {
		if syl.Pinyin == "" {
			continue
		}
		if active[i] {
			parts = append(parts, open+syl.Pinyin+closeTag)
		} else {
			parts = append(parts, syl.Pinyin)
		}
	}
	return strings.Join(parts, " ")
}

// byte offsets of each word in text, matched left to right
func wordSpans(text string, words []Word) ([][2]int, bool) {
	spans := make([][2]int, len(words))
	cursor := 0
	for i, w := range words {
		idx := strings.Index(text[cursor:], w.Text)
		if idx < 0 {
			return nil, false
		}
		start := cursor + idx
		spans[i] = [2]int{start, start + len(w.Text)}
		cursor = spans[i][1]
	}
	return spans, true
}

// karaokeTags prefixes each word with its highlight duration in centiseconds;
// segments without word timing are returned unchanged
func karaokeTags(seg Segment) string {
	windows := HighlightWindows(seg)
	if len(windows) == 0 {
		return seg.Text
	}

	var sb strings.Builder
	if lead := windows[0].Start - seg.Start; lead > 0 {
		sb.WriteString(fmt.Sprintf("{\\k%d}", lead.Milliseconds()/10))
	}
	for _, w := range windows {
		sb.WriteString(fmt.Sprintf("{\\k%d}%s", (w.End-w.Start).Milliseconds()/10, seg.Words[w.Index].Text))
	}
	return sb.String()
}

func formatSRTTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

func formatVTTTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

func formatASSTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	centis := (int(d.Milliseconds()) % 1000) / 10

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

// mm:ss.xx, minutes are not wrapped into hours
func formatLRCTime(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	centis := (int(d.Milliseconds()) % 1000) / 10

	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, centis)
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\n", "\\N")
	return text
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".karaoke.srt") {
		return FormatKaraoke
	}
	switch filepath.Ext(lower) {
	case ".srt":
		return FormatSRT
	case ".lrc":
		return FormatLRC
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	default:
		return FormatSRT
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatSRT, FormatKaraoke:
		return ".srt"
	case FormatLRC:
		return ".lrc"
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}

// OutputPath derives the output name next to base (the input with its
// extension removed): song.srt, song.karaoke.srt, song.enhanced.srt,
// song.emoji.srt, song.learn.srt and so on
func OutputPath(base string, format Format, output OutputFormat) string {
	var variant string
	switch output {
	case OutputPlain:
	case OutputFull:
		variant = ".enhanced"
	case OutputEmoji:
		variant = ".emoji"
	case OutputLearn:
		variant = ".learn"
	}
	if format == FormatKaraoke {
		variant += ".karaoke"
	}
	return base + variant + GetExtensionForFormat(format)
}

// TrimSubtitleExt strips the extension and any known variant suffix, so
// song.enhanced.srt and song.mp3 both yield song
func TrimSubtitleExt(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, suffix := range []string{".karaoke", ".enhanced", ".emoji", ".learn"} {
		base = strings.TrimSuffix(base, suffix)
	}
	return base
}
