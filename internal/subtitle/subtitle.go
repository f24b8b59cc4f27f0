package subtitle

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// timed sub-word unit within a segment
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// reading of one character of an annotated line
type Syllable struct {
	Char   string
	Pinyin string
}

// one timed lyric line, optionally annotated
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
	Words []Word

	// populated by the enhancer
	Pinyin      string
	Translation string
	Gloss       string
	Tip         string
	// per-character readings in line order, used to highlight the sung syllable
	Syllables []Syllable
}

func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Annotated reports whether pinyin or translation has been attached
func (s Segment) Annotated() bool {
	return s.Pinyin != "" || s.Translation != ""
}

// file syntax produced by a renderer
type Format string

const (
	FormatSRT     Format = "srt"
	FormatKaraoke Format = "karaoke"
	FormatLRC     Format = "lrc"
	FormatVTT     Format = "vtt"
	FormatASS     Format = "ass"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSRT, FormatKaraoke, FormatLRC, FormatVTT, FormatASS:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use srt, karaoke, lrc, vtt, or ass", s)
	}
}

// annotated text layout of each entry
type OutputFormat string

const (
	// OutputPlain is the unannotated transcription layout
	OutputPlain OutputFormat = ""
	OutputFull  OutputFormat = "full"
	OutputEmoji OutputFormat = "emoji"
	OutputLearn OutputFormat = "learn"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputFull, OutputEmoji, OutputLearn:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: use full, emoji, or learn", s)
	}
}

func (f OutputFormat) String() string {
	if f == OutputPlain {
		return "plain"
	}
	return string(f)
}

// Lines returns the text block for one entry. text is the Chinese line as it
// should appear, which karaoke rendering passes with highlight markup.
// Empty lines are omitted.
func (f OutputFormat) Lines(seg Segment, text string) []string {
	var lines []string
	switch f {
	case OutputPlain:
		lines = []string{text}
	case OutputFull, OutputEmoji:
		lines = []string{text, seg.Pinyin, parenthesize(seg.Translation)}
	case OutputLearn:
		tip := seg.Tip
		if tip == "" {
			tip = parenthesize(seg.Gloss)
		}
		if tip == "" {
			tip = parenthesize(seg.Translation)
		}
		lines = []string{seg.Pinyin, text, tip}
	default:
		panic(fmt.Sprintf("subtitle: unknown output format %q", string(f)))
	}

	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func parenthesize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

// renderer rejection of a corrupt segment
type InvalidSegmentError struct {
	Index  int
	Start  time.Duration
	End    time.Duration
	Reason string
}

func (e *InvalidSegmentError) Error() string {
	return fmt.Sprintf(
		"invalid segment %d [%s, %s]: %s",
		e.Index, e.Start, e.End, e.Reason,
	)
}

// ErrNoSegments is returned when a subtitle document has content but no parseable entries
var ErrNoSegments = errors.New("no subtitle entries found")

// Seconds converts float seconds from an ASR backend to a Duration, rounded
// to the nanosecond so values like 1.4 do not truncate to 1.399999999.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// validates segments before they reach a document
func validate(segments []Segment) error {
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			return &InvalidSegmentError{Index: i, Start: seg.Start, End: seg.End, Reason: "empty text"}
		}
		if seg.Start < 0 {
			return &InvalidSegmentError{Index: i, Start: seg.Start, End: seg.End, Reason: "negative start"}
		}
		if seg.Start >= seg.End {
			return &InvalidSegmentError{Index: i, Start: seg.Start, End: seg.End, Reason: "start is not before end"}
		}
	}
	return nil
}
