package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	srtTimestampRegex = regexp.MustCompile(
		`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`,
	)
	vttTimestampRegex = regexp.MustCompile(
		`(?:(\d{2}):)?(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(?:(\d{2}):)?(\d{2}):(\d{2})\.(\d{3})`,
	)
	lrcTimeTagRegex = regexp.MustCompile(`^\[(\d{1,3}):(\d{2})(?:[.:](\d{1,3}))?\]`)
	highlightRegex  = regexp.MustCompile(`<font[^>]*>([^<]*)</font>`)
	markupRegex     = regexp.MustCompile(`<[^>]+>`)
)

// Open parses an SRT, LRC or VTT file into segments
func Open(path string) ([]Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var segments []Segment
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".srt":
		segments, err = ParseSRT(file)
	case ".lrc":
		segments, err = ParseLRC(file)
	case ".vtt":
		segments, err = ParseVTT(file)
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return segments, nil
}

// StripMarkup removes inline tags such as karaoke font highlights
func StripMarkup(text string) string {
	return strings.TrimSpace(markupRegex.ReplaceAllString(text, ""))
}

type rawEntry struct {
	start time.Duration
	end   time.Duration
	lines []string
}

func (e rawEntry) text() string {
	return strings.Join(e.lines, "\n")
}

// ParseSRT reads SubRip entries. Consecutive word-highlighted entries of the
// same line, as written by the karaoke renderer, are folded back into one
// segment carrying word timings.
func ParseSRT(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries []rawEntry
		current *rawEntry
		hasTime bool
		lineNum int
	)

	flush := func() {
		if current != nil && hasTime && len(current.lines) > 0 {
			entries = append(entries, *current)
		}
		current = nil
		hasTime = false
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			if _, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
				current = &rawEntry{}
				continue
			}
			// tolerate a missing index line
			current = &rawEntry{}
		}

		if !hasTime {
			matches := srtTimestampRegex.FindStringSubmatch(line)
			if len(matches) != 9 {
				return nil, fmt.Errorf("expected timestamp at line %d, got %q", lineNum, line)
			}
			start, err := parseClock(matches[1], matches[2], matches[3], matches[4])
			if err != nil {
				return nil, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			end, err := parseClock(matches[5], matches[6], matches[7], matches[8])
			if err != nil {
				return nil, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			current.start, current.end = start, end
			hasTime = true
			continue
		}

		current.lines = append(current.lines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoSegments
	}

	return collapseKaraoke(entries), nil
}

// collapseKaraoke merges runs of entries that show the same line with one
// highlighted word each, rebuilding word timings from the entry windows. A
// run ends when the highlight stops moving right, so a line sung twice back
// to back stays two segments.
func collapseKaraoke(entries []rawEntry) []Segment {
	var segments []Segment
	for i := 0; i < len(entries); i++ {
		e := entries[i]
		text := StripMarkup(e.text())
		seg := Segment{Text: text, Start: e.start, End: e.end}

		word, pos, ok := highlighted(e.text())
		if !ok && i+1 < len(entries) {
			// a leading unhighlighted entry for the same line
			next := entries[i+1]
			if w, p, hl := highlighted(next.text()); hl && StripMarkup(next.text()) == text && next.start == e.end {
				i++
				e, word, pos, ok = next, w, p, true
				seg.End = e.end
			}
		}

		if ok {
			seg.Words = []Word{{Text: word, Start: e.start, End: e.end}}
			for i+1 < len(entries) {
				next := entries[i+1]
				nextWord, nextPos, hl := highlighted(next.text())
				if !hl || nextPos <= pos || StripMarkup(next.text()) != text || next.start != seg.End {
					break
				}
				seg.Words = append(seg.Words, Word{Text: nextWord, Start: next.start, End: next.end})
				seg.End = next.end
				pos = nextPos
				i++
			}
		}

		segments = append(segments, seg)
	}
	return segments
}

// highlighted returns the highlighted word and its byte offset in the line
// with markup removed. Annotated entries also light a pinyin syllable, so a
// highlight holding Chinese characters wins over the first one.
func highlighted(text string) (string, int, bool) {
	matches := highlightRegex.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return "", 0, false
	}
	m := matches[0]
	for _, c := range matches {
		if containsHan(text[c[2]:c[3]]) {
			m = c
			break
		}
	}
	word := text[m[2]:m[3]]
	if strings.TrimSpace(word) == "" {
		return "", 0, false
	}
	pos := len(StripMarkup(text[:m[0]])) + len(word) - len(strings.TrimLeft(word, " \t"))
	return strings.TrimSpace(word), pos, true
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// ParseLRC reads [mm:ss.xx] lines. LRC has no end times, so each line ends
// where the next begins and the last line lasts DefaultMaxDuration.
func ParseLRC(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)
	var segments []Segment

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		var stamps []time.Duration
		for {
			m := lrcTimeTagRegex.FindStringSubmatch(line)
			if m == nil {
				break
			}
			ts, err := parseLRCTag(m[1], m[2], m[3])
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp at line %d: %w", lineNum, err)
			}
			stamps = append(stamps, ts)
			line = line[len(m[0]):]
		}

		// metadata tags like [ar:...] and untimed lines are skipped
		text := StripMarkup(line)
		if len(stamps) == 0 || text == "" {
			continue
		}
		for _, ts := range stamps {
			segments = append(segments, Segment{Text: text, Start: ts})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading LRC: %w", err)
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	for i := range segments {
		if i+1 < len(segments) {
			segments[i].End = segments[i+1].Start
		} else {
			segments[i].End = segments[i].Start + DefaultMaxDuration
		}
	}
	return segments, nil
}

// ParseVTT reads WebVTT cues, skipping NOTE and STYLE blocks
func ParseVTT(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)

	var (
		segments []Segment
		current  *Segment
		lines    []string
		skipping bool
		lineNum  int
	)

	flush := func() {
		if current != nil && len(lines) > 0 {
			current.Text = StripMarkup(strings.Join(lines, "\n"))
			segments = append(segments, *current)
		}
		current = nil
		lines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			skipping = false
			flush()
			continue
		}
		if skipping || strings.HasPrefix(trimmed, "WEBVTT") {
			continue
		}
		if strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "STYLE") {
			skipping = true
			continue
		}

		if m := vttTimestampRegex.FindStringSubmatch(line); m != nil {
			flush()
			start, err := parseClock(m[1], m[2], m[3], m[4])
			if err != nil {
				return nil, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			end, err := parseClock(m[5], m[6], m[7], m[8])
			if err != nil {
				return nil, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			current = &Segment{Start: start, End: end}
			continue
		}

		// cue identifiers precede the timestamp line
		if current != nil {
			lines = append(lines, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading VTT: %w", err)
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	return segments, nil
}

func parseClock(hours, minutes, seconds, millis string) (time.Duration, error) {
	var h int
	if hours != "" {
		var err error
		if h, err = strconv.Atoi(hours); err != nil {
			return 0, err
		}
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(millis)
	if err != nil {
		return 0, err
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// fraction may be centiseconds (.xx) or milliseconds (.xxx)
func parseLRCTag(minutes, seconds, fraction string) (time.Duration, error) {
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}

	var frac time.Duration
	if fraction != "" {
		f, err := strconv.Atoi(fraction)
		if err != nil {
			return 0, err
		}
		switch len(fraction) {
		case 1:
			frac = time.Duration(f) * 100 * time.Millisecond
		case 2:
			frac = time.Duration(f) * 10 * time.Millisecond
		default:
			frac = time.Duration(f) * time.Millisecond
		}
	}

	return time.Duration(m)*time.Minute + time.Duration(s)*time.Second + frac, nil
}
