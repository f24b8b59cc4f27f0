package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseSRT(t *testing.T) {
	content := "\ufeff1\r\n00:00:01,000 --> 00:00:04,000\r\n你好\r\n\r\n" +
		"2\n00:00:05,500 --> 00:00:08,200\n世界\nshì jiè\n(world)\n\n" +
		"3\n00:00:10,000 --> 00:00:12,500\n<i>再见</i>\n"

	segs, err := ParseSRT(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}

	if segs[0].Start != time.Second || segs[0].End != 4*time.Second {
		t.Errorf("segment 0: got [%v, %v]", segs[0].Start, segs[0].End)
	}
	if segs[0].Text != "你好" {
		t.Errorf("segment 0: expected 你好, got %q", segs[0].Text)
	}
	if segs[1].Text != "世界\nshì jiè\n(world)" {
		t.Errorf("segment 1: got %q", segs[1].Text)
	}
	if segs[2].Text != "再见" {
		t.Errorf("segment 2: markup not stripped, got %q", segs[2].Text)
	}
}

func TestParseSRTStartingAtZero(t *testing.T) {
	content := "1\n00:00:00,000 --> 00:00:01,000\n开始\n"
	segs, err := ParseSRT(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(segs) != 1 || segs[0].Start != 0 || segs[0].End != time.Second {
		t.Fatalf("unexpected segments: %+v", segs)
	}
}

func TestParseSRTErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantNo  bool
	}{
		{name: "empty", content: "", wantNo: true},
		{name: "blank lines", content: "\n\n\n", wantNo: true},
		{name: "garbage", content: "1\nnot a timestamp\ntext\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSRT(strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrNoSegments); got != tt.wantNo {
				t.Errorf("errors.Is(ErrNoSegments) = %v, want %v (%v)", got, tt.wantNo, err)
			}
		})
	}
}

func TestParseSRTCollapsesKaraoke(t *testing.T) {
	seg := Segment{
		Text:  "你好",
		Start: 500 * time.Millisecond,
		End:   2 * time.Second,
		Words: []Word{
			{Text: "你", Start: time.Second, End: 1400 * time.Millisecond},
			{Text: "好", Start: 1400 * time.Millisecond, End: 2 * time.Second},
		},
	}
	doc, err := (&KaraokeRenderer{}).Render([]Segment{seg})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	segs, err := ParseSRT(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected karaoke entries to collapse into 1 segment, got %d", len(segs))
	}

	got := segs[0]
	if got.Text != "你好" || got.Start != seg.Start || got.End != seg.End {
		t.Errorf("unexpected segment: %+v", got)
	}
	if len(got.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(got.Words))
	}
	for i, w := range got.Words {
		if w.Text != seg.Words[i].Text || w.Start != seg.Words[i].Start || w.End != seg.Words[i].End {
			t.Errorf("word %d: got %+v, want %+v", i, w, seg.Words[i])
		}
	}
}

func TestParseSRTKeepsRepeatedKaraokeLines(t *testing.T) {
	chorus := func(start time.Duration) Segment {
		return Segment{
			Text:  "你好",
			Start: start,
			End:   start + time.Second,
			Words: []Word{
				{Text: "你", Start: start, End: start + 500*time.Millisecond},
				{Text: "好", Start: start + 500*time.Millisecond, End: start + time.Second},
			},
		}
	}
	doc, err := (&KaraokeRenderer{}).Render([]Segment{chorus(time.Second), chorus(2 * time.Second)})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	segs, err := ParseSRT(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 chorus lines, got %d: %+v", len(segs), segs)
	}
	for i, got := range segs {
		want := chorus(time.Duration(i+1) * time.Second)
		if got.Text != want.Text || got.Start != want.Start || got.End != want.End {
			t.Errorf("line %d: got %+v, want %+v", i, got, want)
		}
		if len(got.Words) != 2 || got.Words[0].Text != "你" || got.Words[1].Text != "好" {
			t.Errorf("line %d words = %+v", i, got.Words)
		}
	}

	again, err := (&KaraokeRenderer{}).Render(segs)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if again != doc {
		t.Errorf("re-rendered karaoke differs:\n%s\nwant:\n%s", again, doc)
	}
}

func TestParseSRTCollapsesAnnotatedKaraoke(t *testing.T) {
	seg := repeatedCharLine()
	doc, err := (&KaraokeRenderer{Output: OutputLearn}).Render([]Segment{seg})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	segs, err := ParseSRT(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segs), segs)
	}
	if len(segs[0].Words) != 3 {
		t.Fatalf("expected 3 words, got %+v", segs[0].Words)
	}
	for i, w := range segs[0].Words {
		if w.Text != seg.Words[i].Text {
			t.Errorf("word %d = %q, want the Chinese highlight %q", i, w.Text, seg.Words[i].Text)
		}
	}
}

func TestParseLRC(t *testing.T) {
	content := `[ar:Someone]
[ti:Song]
[00:01.00]你好
[00:03.50][00:10.250]世界
[00:05.00]
`
	segs, err := ParseLRC(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseLRC failed: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}

	want := []struct {
		text       string
		start, end time.Duration
	}{
		{"你好", time.Second, 3500 * time.Millisecond},
		{"世界", 3500 * time.Millisecond, 10250 * time.Millisecond},
		{"世界", 10250 * time.Millisecond, 10250*time.Millisecond + DefaultMaxDuration},
	}
	for i, w := range want {
		if segs[i].Text != w.text || segs[i].Start != w.start || segs[i].End != w.end {
			t.Errorf("segment %d: got %q [%v, %v], want %q [%v, %v]",
				i, segs[i].Text, segs[i].Start, segs[i].End, w.text, w.start, w.end)
		}
	}
}

func TestParseVTT(t *testing.T) {
	content := `WEBVTT

NOTE this is a comment
spanning lines

intro
00:00:01.000 --> 00:00:04.000
你好

00:05.500 --> 00:08.200
<c.yellow>世界</c>
`
	segs, err := ParseVTT(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseVTT failed: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Text != "你好" || segs[0].Start != time.Second {
		t.Errorf("segment 0: %+v", segs[0])
	}
	if segs[1].Text != "世界" || segs[1].Start != 5500*time.Millisecond || segs[1].End != 8200*time.Millisecond {
		t.Errorf("segment 1: %+v", segs[1])
	}
}

func TestOpenByExtension(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string]string{
		"a.srt": "1\n00:00:01,000 --> 00:00:02,000\n你好\n",
		"b.lrc": "[00:01.00]你好\n",
		"c.vtt": "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n你好\n",
	}
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}
		segs, err := Open(path)
		if err != nil {
			t.Errorf("%s: Open failed: %v", name, err)
			continue
		}
		if len(segs) != 1 || segs[0].Text != "你好" {
			t.Errorf("%s: unexpected segments %+v", name, segs)
		}
	}

	unsupported := filepath.Join(tmpDir, "d.txt")
	if err := os.WriteFile(unsupported, []byte("hi"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := Open(unsupported); err == nil {
		t.Error("expected error for unsupported extension")
	}

	if _, err := Open(filepath.Join(tmpDir, "missing.srt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSRTRoundTrip(t *testing.T) {
	segs := []Segment{
		{Text: "你好", Start: 0, End: 2 * time.Second},
		{Text: "世界", Start: 2 * time.Second, End: 4500 * time.Millisecond},
	}
	doc, err := (&SRTRenderer{}).Render(segs)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	parsed, err := ParseSRT(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(parsed) != len(segs) {
		t.Fatalf("expected %d segments, got %d", len(segs), len(parsed))
	}
	for i := range segs {
		if parsed[i].Text != segs[i].Text || parsed[i].Start != segs[i].Start || parsed[i].End != segs[i].End {
			t.Errorf("segment %d: got %+v, want %+v", i, parsed[i], segs[i])
		}
	}
}
