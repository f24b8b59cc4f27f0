package subtitle

import (
	"testing"
	"time"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func TestReconcileTruncatesOverlap(t *testing.T) {
	raw := []Segment{
		{Text: "世界", Start: ms(2000), End: ms(4000)},
		{Text: "你好", Start: 0, End: ms(2500)},
	}

	got := NewReconciler().Reconcile(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	if got[0].Text != "你好" || got[0].Start != 0 || got[0].End != ms(2000) {
		t.Errorf("segment 0: %+v", got[0])
	}
	if got[1].Text != "世界" || got[1].Start != ms(2000) || got[1].End != ms(4000) {
		t.Errorf("segment 1: %+v", got[1])
	}

	// input untouched
	if raw[1].End != ms(2500) {
		t.Errorf("input was mutated: %+v", raw[1])
	}
}

func TestReconcileDropsAndClamps(t *testing.T) {
	tests := []struct {
		name string
		raw  []Segment
		want []Segment
	}{
		{
			name: "empty text dropped",
			raw: []Segment{
				{Text: "  ", Start: 0, End: ms(1000)},
				{Text: " 你好 ", Start: ms(1000), End: ms(2000)},
			},
			want: []Segment{{Text: "你好", Start: ms(1000), End: ms(2000)}},
		},
		{
			name: "inverted timing dropped",
			raw: []Segment{
				{Text: "坏", Start: ms(2000), End: ms(1000)},
				{Text: "好", Start: ms(3000), End: ms(4000)},
			},
			want: []Segment{{Text: "好", Start: ms(3000), End: ms(4000)}},
		},
		{
			name: "negative start clamped",
			raw:  []Segment{{Text: "前", Start: ms(-500), End: ms(1000)}},
			want: []Segment{{Text: "前", Start: 0, End: ms(1000)}},
		},
		{
			name: "shared start leaves nothing for the first",
			raw: []Segment{
				{Text: "一", Start: ms(1000), End: ms(3000)},
				{Text: "二", Start: ms(1000), End: ms(2000)},
			},
			want: []Segment{{Text: "二", Start: ms(1000), End: ms(2000)}},
		},
		{
			name: "max duration",
			raw:  []Segment{{Text: "长", Start: 0, End: ms(20000)}},
			want: []Segment{{Text: "长", Start: 0, End: DefaultMaxDuration}},
		},
		{
			name: "min duration extended",
			raw:  []Segment{{Text: "短", Start: 0, End: ms(100)}},
			want: []Segment{{Text: "短", Start: 0, End: DefaultMinDuration}},
		},
		{
			name: "min duration capped by next start",
			raw: []Segment{
				{Text: "短", Start: 0, End: ms(100)},
				{Text: "下", Start: ms(200), End: ms(1000)},
			},
			want: []Segment{
				{Text: "短", Start: 0, End: ms(200)},
				{Text: "下", Start: ms(200), End: ms(1000)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewReconciler().Reconcile(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d segments, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i].Text != tt.want[i].Text || got[i].Start != tt.want[i].Start || got[i].End != tt.want[i].End {
					t.Errorf("segment %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReconcileNoOverlapProperty(t *testing.T) {
	raw := []Segment{
		{Text: "a", Start: ms(500), End: ms(9000)},
		{Text: "b", Start: ms(100), End: ms(600)},
		{Text: "c", Start: ms(700), End: ms(800)},
		{Text: "d", Start: ms(750), End: ms(20000)},
		{Text: "e", Start: ms(30000), End: ms(30010)},
	}

	got := NewReconciler().Reconcile(raw)
	for i, seg := range got {
		if seg.Start < 0 || seg.Start >= seg.End {
			t.Errorf("segment %d has invalid timing: %+v", i, seg)
		}
		if i > 0 && got[i-1].End > seg.Start {
			t.Errorf("segment %d overlaps previous: %+v / %+v", i, got[i-1], seg)
		}
	}
	if err := validate(got); err != nil {
		t.Errorf("reconciled output failed validation: %v", err)
	}
}

func TestReconcileClampsWords(t *testing.T) {
	raw := []Segment{{
		Text:  "你好世界",
		Start: ms(1000),
		End:   ms(3000),
		Words: []Word{
			{Text: "世界", Start: ms(2000), End: ms(3500)},
			{Text: "你好", Start: ms(800), End: ms(2000)},
			{Text: "尾", Start: ms(3000), End: ms(3200)},
			{Text: " ", Start: ms(1500), End: ms(1600)},
		},
	}}

	got := NewReconciler().Reconcile(raw)
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got))
	}

	words := got[0].Words
	want := []Word{
		{Text: "你好", Start: ms(1000), End: ms(2000)},
		{Text: "世界", Start: ms(2000), End: ms(3000)},
	}
	if len(words) != len(want) {
		t.Fatalf("expected %d words, got %d: %+v", len(want), len(words), words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d: got %+v, want %+v", i, words[i], want[i])
		}
	}

	if raw[0].Words[0].Text != "世界" {
		t.Error("input words were reordered")
	}
}

func TestHighlightWindows(t *testing.T) {
	seg := Segment{
		Text:  "你好",
		Start: ms(1000),
		End:   ms(2000),
		Words: []Word{
			{Text: "你", Start: ms(1000), End: ms(1200)},
			{Text: "好", Start: ms(1400), End: ms(1800)},
		},
	}

	windows := HighlightWindows(seg)
	want := []Window{
		{Index: 0, Start: ms(1000), End: ms(1400)},
		{Index: 1, Start: ms(1400), End: ms(2000)},
	}
	if len(windows) != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), len(windows))
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Errorf("window %d: got %+v, want %+v", i, windows[i], want[i])
		}
	}

	// exactly one word active at any instant inside the words' span
	for at := ms(1000); at < ms(2000); at += ms(10) {
		active := 0
		for _, w := range windows {
			if at >= w.Start && at < w.End {
				active++
			}
		}
		if active != 1 {
			t.Fatalf("at %v: %d active words", at, active)
		}
	}

	if HighlightWindows(Segment{Text: "x", End: ms(100)}) != nil {
		t.Error("expected no windows without words")
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(1.4); got != ms(1400) {
		t.Errorf("Seconds(1.4) = %v", got)
	}
	if got := formatSRTTime(Seconds(1.4)); got != "00:00:01,400" {
		t.Errorf("formatted = %s", got)
	}
}
