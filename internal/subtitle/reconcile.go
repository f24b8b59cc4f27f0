package subtitle

import (
	"sort"
	"strings"
	"time"
)

const (
	DefaultMinDuration = 300 * time.Millisecond
	DefaultMaxDuration = 7 * time.Second
)

// Reconciler turns raw ASR segments into a sorted, non-overlapping timeline
type Reconciler struct {
	MinDuration time.Duration
	MaxDuration time.Duration
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		MinDuration: DefaultMinDuration,
		MaxDuration: DefaultMaxDuration,
	}
}

// Reconcile never mutates its input. Overlapping entries are truncated at the
// next entry's start; entries with empty text or no duration are dropped.
func (r *Reconciler) Reconcile(raw []Segment) []Segment {
	segments := make([]Segment, 0, len(raw))
	for _, seg := range raw {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		if seg.Start < 0 {
			seg.Start = 0
		}
		if seg.End <= seg.Start {
			continue
		}
		seg.Words = append([]Word(nil), seg.Words...)
		segments = append(segments, seg)
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	// truncate overlaps; an entry sharing its start with the next one has
	// nothing left to show
	kept := segments[:0]
	for i := range segments {
		seg := segments[i]
		if i+1 < len(segments) && seg.End > segments[i+1].Start {
			seg.End = segments[i+1].Start
		}
		if seg.End <= seg.Start {
			continue
		}
		kept = append(kept, seg)
	}
	segments = kept

	for i := range segments {
		seg := &segments[i]

		if r.MaxDuration > 0 && seg.Duration() > r.MaxDuration {
			seg.End = seg.Start + r.MaxDuration
		}
		if r.MinDuration > 0 && seg.Duration() < r.MinDuration {
			end := seg.Start + r.MinDuration
			if i+1 < len(segments) && end > segments[i+1].Start {
				end = segments[i+1].Start
			}
			if end > seg.End {
				seg.End = end
			}
		}

		seg.Words = clampWords(seg.Words, seg.Start, seg.End)
	}

	return segments
}

// sorts words by start and clamps them into [start, end); words that fall
// entirely outside the bounds are dropped, including a word starting exactly
// at end
func clampWords(words []Word, start, end time.Duration) []Word {
	if len(words) == 0 {
		return nil
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})

	out := words[:0]
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" {
			continue
		}
		if w.End <= start || w.Start >= end {
			continue
		}
		if w.Start < start {
			w.Start = start
		}
		if w.End > end {
			w.End = end
		}
		if w.End <= w.Start {
			continue
		}
		out = append(out, w)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// interval during which one word is highlighted
type Window struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// HighlightWindows keeps each word lit until the next word begins and the
// last word until the segment ends, so at most one word is active at any
// instant. Words sharing a start get no window of their own.
func HighlightWindows(seg Segment) []Window {
	if len(seg.Words) == 0 {
		return nil
	}

	windows := make([]Window, 0, len(seg.Words))
	for k, w := range seg.Words {
		end := seg.End
		if k+1 < len(seg.Words) {
			end = seg.Words[k+1].Start
		}
		if end > seg.End {
			end = seg.End
		}
		if end <= w.Start {
			continue
		}
		windows = append(windows, Window{Index: k, Start: w.Start, End: end})
	}
	return windows
}
