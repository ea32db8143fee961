package chunker

import (
	"strings"
	"testing"

	"helpdesk-kb-platform/models"
)

func TestSplitSeparatorFreeWindows(t *testing.T) {
	c, err := New(1000, 250, "\n\n")
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}

	text := strings.Repeat("a", 2500)
	chunks := c.Split(text)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantStarts := []int{0, 750, 1500}
	for i, ch := range chunks {
		if ch.Start != wantStarts[i] {
			t.Fatalf("chunk %d start = %d, want %d", i, ch.Start, wantStarts[i])
		}
	}
	if chunks[2].End != 2500 {
		t.Fatalf("final chunk end = %d, want 2500", chunks[2].End)
	}
}

func TestSplitDeterministic(t *testing.T) {
	c, err := New(100, 20, "\n\n")
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}

	text := strings.Repeat("printer offline. check the cable.\n\n", 40)
	first := c.Split(text)
	second := c.Split(text)

	if len(first) != len(second) {
		t.Fatalf("chunk count differs across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs across runs", i)
		}
	}
}

func TestSplitOverlapInvariant(t *testing.T) {
	size, overlap := 200, 50
	c, err := New(size, overlap, "")
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}

	text := strings.Repeat("0123456789", 100)
	runes := []rune(text)
	chunks := c.Split(text)

	for i := 0; i+1 < len(chunks); i++ {
		if chunks[i+1].Start != chunks[i].Start+size-overlap {
			t.Fatalf("chunk %d start stride broken: %d -> %d", i, chunks[i].Start, chunks[i+1].Start)
		}
		// Trailing overlap runes of window i equal the leading runes of window i+1.
		tail := string(runes[chunks[i].Start+size-overlap : chunks[i].Start+size])
		head := string(runes[chunks[i+1].Start : chunks[i+1].Start+overlap])
		if tail != head {
			t.Fatalf("overlap mismatch between chunks %d and %d", i, i+1)
		}
	}
}

func TestSplitPrefersSeparatorBoundary(t *testing.T) {
	c, err := New(50, 30, "\n\n")
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}

	// Separator at rune 21, past the stride point (size-overlap = 20), so
	// the cut is honored without opening a gap before the next window.
	text := "first paragraph here.\n\nsecond paragraph follows and keeps going well past the window"
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "first paragraph here." {
		t.Fatalf("first chunk not cut at separator: %q", chunks[0].Text)
	}
	assertFullCoverage(t, text, chunks)
}

func TestSplitEarlySeparatorKeepsCoverage(t *testing.T) {
	c, err := New(50, 10, "\n\n")
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}

	// Separator at rune 3, before the stride point: honoring it would leave
	// runes between the cut and the next window start in no chunk at all.
	text := "abc\n\n" + strings.Repeat("x", 100)
	chunks := c.Split(text)

	assertFullCoverage(t, text, chunks)
	for _, ch := range chunks {
		if ch.End-ch.Start < 50 && ch.End != len([]rune(text)) {
			t.Fatalf("non-final chunk [%d:%d] cut before the stride point", ch.Start, ch.End)
		}
	}
}

// assertFullCoverage fails if any rune of text is outside every chunk window.
func assertFullCoverage(t *testing.T, text string, chunks []Chunk) {
	t.Helper()
	covered := make([]bool, len([]rune(text)))
	for _, ch := range chunks {
		for i := ch.Start; i < ch.End; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("rune %d of %d is in no chunk", i, len(covered))
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := New(1000, 250, "\n\n")
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}
	if chunks := c.Split(""); len(chunks) != 0 {
		t.Fatalf("empty input should yield no chunks, got %d", len(chunks))
	}
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	c, err := New(1000, 250, "\n\n")
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}
	chunks := c.Split("short text")
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short text" {
		t.Fatalf("unexpected chunk text: %q", chunks[0].Text)
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		size, overlap int
	}{
		{0, 0},
		{-5, 0},
		{100, -1},
		{100, 100},
		{100, 150},
	}
	for _, tc := range cases {
		_, err := New(tc.size, tc.overlap, "\n\n")
		if err == nil {
			t.Fatalf("size=%d overlap=%d should be rejected", tc.size, tc.overlap)
		}
		if !models.IsKind(err, models.ErrKindInvalidConfiguration) {
			t.Fatalf("size=%d overlap=%d: wrong error kind %q", tc.size, tc.overlap, models.KindOf(err))
		}
	}
}
