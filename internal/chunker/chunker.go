package chunker

import (
	"strings"
	"unicode/utf8"

	"helpdesk-kb-platform/models"
)

// Chunk is one bounded text segment of a document. Start and End are rune
// offsets of the window the chunk was cut from.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Chunker splits normalized text into overlapping fixed-size segments,
// preferring separator boundaries when one falls inside the window.
type Chunker struct {
	size      int
	overlap   int
	separator string
}

// New validates the configuration and returns a Chunker.
// size must be positive and overlap must satisfy 0 <= overlap < size.
func New(size, overlap int, separator string) (*Chunker, error) {
	if size <= 0 {
		return nil, models.NewPipelineError(models.ErrKindInvalidConfiguration,
			"chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, models.NewPipelineError(models.ErrKindInvalidConfiguration,
			"overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap, separator: separator}, nil
}

// Split chunks text deterministically: each window starts size-overlap runes
// after the previous window's start. When a separator occurs in the tail of a
// non-final window the chunk ends at the last separator boundary instead of
// a hard cut. A cut is only honored when it lands at or past the next
// window's start, so every rune of the input stays covered by some chunk.
// Empty input yields an empty sequence.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := c.size - c.overlap
	var chunks []Chunk

	for start := 0; start < len(runes); start += step {
		end := start + c.size
		final := end >= len(runes)
		if final {
			end = len(runes)
		}

		if !final && c.separator != "" {
			window := string(runes[start:end])
			if cut := strings.LastIndex(window, c.separator); cut > 0 {
				if n := utf8.RuneCountInString(window[:cut]); n >= step {
					end = start + n
				}
			}
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if final {
			break
		}
	}

	return chunks
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }
