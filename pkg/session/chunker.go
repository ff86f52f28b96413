package session

import "strings"

// Sentence delimiters that mark a possible flush boundary.
const sentenceDelimiters = ".!?\n"

// DefaultMinFlush is the buffer length a chunk must exceed before a
// delimiter triggers a flush.
const DefaultMinFlush = 50

// chunker accumulates completion deltas and releases them as chunks.
// The whole buffer is flushed once it holds a sentence delimiter and
// exceeds the length threshold; one flush per check, even when a delta
// carries several sentence boundaries.
type chunker struct {
	buf      strings.Builder
	minFlush int
}

func newChunker(minFlush int) *chunker {
	if minFlush <= 0 {
		minFlush = DefaultMinFlush
	}
	return &chunker{minFlush: minFlush}
}

// add appends a delta and returns the flushed chunk, if any.
func (c *chunker) add(delta string) (string, bool) {
	c.buf.WriteString(delta)
	text := c.buf.String()
	if strings.ContainsAny(text, sentenceDelimiters) && len(text) > c.minFlush {
		c.buf.Reset()
		return text, true
	}
	return "", false
}

// flushRemainder releases whatever is buffered at stream end,
// regardless of the length threshold.
func (c *chunker) flushRemainder() (string, bool) {
	text := c.buf.String()
	c.buf.Reset()
	return text, text != ""
}
