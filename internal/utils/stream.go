package utils

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// maxLineSize is the maximum size of a single buffered stream line (1 MB).
// A partial line growing past this limit is discarded rather than held
// forever waiting for a newline that never comes.
const maxLineSize = 1 * 1024 * 1024

// readBufferSize is the size of each raw network read.
const readBufferSize = 4 * 1024

// UTF8ChunkReader turns raw body reads into valid UTF-8 text fragments. A
// multi-byte rune split across two reads is held back and emitted whole with
// the next fragment.
type UTF8ChunkReader struct {
	reader  io.Reader
	buf     []byte
	carry   []byte
	pending error
}

// NewUTF8ChunkReader wraps reader for incremental text decoding.
func NewUTF8ChunkReader(reader io.Reader) *UTF8ChunkReader {
	return &UTF8ChunkReader{
		reader: reader,
		buf:    make([]byte, readBufferSize),
	}
}

// Next returns the next non-empty decoded fragment. It returns io.EOF once
// the underlying reader is exhausted and every held byte has been emitted.
// Incomplete trailing bytes at EOF are emitted with replacement characters.
func (c *UTF8ChunkReader) Next() (string, error) {
	for {
		if c.pending != nil {
			if len(c.carry) > 0 {
				text := strings.ToValidUTF8(string(c.carry), string(utf8.RuneError))
				c.carry = nil
				return text, nil
			}
			return "", c.pending
		}

		n, err := c.reader.Read(c.buf)
		if err != nil {
			c.pending = err
		}
		if n == 0 {
			continue
		}

		data := append(c.carry, c.buf[:n]...)
		cut := completePrefixLen(data)
		text := string(data[:cut])
		c.carry = append([]byte(nil), data[cut:]...)
		if text != "" {
			return text, nil
		}
	}
}

// completePrefixLen returns the length of the longest prefix of data that
// does not end inside a multi-byte UTF-8 sequence.
func completePrefixLen(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			return len(data)
		}
		return i
	}
	return len(data)
}

// IsEOF reports whether err marks the normal end of a stream.
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// LineBuffer reassembles newline-terminated lines from text chunks whose
// boundaries fall anywhere, including in the middle of a line.
type LineBuffer struct {
	pending string
}

// Feed appends chunk and returns every line it completes, without their
// terminators. A trailing partial line is kept for the next call.
func (b *LineBuffer) Feed(chunk string) []string {
	data := b.pending + chunk
	b.pending = ""

	parts := strings.Split(data, "\n")
	last := parts[len(parts)-1]
	if len(last) > maxLineSize {
		slog.Warn("discarding oversized stream line", "size", len(last))
		last = ""
	}
	b.pending = last

	lines := parts[:len(parts)-1]
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Flush returns the buffered partial line, if any, and resets the buffer.
func (b *LineBuffer) Flush() string {
	rest := strings.TrimSuffix(b.pending, "\r")
	b.pending = ""
	return rest
}

// Pending reports whether a partial line is buffered.
func (b *LineBuffer) Pending() bool {
	return b.pending != ""
}
