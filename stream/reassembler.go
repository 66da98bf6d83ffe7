package stream

import "bytes"

// Reassembler re-splits arbitrarily sized chunks into newline-terminated lines.
// The buffer never holds a '\n': at most one partial line is kept between calls.
type Reassembler struct {
	buf []byte
}

// Feed appends chunk and returns every line it completed, without the '\n'.
// Carriage returns and empty lines are left for the caller.
func (r *Reassembler) Feed(chunk []byte) []string {
	var lines []string
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			r.buf = append(r.buf, chunk...)
			break
		}

		if len(r.buf) > 0 {
			r.buf = append(r.buf, chunk[:i]...)
			lines = append(lines, string(r.buf))
			r.buf = r.buf[:0]
		} else {
			lines = append(lines, string(chunk[:i]))
		}
		chunk = chunk[i+1:]
	}
	return lines
}

// Flush returns the unterminated remainder, treating end of input as a line
// terminator. ok is false when nothing is buffered.
func (r *Reassembler) Flush() (line string, ok bool) {
	if len(r.buf) == 0 {
		return "", false
	}
	line = string(r.buf)
	r.buf = r.buf[:0]
	return line, true
}

// Reset drops any buffered remainder.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

// Buffered returns the length of the unterminated remainder.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}
