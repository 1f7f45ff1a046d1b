// Package wire implements the client-facing line protocol: newline-framed
// UTF-8 text, classified into commands (leading '/') or chat payloads.
// It owns no I/O of its own — the scheduler feeds it raw byte chunks as
// they are read off a non-blocking socket.
package wire

import (
	"bytes"
	"strings"
)

// ReadChunkSize is the maximum number of bytes read per readiness event,
// per spec.md §4.2.
const ReadChunkSize = 4096

// Assembler turns a stream of byte chunks into complete, newline-terminated
// lines, buffering any trailing partial line across calls.
type Assembler struct {
	buf []byte
}

// NewAssembler returns an empty line assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed appends chunk to the internal buffer and returns every complete
// line it now contains, in arrival order. Lines do not include the
// terminating '\n'. Any bytes after the last newline remain buffered
// for the next Feed call.
func (a *Assembler) Feed(chunk []byte) []string {
	a.buf = append(a.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(a.buf[:idx]))
		a.buf = a.buf[idx+1:]
	}
	return lines
}

// Command is a parsed command line: the token following the stripped
// leading '/' run, and its whitespace-separated arguments.
type Command struct {
	Name string
	Args []string
}

// ClassifyLine inspects one decoded line and reports whether it is a
// command or chat text. For a command line, all leading '/' characters
// are stripped before splitting on whitespace — a line consisting only
// of '/' characters yields a Command with an empty Name. Chat text is
// trimmed of surrounding whitespace.
func ClassifyLine(line string) (cmd Command, isCommand bool, chatText string) {
	if strings.HasPrefix(line, "/") {
		stripped := strings.TrimLeft(line, "/")
		fields := strings.Fields(stripped)
		if len(fields) == 0 {
			return Command{}, true, ""
		}
		return Command{Name: fields[0], Args: fields[1:]}, true, ""
	}
	return Command{}, false, strings.TrimSpace(line)
}

// EncodeLine appends the single trailing '\n' every outbound message
// carries, per spec.md §4.2. No escaping, no length prefix.
func EncodeLine(payload string) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, payload...)
	out = append(out, '\n')
	return out
}
