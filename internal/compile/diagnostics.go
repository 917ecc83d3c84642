package compile

import (
	"bytes"
	"io"
	"sync"
)

// Ordered, append-only record of compiler output.
//
// Lines are mirrored to the stream writer as they arrive, so long builds
// stay observable, and recorded for the final result. Safe for concurrent
// appends from the stdout and stderr pumps.
type Diagnostics struct {
	stream io.Writer

	mu    sync.Mutex
	lines []string
}

// Creates a diagnostics recorder that mirrors lines to the given writer.
//
// A nil writer records without mirroring.
func NewDiagnostics(stream io.Writer) *Diagnostics {
	if stream == nil {
		stream = io.Discard
	}
	return &Diagnostics{stream: stream}
}

// Records a single line and mirrors it to the stream.
func (d *Diagnostics) Append(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line)
	io.WriteString(d.stream, line+"\n")
}

// Returns a copy of the recorded lines in arrival order.
func (d *Diagnostics) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

// Returns the number of recorded lines.
func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lines)
}

// Returns a writer that splits its input into lines and appends each to the
// diagnostics.
//
// Used by compiler backends that expose raw output streams rather than
// scannable pipes. Close flushes a trailing unterminated line.
func (d *Diagnostics) Writer() io.WriteCloser {
	return &lineWriter{d: d}
}

// Buffers written bytes and emits complete lines to the diagnostics.
type lineWriter struct {
	d   *Diagnostics
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line: put it back and wait for more input.
			w.buf.WriteString(line)
			break
		}
		w.d.Append(trimEOL(line))
	}
	return len(p), nil
}

func (w *lineWriter) Close() error {
	if w.buf.Len() > 0 {
		w.d.Append(trimEOL(w.buf.String()))
		w.buf.Reset()
	}
	return nil
}

// Strips a trailing newline and carriage return.
func trimEOL(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
