package orchestrator

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"acmanager/pkg/types"
)

const maxLineBytes = 1024 * 1024

// lineWriter splits a process stream into lines for a LogBuffer. It is the
// cmd.Stdout/cmd.Stderr of a server, so exec's own copy goroutines feed it and
// cmd.WaitDelay bounds how long they may outlive the process.
type lineWriter struct {
	mu      sync.Mutex
	partial []byte
	buf     *LogBuffer
	onLine  func(string)
}

func newLineWriter(buf *LogBuffer, onLine func(string)) *lineWriter {
	return &lineWriter{buf: buf, onLine: onLine}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.partial = append(w.partial, p...)
			if len(w.partial) >= maxLineBytes {
				w.emitLocked()
			}
			break
		}
		w.partial = append(w.partial, p[:i]...)
		w.emitLocked()
		p = p[i+1:]
	}
	return n, nil
}

// Flush emits a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emitLocked()
	}
}

func (w *lineWriter) emitLocked() {
	line := strings.TrimRight(string(w.partial), "\r")
	w.partial = w.partial[:0]
	w.buf.Push(types.LogLine{Time: time.Now(), Text: line})
	if w.onLine != nil {
		w.onLine(line)
	}
}
