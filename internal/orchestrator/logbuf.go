package orchestrator

import (
	"sync"

	"acmanager/pkg/types"
)

// LogBuffer is a fixed-capacity FIFO of output lines; the oldest line is
// evicted when a push would exceed capacity.
type LogBuffer struct {
	mu    sync.Mutex
	lines []types.LogLine
	start int
	size  int
}

func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = defaultLogLines
	}
	return &LogBuffer{lines: make([]types.LogLine, capacity)}
}

// Push appends a line.
func (b *LogBuffer) Push(l types.LogLine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := len(b.lines)
	if b.size < c {
		b.lines[(b.start+b.size)%c] = l
		b.size++
		return
	}
	b.lines[b.start] = l
	b.start = (b.start + 1) % c
}

// Snapshot returns up to the last n lines, oldest first. n <= 0 returns all.
// The result is never nil.
func (b *LogBuffer) Snapshot(n int) []types.LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > b.size {
		n = b.size
	}
	out := make([]types.LogLine, n)
	c := len(b.lines)
	first := b.start + b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(first+i)%c]
	}
	return out
}

// Len returns the number of buffered lines.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
