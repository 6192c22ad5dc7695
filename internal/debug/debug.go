// Package debug provides opt-in, near-zero-cost tracing for the hot paths
// (volume parsing, trie insertion) where a structured zap call per record
// would be too heavy even at Debug level. It is a narrow escape hatch, not a
// replacement for internal/logging.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EnableDebug can be flipped at build time:
// go build -ldflags "-X github.com/standardbeagle/volumefind/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	mu     sync.Mutex
	output io.Writer
)

// SetOutput sets the writer for trace output. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Enabled reports whether tracing is active, either via the build flag or
// the DEBUG environment variable.
func Enabled() bool {
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Trace writes a component-tagged trace line when tracing is enabled and an
// output writer is configured. It is a no-op otherwise, so call sites on
// the record-parse hot path can leave Trace calls in place permanently.
func Trace(component, format string, args ...any) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[trace:%s] "+format+"\n", append([]any{component}, args...)...)
}
