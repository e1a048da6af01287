// Package logging provides the structured log channel used by the
// simulation core. In-tick errors are recovered locally and reported here;
// the tick itself never fails.
package logging

import (
	"fmt"
	"io"
	"sync"
)

var (
	mu        sync.Mutex
	logWriter io.Writer
	onceSeen  = map[string]struct{}{}
)

// SetWriter sets the log output destination.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	mu.Lock()
	defer mu.Unlock()
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// LogOncef logs a message at most once per key. Used for call-site defects
// (out-of-bounds grid access, duplicate save keys) that would otherwise
// flood the log every tick.
func LogOncef(key, format string, args ...interface{}) {
	mu.Lock()
	if _, seen := onceSeen[key]; seen {
		mu.Unlock()
		return
	}
	onceSeen[key] = struct{}{}
	mu.Unlock()
	Logf(format, args...)
}
