// Package timeid generates short, time-ordered identifiers derived from
// the nanosecond clock. They prefix every filename the pipeline produces
// so that artifacts from one ingest group together.
package timeid

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	mu   sync.Mutex
	last int64
)

var seq atomic.Uint32

// now returns a strictly monotonic nanosecond timestamp. Two calls in the
// same nanosecond (or a clock step backwards) still yield distinct values.
func now() int64 {
	mu.Lock()
	defer mu.Unlock()
	n := time.Now().UnixNano()
	if n <= last {
		n = last + 1
	}
	last = n
	return n
}

// New returns a monotonic id encoded as URL-safe base64 without padding.
func New() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(now()))
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// NewThreaded appends the process id and a process-local counter so that
// ids stay unique even when several fixers run concurrently and share a
// clock reading.
func NewThreaded() string {
	return fmt.Sprintf("%s-%d-%d", New(), os.Getpid(), seq.Add(1))
}
