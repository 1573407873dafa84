// Package defrag implements the receive-side stream accumulator
// (component C5): successive non-empty frames of one stream type are
// buffered in order up to a configurable cap, and handed to the caller as
// a single contiguous buffer once the terminating empty frame arrives.
package defrag

import (
	"github.com/fcgicore/fastcgi/fcgierr"
)

// DefaultMaxSize is the default cap on an accumulated stream's size, per
// spec §4.4 / §6.
const DefaultMaxSize = 64 * 1024 * 1024

// Defragmenter accumulates fragments of one stream at a time. It is
// reusable across stream phases (Params, then Stdin, then Data) by calling
// Reset between them, matching spec §4.6 ("a defragmenter is shared across
// the stream phases (one at a time, reset between phases)").
type Defragmenter struct {
	maxSize int64
	buf     []byte
	size    int64
}

// New returns a Defragmenter capped at maxSize bytes. maxSize <= 0 means
// DefaultMaxSize.
func New(maxSize int64) *Defragmenter {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Defragmenter{maxSize: maxSize}
}

// Reset clears accumulated bytes, preparing the Defragmenter for the next
// stream phase.
func (d *Defragmenter) Reset() {
	d.buf = d.buf[:0]
	d.size = 0
}

// Feed appends a non-empty fragment. It returns MaximumStreamSizeExceeded
// at the first fragment that crosses the cap, per spec property 9.
func (d *Defragmenter) Feed(chunk []byte) error {
	d.size += int64(len(chunk))
	if d.size > d.maxSize {
		return &fcgierr.MaximumStreamSizeExceeded{Size: d.size, Limit: d.maxSize}
	}
	d.buf = append(d.buf, chunk...)
	return nil
}

// Bytes returns the accumulated buffer. Per spec §4.4, if nothing was fed,
// this returns a non-nil empty slice; whether an empty stream is legal is
// a record-specific decision made by the caller (Params empty is an error,
// Stdin empty is legal).
func (d *Defragmenter) Bytes() []byte {
	if d.buf == nil {
		return []byte{}
	}
	return d.buf
}

// Len reports the number of bytes accumulated so far.
func (d *Defragmenter) Len() int { return len(d.buf) }
