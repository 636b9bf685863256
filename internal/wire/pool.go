// Package wire implements the framing codec (encode/decode typed messages as
// magic-prefixed, length-prefixed, chunked report streams) and the closed
// message-variant model it carries.
package wire

import (
	"sync"

	"github.com/keepkey/device-gateway/internal/constants"
)

// Pooled byte slices avoid a hot-path allocation every time a message is
// reassembled from its constituent reports. Bucketed by the two shapes
// decode actually sees: the overwhelming majority of messages (Features,
// Address, TxAck, ...) are well under a few KB, and the rare large one is a
// firmware image up to constants.MaxMessageBytes (spec.md §8) — there is no
// size in between worth a dedicated bucket for.
//
// Uses *[]byte pattern to avoid sync.Pool interface allocation overhead.

// Buffer size thresholds.
const (
	size4k  = 4 * 1024
	sizeMax = constants.MaxMessageBytes
)

// globalPool is the shared buffer pool for all message decoders.
// Uses pointer-to-slice pattern for efficient sync.Pool usage.
var globalPool = struct {
	pool4k  sync.Pool
	poolMax sync.Pool
}{
	pool4k:  sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
	poolMax: sync.Pool{New: func() any { b := make([]byte, sizeMax); return &b }},
}

// GetBuffer returns a pooled buffer of at least the requested size.
// Caller must call PutBuffer when done.
func GetBuffer(size uint32) []byte {
	switch {
	case size <= size4k:
		return (*globalPool.pool4k.Get().(*[]byte))[:size]
	default:
		return (*globalPool.poolMax.Get().(*[]byte))[:size]
	}
}

// PutBuffer returns a buffer to the pool.
// The buffer's capacity determines which pool it goes to.
func PutBuffer(buf []byte) {
	c := cap(buf)
	// Restore full capacity before returning to pool
	buf = buf[:c]
	switch c {
	case size4k:
		globalPool.pool4k.Put(&buf)
	case sizeMax:
		globalPool.poolMax.Put(&buf)
		// Buffers with non-standard capacity are not returned to pool
	}
}
