// Package kxcodec provides the fixed-width big-endian integer codec, the
// monotonic millisecond clock, and the PRNG shared by every other kxgossip
// package. Nothing here is gossip-specific; it is the load-bearing primitive
// layer everything else is built on.
package kxcodec

import (
	"encoding/binary"
	"math/rand"
	"time"
)

// Uint16Size and Uint32Size are the encoded widths of the codec's integer
// types, used by callers computing buffer offsets.
const (
	Uint16Size = 2
	Uint32Size = 4
)

// PutUint16 encodes v as big-endian into buf[0:2]. Panics if buf is too
// short, matching the standard library's own convention for Put* helpers.
func PutUint16(buf []byte, v uint16) {
	binary.BigEndian.PutUint16(buf, v)
}

// Uint16 decodes a big-endian uint16 from buf[0:2].
func Uint16(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf)
}

// PutUint32 encodes v as big-endian into buf[0:4].
func PutUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

// Uint32 decodes a big-endian uint32 from buf[0:4].
func Uint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

// PutUint64 encodes v as big-endian into buf[0:8]. Used for the vector
// record's member_id field.
func PutUint64(buf []byte, v uint64) {
	binary.BigEndian.PutUint64(buf, v)
}

// Uint64 decodes a big-endian uint64 from buf[0:8].
func Uint64(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

// ClusterTime returns the current time as milliseconds since the Unix
// epoch. Member uid assignment reads it; the engine's envelope retry and
// tick timing read time.Now directly and do not go through this function.
func ClusterTime() int64 {
	return time.Now().UnixMilli()
}

// rng is process-local and seeded from the wall clock at startup;
// reservoir sampling has no cryptographic requirement.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// ClusterRandom returns a uniformly distributed 32-bit value, used only by
// the member set's reservoir sampling.
func ClusterRandom() uint32 {
	return rng.Uint32()
}
