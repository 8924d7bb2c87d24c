// Package kxoutbound implements the engine's output buffer pool and the
// outbound envelope queue built on top of it (spec §4.5). The pool is a
// fixed array of MaxSlots fixed-size byte slots; envelopes reference a slot
// by index rather than by pointer, following the design note's own
// recommendation for representing the C reference's intrusive structures
// in a language with strict aliasing rules.
package kxoutbound

// MaxSlots and SlotSize are MAX_OUTPUT_MESSAGES and MESSAGE_MAX_SIZE from
// spec §3/§4.5.
const (
	MaxSlots = 100
	SlotSize = 512
)

// Pool is the contiguous MaxSlots x SlotSize byte arena backing every
// encoded outbound message. A single encoded payload may be referenced by
// several envelopes (fan-out copies share a slot).
type Pool struct {
	slots [MaxSlots][SlotSize]byte
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Slot returns the backing byte slice for slot index i, trimmed to n bytes.
// Mutating the returned slice mutates the pool directly; this is
// intentional — it is how PatchSequenceNum rewrites the shared buffer just
// before a send (spec §4.5).
func (p *Pool) Slot(i int, n int) []byte {
	return p.slots[i][:n]
}

// Write copies data into slot i, returning the number of bytes written.
func (p *Pool) Write(i int, data []byte) int {
	return copy(p.slots[i][:], data)
}
