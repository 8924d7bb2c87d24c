package kxoutbound

import (
	"net"
)

// Queue holds the engine's outbound envelopes in enqueue order and owns
// the monotonic sequence counter assigned to each one. It is not
// thread-safe; the engine that owns a Queue must not be shared across
// goroutines without external synchronization (spec §5).
type Queue struct {
	pool    *Pool
	nextSeq uint32
	entries []*Envelope
}

// NewQueue returns an empty queue backed by pool.
func NewQueue(pool *Pool) *Queue {
	return &Queue{pool: pool}
}

// Len reports the number of envelopes currently queued.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns the envelopes in enqueue order. Callers must not retain
// pointers across further queue mutation without care; the slice itself is
// a fresh copy.
func (q *Queue) Entries() []*Envelope {
	out := make([]*Envelope, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) nextSequenceNum() uint32 {
	q.nextSeq++
	return q.nextSeq
}

// usedSlots returns the set of pool slot indices currently referenced by
// at least one live envelope.
func (q *Queue) usedSlots() map[int]bool {
	used := make(map[int]bool, len(q.entries))
	for _, e := range q.entries {
		used[e.SlotIndex] = true
	}
	return used
}

// allocateSlot returns a pool slot index with no live envelope referencing
// it, evicting the highest-attempt_num envelope group if the pool is full
// (spec §4.5).
func (q *Queue) allocateSlot() int {
	used := q.usedSlots()
	for i := 0; i < MaxSlots; i++ {
		if !used[i] {
			return i
		}
	}
	return q.evictForSlot()
}

// evictForSlot picks the envelope with the highest AttemptNum — the oldest
// from a retry perspective — and removes every envelope sharing its slot,
// returning that slot for reuse.
func (q *Queue) evictForSlot() int {
	victimIdx := 0
	for i, e := range q.entries {
		if e.AttemptNum > q.entries[victimIdx].AttemptNum {
			victimIdx = i
		}
	}
	slot := q.entries[victimIdx].SlotIndex
	q.removeBySlot(slot)
	return slot
}

func (q *Queue) removeBySlot(slot int) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.SlotIndex != slot {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}

// Enqueue copies the encoded message into a freshly allocated pool slot and
// appends one envelope addressed to recipient, assigning it the next
// monotonic sequence number.
func (q *Queue) Enqueue(recipient *net.UDPAddr, encoded []byte, maxAttempts int) *Envelope {
	return q.EnqueueFanout([]*net.UDPAddr{recipient}, encoded, maxAttempts)[0]
}

// EnqueueFanout copies one encoded message once into a single pool slot and
// enqueues one envelope per recipient referencing that shared slot — the
// fan-out case spec §4.5 describes, where "a single encoded payload may be
// referenced by multiple envelopes." Each envelope still gets its own
// sequence number and is patched into the shared buffer immediately before
// its own send.
func (q *Queue) EnqueueFanout(recipients []*net.UDPAddr, encoded []byte, maxAttempts int) []*Envelope {
	slot := q.allocateSlot()
	n := q.pool.Write(slot, encoded)

	envelopes := make([]*Envelope, 0, len(recipients))
	for _, recipient := range recipients {
		e := &Envelope{
			SequenceNum: q.nextSequenceNum(),
			SlotIndex:   slot,
			Length:      n,
			Recipient:   recipient,
			MaxAttempts: maxAttempts,
			retry:       newRetryPolicy(),
		}
		q.entries = append(q.entries, e)
		envelopes = append(envelopes, e)
	}
	return envelopes
}

// Buffer returns the encoded bytes e currently references in the pool. The
// slice aliases the pool slot, so the caller can patch e's own sequence
// number into it just before sending (spec §4.5's patch-in-place trick,
// applied at send time rather than enqueue time); Buffer itself does not
// patch.
func (q *Queue) Buffer(e *Envelope) []byte {
	return q.pool.Slot(e.SlotIndex, e.Length)
}

// RemoveBySequence removes the envelope with the given sequence number, if
// present. Used when an ACK arrives for it.
func (q *Queue) RemoveBySequence(seq uint32) bool {
	for i, e := range q.entries {
		if e.SequenceNum == seq {
			q.removeAt(i)
			return true
		}
	}
	return false
}

// FindBySequence returns the envelope with the given sequence number, if
// queued.
func (q *Queue) FindBySequence(seq uint32) (*Envelope, bool) {
	for _, e := range q.entries {
		if e.SequenceNum == seq {
			return e, true
		}
	}
	return nil, false
}

// RemoveByRecipient removes every envelope addressed to recipient,
// returning how many were removed. Used when a peer is evicted after
// exhausting its retries (spec §4.6 step 1).
func (q *Queue) RemoveByRecipient(recipient *net.UDPAddr) int {
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if addrEqual(e.Recipient, recipient) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed
}

func (q *Queue) removeAt(i int) {
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
}

// Remove deletes e from the queue by identity.
func (q *Queue) Remove(e *Envelope) {
	for i, existing := range q.entries {
		if existing == e {
			q.removeAt(i)
			return
		}
	}
}

func addrEqual(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Port == b.Port && a.IP.Equal(b.IP)
}

// UsedSlotCount reports how many distinct pool slots are currently
// referenced by live envelopes — at most MaxSlots, per spec §8's buffer
// pool boundedness property.
func (q *Queue) UsedSlotCount() int {
	return len(q.usedSlots())
}
