package kxoutbound

import (
	"net"
	"testing"
)

func addr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
}

func newQueue() *Queue {
	return NewQueue(NewPool())
}

func TestSequenceMonotonic(t *testing.T) {
	q := newQueue()
	var last uint32
	for i := 0; i < 10; i++ {
		e := q.Enqueue(addr(i+1), []byte("x"), AckableAttempts)
		if e.SequenceNum <= last {
			t.Fatalf("sequence number did not increase: %d <= %d", e.SequenceNum, last)
		}
		last = e.SequenceNum
	}
}

func TestBufferPoolBoundedness(t *testing.T) {
	q := newQueue()
	for i := 0; i < MaxSlots+20; i++ {
		q.Enqueue(addr(i+1), []byte("payload"), AckableAttempts)
		if q.UsedSlotCount() > MaxSlots {
			t.Fatalf("used slot count %d exceeds MaxSlots", q.UsedSlotCount())
		}
	}
}

func Test101stEnqueueEvictsHighestAttempt(t *testing.T) {
	q := newQueue()
	var envelopes []*Envelope
	for i := 0; i < MaxSlots; i++ {
		envelopes = append(envelopes, q.Enqueue(addr(i+1), []byte("payload"), AckableAttempts))
	}
	// Give one envelope a higher attempt count so it becomes the eviction
	// target.
	envelopes[42].AttemptNum = 5

	if q.Len() != MaxSlots {
		t.Fatalf("expected %d envelopes before the 101st, got %d", MaxSlots, q.Len())
	}

	q.Enqueue(addr(9999), []byte("payload"), AckableAttempts)

	if q.UsedSlotCount() > MaxSlots {
		t.Fatalf("used slot count exceeded MaxSlots after 101st enqueue")
	}
	if _, ok := q.FindBySequence(envelopes[42].SequenceNum); ok {
		t.Fatal("expected the highest-attempt envelope to have been evicted")
	}
}

func TestAckRemovesEnvelope(t *testing.T) {
	q := newQueue()
	e := q.Enqueue(addr(1), []byte("payload"), AckableAttempts)
	if !q.RemoveBySequence(e.SequenceNum) {
		t.Fatal("expected removal to succeed")
	}
	if _, ok := q.FindBySequence(e.SequenceNum); ok {
		t.Fatal("envelope should be gone after ACK removal")
	}
}

func TestRemoveByRecipientRemovesAll(t *testing.T) {
	q := newQueue()
	peer := addr(1)
	q.Enqueue(peer, []byte("a"), AckableAttempts)
	q.Enqueue(peer, []byte("b"), AckableAttempts)
	q.Enqueue(addr(2), []byte("c"), AckableAttempts)

	removed := q.RemoveByRecipient(peer)
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining envelope, got %d", q.Len())
	}
}

func TestFanoutSharesSlot(t *testing.T) {
	q := newQueue()
	recipients := []*net.UDPAddr{addr(1), addr(2), addr(3)}
	envelopes := q.EnqueueFanout(recipients, []byte("rumor"), AckableAttempts)
	if len(envelopes) != 3 {
		t.Fatalf("expected 3 envelopes, got %d", len(envelopes))
	}
	slot := envelopes[0].SlotIndex
	for _, e := range envelopes {
		if e.SlotIndex != slot {
			t.Fatal("fan-out envelopes should share one slot")
		}
	}
	if q.UsedSlotCount() != 1 {
		t.Fatalf("expected 1 used slot for fan-out, got %d", q.UsedSlotCount())
	}
}

func TestFireAndForgetMaxAttempts(t *testing.T) {
	q := newQueue()
	e := q.Enqueue(addr(1), []byte("x"), FireAndForgetAttempts)
	if !e.FireAndForget() {
		t.Fatal("expected fire-and-forget envelope")
	}
}
