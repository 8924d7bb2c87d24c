package kxdatalog

import (
	"testing"

	"github.com/adred-codev/kxgossip/pkg/kxvclock"
)

func TestPutThenGet(t *testing.T) {
	l := New()
	l.Put(kxvclock.Record{MemberID: 1, Seq: 1}, []byte("hello"))
	rec, ok := l.Get(1)
	if !ok || string(rec.Data) != "hello" {
		t.Fatalf("expected hello, got %+v ok=%v", rec, ok)
	}
}

func TestPutUpdatesSameOriginatorInPlace(t *testing.T) {
	l := New()
	l.Put(kxvclock.Record{MemberID: 1, Seq: 1}, []byte("first"))
	l.Put(kxvclock.Record{MemberID: 1, Seq: 2}, []byte("second"))
	if l.Len() != 1 {
		t.Fatalf("expected 1 record for repeated originator, got %d", l.Len())
	}
	rec, _ := l.Get(1)
	if string(rec.Data) != "second" {
		t.Fatalf("expected latest payload, got %q", rec.Data)
	}
}

func TestLogBoundedAtMaxRecords(t *testing.T) {
	l := New()
	for i := uint64(0); i < MaxRecords+10; i++ {
		l.Put(kxvclock.Record{MemberID: i, Seq: 1}, []byte("x"))
		if l.Len() > MaxRecords {
			t.Fatalf("log grew past MaxRecords: %d", l.Len())
		}
	}
	if l.Len() != MaxRecords {
		t.Fatalf("expected log to settle at %d, got %d", MaxRecords, l.Len())
	}
}

func TestOverflowOverwritesRoundRobin(t *testing.T) {
	l := New()
	for i := uint64(0); i < MaxRecords; i++ {
		l.Put(kxvclock.Record{MemberID: i, Seq: 1}, []byte("x"))
	}
	l.Put(kxvclock.Record{MemberID: 9999, Seq: 1}, []byte("y"))
	if _, ok := l.Get(0); ok {
		t.Fatal("expected originator 0 to have been overwritten round-robin")
	}
	if _, ok := l.Get(9999); !ok {
		t.Fatal("expected new originator to be present")
	}
}

func TestPutTruncatesOversizedPayload(t *testing.T) {
	l := New()
	big := make([]byte, MaxPayloadSize+100)
	l.Put(kxvclock.Record{MemberID: 1}, big)
	rec, _ := l.Get(1)
	if len(rec.Data) != MaxPayloadSize {
		t.Fatalf("expected truncation to %d bytes, got %d", MaxPayloadSize, len(rec.Data))
	}
}
