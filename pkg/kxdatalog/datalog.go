// Package kxdatalog implements the bounded data log: a fixed ring holding
// the most recent gossiped payload per originator (spec §3/§4 "Data log
// record"). The log always holds the latest payload per originator; on
// overflow the oldest slot is overwritten round-robin.
package kxdatalog

import (
	"github.com/adred-codev/kxgossip/pkg/kxvclock"
	"github.com/adred-codev/kxgossip/pkg/kxwire"
)

// MaxRecords bounds the log to 25 slots, one per originator (spec §3).
const MaxRecords = 25

// MaxPayloadSize is the largest payload a record can hold. The spec's C
// struct fixes this field at byte[<=512], but a DATA message carrying it
// must also fit its header and vector record within one 512-byte datagram
// (spec §4.4), so the wire-usable capacity is narrower than the struct
// field; we size the log to what can actually be gossiped in one datagram
// rather than accept payloads that could never leave the log.
const MaxPayloadSize = kxwire.MaxDataSize

// Record is one originator's latest known payload, versioned by the vector
// record that produced it.
type Record struct {
	Version kxvclock.Record
	Data    []byte
}

// Log is a bounded ring of at most MaxRecords records, indexed by
// originator (member_id). It contains at most one record per originator.
type Log struct {
	slots []Record
	next  int
}

// New returns an empty data log.
func New() *Log {
	return &Log{slots: make([]Record, 0, MaxRecords)}
}

// Len reports how many originator records the log currently holds.
func (l *Log) Len() int {
	return len(l.slots)
}

func (l *Log) indexOf(memberID uint64) int {
	for i, r := range l.slots {
		if r.Version.MemberID == memberID {
			return i
		}
	}
	return -1
}

// Get returns the record for memberID, if present.
func (l *Log) Get(memberID uint64) (Record, bool) {
	if i := l.indexOf(memberID); i >= 0 {
		return l.slots[i], true
	}
	return Record{}, false
}

// All returns a snapshot of every record currently in the log.
func (l *Log) All() []Record {
	out := make([]Record, len(l.slots))
	copy(out, l.slots)
	return out
}

// Put records data for the originator identified by version.MemberID,
// truncating to MaxPayloadSize. If the originator already has a slot it is
// updated in place; otherwise the log claims the next ring slot,
// overwriting whatever originator previously held it once the log is full
// (spec §3/§4).
func (l *Log) Put(version kxvclock.Record, data []byte) {
	if len(data) > MaxPayloadSize {
		data = data[:MaxPayloadSize]
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	rec := Record{Version: version, Data: stored}

	if i := l.indexOf(version.MemberID); i >= 0 {
		l.slots[i] = rec
		return
	}

	if len(l.slots) < MaxRecords {
		l.slots = append(l.slots, rec)
		return
	}

	l.slots[l.next] = rec
	l.next = (l.next + 1) % MaxRecords
}
