// Package kxvclock implements the bounded vector clock used for causal
// ordering of gossiped data (spec §4.3). A clock is a small, unordered array
// of (member_id, sequence_number) records; when it is full, admitting a new
// originator evicts the slot at a rotating cursor rather than growing
// without bound.
package kxvclock

import "github.com/adred-codev/kxgossip/pkg/kxcodec"

// MaxRecords bounds a clock to at most 20 originator records (spec §3).
const MaxRecords = 20

// Record is a single originator's last-seen sequence number.
type Record struct {
	Seq      uint32
	MemberID uint64
}

// EncodedSize is the wire size of one record: u32 seq | u64 member_id.
const EncodedSize = kxcodec.Uint32Size + 8

// Encode writes r onto buf as u32 seq | u64 member_id.
func (r Record) Encode(buf []byte) {
	kxcodec.PutUint32(buf, r.Seq)
	kxcodec.PutUint64(buf[kxcodec.Uint32Size:], r.MemberID)
}

// DecodeRecord reads a record from buf.
func DecodeRecord(buf []byte) Record {
	return Record{
		Seq:      kxcodec.Uint32(buf),
		MemberID: kxcodec.Uint64(buf[kxcodec.Uint32Size:]),
	}
}

// Comparison is the result of comparing two clocks, or a clock against a
// single record.
type Comparison int

const (
	Equal Comparison = iota
	Before
	After
	Conflict
)

func (c Comparison) String() string {
	switch c {
	case Equal:
		return "equal"
	case Before:
		return "before"
	case After:
		return "after"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Clock is a bounded, unordered collection of originator records. Lookups
// are linear scans by member_id, matching the C reference; at 20 records
// max this is cheap and keeps the type allocation-free.
type Clock struct {
	records    []Record
	currentIdx int
}

// New returns an empty clock.
func New() *Clock {
	return &Clock{records: make([]Record, 0, MaxRecords)}
}

// Records returns a snapshot of the clock's records.
func (c *Clock) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len reports how many originator records the clock currently holds.
func (c *Clock) Len() int {
	return len(c.records)
}

func (c *Clock) indexOf(memberID uint64) int {
	for i, r := range c.records {
		if r.MemberID == memberID {
			return i
		}
	}
	return -1
}

// Lookup returns the record for memberID and whether it was found.
func (c *Clock) Lookup(memberID uint64) (Record, bool) {
	if i := c.indexOf(memberID); i >= 0 {
		return c.records[i], true
	}
	return Record{}, false
}

// Set finds the record for memberID; if none exists it is inserted (at the
// rotating currentIdx once the clock is full), otherwise its sequence is
// updated to max(existing, seq). Returns the now-current record for
// memberID, per spec §4.3.
func (c *Clock) Set(memberID uint64, seq uint32) Record {
	if i := c.indexOf(memberID); i >= 0 {
		if seq > c.records[i].Seq {
			c.records[i].Seq = seq
		}
		return c.records[i]
	}

	rec := Record{Seq: seq, MemberID: memberID}
	if len(c.records) < MaxRecords {
		c.records = append(c.records, rec)
		return rec
	}

	// Clock is full: admit the new originator at the rotating cursor,
	// evicting whatever originator previously held that slot.
	c.records[c.currentIdx] = rec
	c.currentIdx = (c.currentIdx + 1) % MaxRecords
	return rec
}

// Compare returns how a relates to b over the union of their originator
// ids: BEFORE if every dimension where they differ favors b, AFTER if every
// dimension favors a, EQUAL if they never differ, CONFLICT if each has some
// dimension strictly ahead of the other. If merge is true, a is updated to
// the pointwise maximum of a and b (spec §4.3).
func Compare(a, b *Clock, merge bool) Comparison {
	aAhead, bAhead := false, false

	ids := unionIDs(a, b)
	for _, id := range ids {
		ra, aHas := a.Lookup(id)
		rb, bHas := b.Lookup(id)
		var sa, sb uint32
		if aHas {
			sa = ra.Seq
		}
		if bHas {
			sb = rb.Seq
		}
		if sa > sb {
			aAhead = true
		} else if sb > sa {
			bAhead = true
		}
	}

	if merge {
		for _, id := range ids {
			rb, bHas := b.Lookup(id)
			if !bHas {
				continue
			}
			a.Set(id, rb.Seq)
		}
	}

	switch {
	case aAhead && bAhead:
		return Conflict
	case aAhead:
		return After
	case bAhead:
		return Before
	default:
		return Equal
	}
}

func unionIDs(a, b *Clock) []uint64 {
	seen := make(map[uint64]struct{}, len(a.records)+len(b.records))
	ids := make([]uint64, 0, len(a.records)+len(b.records))
	for _, r := range a.records {
		if _, ok := seen[r.MemberID]; !ok {
			seen[r.MemberID] = struct{}{}
			ids = append(ids, r.MemberID)
		}
	}
	for _, r := range b.records {
		if _, ok := seen[r.MemberID]; !ok {
			seen[r.MemberID] = struct{}{}
			ids = append(ids, r.MemberID)
		}
	}
	return ids
}

// CompareWithRecord compares a single originator dimension of clock against
// rec: BEFORE if the clock's sequence for rec.MemberID is less than (or
// absent, treated as zero), AFTER if greater, EQUAL otherwise. If merge is
// true and the result is BEFORE, rec is written into clock (spec §4.3).
func CompareWithRecord(clock *Clock, rec Record, merge bool) Comparison {
	existing, ok := clock.Lookup(rec.MemberID)
	var seq uint32
	if ok {
		seq = existing.Seq
	}

	var result Comparison
	switch {
	case seq < rec.Seq:
		result = Before
	case seq > rec.Seq:
		result = After
	default:
		result = Equal
	}

	if merge && result == Before {
		clock.Set(rec.MemberID, rec.Seq)
	}
	return result
}
