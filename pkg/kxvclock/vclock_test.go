package kxvclock

import "testing"

func TestSetInsertsAndUpdatesMax(t *testing.T) {
	c := New()
	c.Set(1, 5)
	rec, ok := c.Lookup(1)
	if !ok || rec.Seq != 5 {
		t.Fatalf("expected seq 5, got %+v ok=%v", rec, ok)
	}
	c.Set(1, 3) // lower seq must not regress
	rec, _ = c.Lookup(1)
	if rec.Seq != 5 {
		t.Fatalf("expected seq to stay at 5, got %d", rec.Seq)
	}
	c.Set(1, 9)
	rec, _ = c.Lookup(1)
	if rec.Seq != 9 {
		t.Fatalf("expected seq 9, got %d", rec.Seq)
	}
}

func TestSetRotatesWhenFull(t *testing.T) {
	c := New()
	for i := uint64(0); i < MaxRecords; i++ {
		c.Set(i, 1)
	}
	if c.Len() != MaxRecords {
		t.Fatalf("expected %d records, got %d", MaxRecords, c.Len())
	}
	c.Set(uint64(MaxRecords), 1) // admits a new originator, rotating out one
	if c.Len() != MaxRecords {
		t.Fatalf("expected clock to stay bounded at %d, got %d", MaxRecords, c.Len())
	}
	if _, ok := c.Lookup(0); ok {
		t.Fatal("expected the oldest-rotation-cursor originator to have been evicted")
	}
}

func TestCompareTotality(t *testing.T) {
	a := New()
	a.Set(1, 5)
	b := New()
	b.Set(1, 3)

	ab := Compare(a, b, false)
	ba := Compare(b, a, false)

	valid := map[Comparison]bool{Before: true, After: true, Equal: true, Conflict: true}
	if !valid[ab] || !valid[ba] {
		t.Fatalf("comparisons must be one of the four results: %v %v", ab, ba)
	}
	if ab == Before && ba != After {
		t.Fatalf("BEFORE must imply reverse AFTER, got %v", ba)
	}
	if ab == After && ba != Before {
		t.Fatalf("AFTER must imply reverse BEFORE, got %v", ba)
	}
}

func TestCompareEqual(t *testing.T) {
	a := New()
	a.Set(1, 5)
	b := New()
	b.Set(1, 5)
	if got := Compare(a, b, false); got != Equal {
		t.Fatalf("expected Equal, got %v", got)
	}
}

func TestCompareConflict(t *testing.T) {
	a := New()
	a.Set(1, 5)
	a.Set(2, 1)
	b := New()
	b.Set(1, 1)
	b.Set(2, 5)
	if got := Compare(a, b, false); got != Conflict {
		t.Fatalf("expected Conflict, got %v", got)
	}
}

func TestMergeIdempotence(t *testing.T) {
	a := New()
	a.Set(1, 1)
	b := New()
	b.Set(1, 5)
	b.Set(2, 2)

	Compare(a, b, true)
	snapshot := a.Records()

	Compare(a, b, true)
	after := a.Records()

	if len(snapshot) != len(after) {
		t.Fatalf("second merge changed record count: %d vs %d", len(snapshot), len(after))
	}
	for _, r := range after {
		found := false
		for _, s := range snapshot {
			if s.MemberID == r.MemberID && s.Seq == r.Seq {
				found = true
			}
		}
		if !found {
			t.Fatalf("second merge changed record %+v", r)
		}
	}
}

func TestCompareWithRecord(t *testing.T) {
	c := New()
	c.Set(1, 5)

	if got := CompareWithRecord(c, Record{MemberID: 1, Seq: 3}, false); got != After {
		t.Fatalf("expected After (clock ahead), got %v", got)
	}
	if got := CompareWithRecord(c, Record{MemberID: 1, Seq: 5}, false); got != Equal {
		t.Fatalf("expected Equal, got %v", got)
	}
	if got := CompareWithRecord(c, Record{MemberID: 1, Seq: 8}, false); got != Before {
		t.Fatalf("expected Before (new info), got %v", got)
	}
}

func TestCompareWithRecordMergesOnBefore(t *testing.T) {
	c := New()
	c.Set(1, 5)
	CompareWithRecord(c, Record{MemberID: 1, Seq: 8}, true)
	rec, _ := c.Lookup(1)
	if rec.Seq != 8 {
		t.Fatalf("expected merge to write new seq 8, got %d", rec.Seq)
	}
}

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	r := Record{Seq: 42, MemberID: 0xdeadbeef}
	buf := make([]byte, EncodedSize)
	r.Encode(buf)
	got := DecodeRecord(buf)
	if got != r {
		t.Fatalf("round-trip mismatch: %+v != %+v", got, r)
	}
}
