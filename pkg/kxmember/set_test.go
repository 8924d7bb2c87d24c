package kxmember

import "testing"

func TestSetDedupOnInsert(t *testing.T) {
	s := NewSet()
	m := New(addr("127.0.0.1", 6500))
	s.Put(m)
	s.Put(m)
	if s.Size() != 1 {
		t.Fatalf("expected size 1 after duplicate put, got %d", s.Size())
	}
}

func TestSetRemoveByAddress(t *testing.T) {
	s := NewSet()
	a := New(addr("127.0.0.1", 1))
	b := New(addr("127.0.0.1", 2))
	s.Put(a, b)
	if !s.RemoveByAddress(addr("127.0.0.1", 1)) {
		t.Fatal("expected removal to succeed")
	}
	if s.Size() != 1 {
		t.Fatalf("expected size 1 after removal, got %d", s.Size())
	}
	if s.Contains(a) {
		t.Fatal("removed member should no longer be contained")
	}
}

func TestSetGrowsByDoubling(t *testing.T) {
	s := NewSet()
	for i := 0; i < initialCapacity; i++ {
		s.Put(New(addr("10.0.0.1", i+1)))
	}
	if cap(s.members) <= initialCapacity {
		t.Fatalf("expected capacity to have grown past %d, got %d", initialCapacity, cap(s.members))
	}
}

func TestRandomMembersUniformSubsetSize(t *testing.T) {
	s := NewSet()
	for i := 0; i < 10; i++ {
		s.Put(New(addr("10.0.0.1", i+1)))
	}
	sample := s.RandomMembers(3)
	if len(sample) != 3 {
		t.Fatalf("expected sample of size 3, got %d", len(sample))
	}
	// Members built in one loop can share a millisecond uid, so identify
	// them by their distinct ports.
	seen := map[int]bool{}
	for _, m := range sample {
		if seen[m.Addr.Port] {
			t.Fatal("sample contains duplicate member")
		}
		seen[m.Addr.Port] = true
	}
}

func TestRandomMembersClampsToSize(t *testing.T) {
	s := NewSet()
	s.Put(New(addr("10.0.0.1", 1)))
	if got := s.RandomMembers(5); len(got) != 1 {
		t.Fatalf("expected 1 member when k > size, got %d", len(got))
	}
}

func TestRandomMembersDistribution(t *testing.T) {
	s := NewSet()
	for i := 0; i < 5; i++ {
		s.Put(New(addr("10.0.0.1", i+1)))
	}
	counts := map[int]int{}
	const trials = 20000
	for i := 0; i < trials; i++ {
		for _, m := range s.RandomMembers(2) {
			counts[m.Addr.Port]++
		}
	}
	// Each of the 5 members should appear in roughly 2/5 of samples.
	expected := float64(trials) * 2.0 / 5.0
	for port, c := range counts {
		ratio := float64(c) / expected
		if ratio < 0.85 || ratio > 1.15 {
			t.Fatalf("member on port %d appeared %d times, expected near %v (ratio %v)", port, c, expected, ratio)
		}
	}
}
