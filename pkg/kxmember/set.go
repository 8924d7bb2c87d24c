package kxmember

import (
	"net"

	"github.com/adred-codev/kxgossip/pkg/kxcodec"
)

// initialCapacity and loadFactor match spec §4.2: the set grows with load
// factor 0.75 and factor-2 doubling from initial capacity 32.
const (
	initialCapacity = 32
	loadFactor      = 0.75
)

// Set is an unordered, deduplicated collection of owned member copies. It
// grows by doubling and never shrinks; removal does an in-place shift that
// preserves nothing about ordering (spec §4.2).
type Set struct {
	members []*Member
}

// NewSet returns an empty set pre-sized to the spec's initial capacity.
func NewSet() *Set {
	return &Set{members: make([]*Member, 0, initialCapacity)}
}

// Size returns the number of members currently held.
func (s *Set) Size() int {
	return len(s.members)
}

// Members returns a snapshot slice of the set's members. Callers must not
// mutate the returned members; copy them first if retention across further
// Set mutation is required.
func (s *Set) Members() []*Member {
	out := make([]*Member, len(s.members))
	copy(out, s.members)
	return out
}

// Contains reports whether an equal member is already present.
func (s *Set) Contains(m *Member) bool {
	for _, existing := range s.members {
		if existing.Equal(m) {
			return true
		}
	}
	return false
}

// Put inserts each of members unless an equal one already exists,
// deduplicating on full equality (spec §4.2). Growth follows the spec's
// load-factor-0.75 doubling policy.
func (s *Set) Put(members ...*Member) {
	for _, m := range members {
		if m == nil || s.Contains(m) {
			continue
		}
		s.growIfNeeded()
		s.members = append(s.members, m.Copy())
	}
}

func (s *Set) growIfNeeded() {
	if cap(s.members) == 0 {
		s.members = make([]*Member, 0, initialCapacity)
		return
	}
	if float64(len(s.members)+1) >= float64(cap(s.members))*loadFactor {
		grown := make([]*Member, len(s.members), cap(s.members)*2)
		copy(grown, s.members)
		s.members = grown
	}
}

// RemoveByAddress removes the first member whose address matches addr by
// byte comparison (spec §4.2: "removes the first match by memcmp on address
// bytes"). Reports whether a member was removed.
func (s *Set) RemoveByAddress(addr *net.UDPAddr) bool {
	for i, m := range s.members {
		if addrEqual(m.Addr, addr) {
			s.removeAt(i)
			return true
		}
	}
	return false
}

func (s *Set) removeAt(i int) {
	last := len(s.members) - 1
	s.members[i] = s.members[last]
	s.members[last] = nil
	s.members = s.members[:last]
}

// RandomMembers fills a reservoir of size min(k, Size()) using Vitter's
// reservoir-sampling algorithm, drawing randomness from kxcodec.ClusterRandom,
// per spec §4.2. The returned slice is uniform over subsets of size k.
func (s *Set) RandomMembers(k int) []*Member {
	if k <= 0 || len(s.members) == 0 {
		return nil
	}
	if k > len(s.members) {
		k = len(s.members)
	}
	reservoir := make([]*Member, k)
	copy(reservoir, s.members[:k])
	for i := k; i < len(s.members); i++ {
		j := int(randUint32n(uint32(i + 1)))
		if j < k {
			reservoir[j] = s.members[i]
		}
	}
	return reservoir
}

// randUint32n is overridable in tests; production code draws from
// kxcodec.ClusterRandom.
var randUint32n = func(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return kxcodec.ClusterRandom() % n
}
