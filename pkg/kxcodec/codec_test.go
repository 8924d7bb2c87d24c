package kxcodec

import "testing"

func TestUint16RoundTrip(t *testing.T) {
	cases := []uint16{0, 1, 255, 256, 65535}
	for _, v := range cases {
		buf := make([]byte, Uint16Size)
		PutUint16(buf, v)
		if got := Uint16(buf); got != v {
			t.Fatalf("Uint16(PutUint16(%d)) = %d", v, got)
		}
	}
}

func TestUint32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 65535, 65536, 4294967295}
	for _, v := range cases {
		buf := make([]byte, Uint32Size)
		PutUint32(buf, v)
		if got := Uint32(buf); got != v {
			t.Fatalf("Uint32(PutUint32(%d)) = %d", v, got)
		}
	}
}

func TestUint64RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 1 << 40, 1<<64 - 1}
	for _, v := range cases {
		buf := make([]byte, 8)
		PutUint64(buf, v)
		if got := Uint64(buf); got != v {
			t.Fatalf("Uint64(PutUint64(%d)) = %d", v, got)
		}
	}
}

func TestClusterTimeMonotonicish(t *testing.T) {
	a := ClusterTime()
	b := ClusterTime()
	if b < a {
		t.Fatalf("ClusterTime went backwards: %d then %d", a, b)
	}
}

func TestClusterRandomVaries(t *testing.T) {
	seen := map[uint32]bool{}
	for i := 0; i < 32; i++ {
		seen[ClusterRandom()] = true
	}
	if len(seen) < 16 {
		t.Fatalf("ClusterRandom produced too few distinct values: %d/32", len(seen))
	}
}
