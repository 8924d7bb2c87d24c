package kxmember

import (
	"net"
	"testing"
)

func addr(ip string, port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := New(addr("127.0.0.1", 6500))
	buf := make([]byte, m.EncodedSize())
	n, err := m.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, consumed, err := Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if consumed != n {
		t.Fatalf("consumed %d, wanted %d", consumed, n)
	}
	if !m.Equal(got) {
		t.Fatalf("round-trip mismatch: %+v != %+v", m, got)
	}
}

func TestEncodeBufferNotEnough(t *testing.T) {
	m := New(addr("127.0.0.1", 6500))
	buf := make([]byte, m.EncodedSize()-1)
	if _, err := m.Encode(buf); err != ErrBufferNotEnough {
		t.Fatalf("expected ErrBufferNotEnough, got %v", err)
	}
}

func TestDecodeShortHeader(t *testing.T) {
	if _, _, err := Decode([]byte{1, 2, 3}); err != ErrBufferNotEnough {
		t.Fatalf("expected ErrBufferNotEnough, got %v", err)
	}
}

func TestEqualRequiresAllFields(t *testing.T) {
	a := &Member{Version: 1, UID: 100, Addr: addr("10.0.0.1", 1)}
	b := &Member{Version: 1, UID: 100, Addr: addr("10.0.0.1", 1)}
	if !a.Equal(b) {
		t.Fatal("expected equal")
	}
	c := &Member{Version: 1, UID: 101, Addr: addr("10.0.0.1", 1)}
	if a.Equal(c) {
		t.Fatal("expected not equal on differing uid")
	}
	d := &Member{Version: 1, UID: 100, Addr: addr("10.0.0.2", 1)}
	if a.Equal(d) {
		t.Fatal("expected not equal on differing address")
	}
}

func TestIPv6RoundTrip(t *testing.T) {
	m := New(addr("::1", 9999))
	buf := make([]byte, m.EncodedSize())
	n, err := m.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !m.Equal(got) {
		t.Fatalf("ipv6 round-trip mismatch: %+v != %+v", m, got)
	}
}
