// Package kxmember implements the Member identity record and the
// deduplicated, growable Member set described in spec §4.2. A member is a
// peer's identity: a protocol version, a disambiguating uid minted at
// construction time, and a socket address.
package kxmember

import (
	"errors"
	"net"

	"github.com/adred-codev/kxgossip/pkg/kxcodec"
)

// ProtocolVersion is the wire protocol version stamped into every member
// record. spec §3 fixes this at 0x01.
const ProtocolVersion uint16 = 0x01

// addrHeaderSize is the fixed prefix of an encoded address blob: one byte
// family tag (4 or 6) plus a 2-byte port.
const addrHeaderSize = 1 + 2

// ErrBufferNotEnough is returned by Decode when the supplied buffer is
// shorter than the record it claims to hold.
var ErrBufferNotEnough = errors.New("kxmember: buffer not enough")

// Member is a peer identity record: version, uid, and address. Two members
// are equal iff all three fields match byte-exact (spec §3).
type Member struct {
	Version uint16
	UID     uint32
	Addr    *net.UDPAddr
}

// New constructs a member for addr, stamping the current protocol version
// and a uid derived from the wall-clock millisecond timestamp, matching the
// C reference's member_init: "uid is the wall-clock millisecond timestamp
// captured at member construction; it disambiguates rejoining peers."
func New(addr *net.UDPAddr) *Member {
	return &Member{
		Version: ProtocolVersion,
		UID:     uint32(kxcodec.ClusterTime()),
		Addr:    copyAddr(addr),
	}
}

func copyAddr(a *net.UDPAddr) *net.UDPAddr {
	if a == nil {
		return nil
	}
	ipCopy := make(net.IP, len(a.IP))
	copy(ipCopy, a.IP)
	return &net.UDPAddr{IP: ipCopy, Port: a.Port, Zone: a.Zone}
}

// Copy returns a heap-owned duplicate of m. Members stored inside a Set are
// always copies, never aliases of the caller's original (spec §3
// ownership note).
func (m *Member) Copy() *Member {
	if m == nil {
		return nil
	}
	return &Member{Version: m.Version, UID: m.UID, Addr: copyAddr(m.Addr)}
}

// Equal reports whether m and other have byte-exact version, uid, and
// address (spec §3: "Two members are equal iff all four fields match
// byte-exact" — the fourth field, username, never made it onto the wire;
// see spec §9).
func (m *Member) Equal(other *Member) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Version != other.Version || m.UID != other.UID {
		return false
	}
	return addrEqual(m.Addr, other.Addr)
}

func addrEqual(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Port == b.Port && a.IP.Equal(b.IP)
}

// EncodedSize returns the number of bytes Encode will write for m.
func (m *Member) EncodedSize() int {
	return kxcodec.Uint16Size + kxcodec.Uint32Size + kxcodec.Uint32Size + addrEncodedSize(m.Addr)
}

func addrEncodedSize(a *net.UDPAddr) int {
	if a == nil {
		return addrHeaderSize
	}
	if ip4 := a.IP.To4(); ip4 != nil {
		return addrHeaderSize + net.IPv4len
	}
	return addrHeaderSize + net.IPv6len
}

// Encode writes m onto the wire as: u16 version | u32 uid | u32 address_len
// | address_bytes, where address_bytes is an opaque blob (family tag, port,
// IP bytes) per spec §4.2. Returns the number of bytes written, or
// ErrBufferNotEnough if buf is too short.
func (m *Member) Encode(buf []byte) (int, error) {
	need := m.EncodedSize()
	if len(buf) < need {
		return 0, ErrBufferNotEnough
	}
	off := 0
	kxcodec.PutUint16(buf[off:], m.Version)
	off += kxcodec.Uint16Size
	kxcodec.PutUint32(buf[off:], m.UID)
	off += kxcodec.Uint32Size

	addrBlob := encodeAddr(m.Addr)
	kxcodec.PutUint32(buf[off:], uint32(len(addrBlob)))
	off += kxcodec.Uint32Size
	off += copy(buf[off:], addrBlob)
	return off, nil
}

func encodeAddr(a *net.UDPAddr) []byte {
	if a == nil {
		return []byte{0, 0, 0}
	}
	ip4 := a.IP.To4()
	family := byte(6)
	ip := a.IP.To16()
	if ip4 != nil {
		family = 4
		ip = ip4
	}
	blob := make([]byte, addrHeaderSize+len(ip))
	blob[0] = family
	kxcodec.PutUint16(blob[1:3], uint16(a.Port))
	copy(blob[3:], ip)
	return blob
}

func decodeAddr(blob []byte) (*net.UDPAddr, error) {
	if len(blob) < addrHeaderSize {
		return nil, ErrBufferNotEnough
	}
	family := blob[0]
	port := int(kxcodec.Uint16(blob[1:3]))
	ip := blob[3:]
	switch family {
	case 0:
		return nil, nil
	case 4:
		if len(ip) < net.IPv4len {
			return nil, ErrBufferNotEnough
		}
		out := make(net.IP, net.IPv4len)
		copy(out, ip[:net.IPv4len])
		return &net.UDPAddr{IP: out, Port: port}, nil
	case 6:
		if len(ip) < net.IPv6len {
			return nil, ErrBufferNotEnough
		}
		out := make(net.IP, net.IPv6len)
		copy(out, ip[:net.IPv6len])
		return &net.UDPAddr{IP: out, Port: port}, nil
	default:
		return nil, ErrBufferNotEnough
	}
}

// Decode parses a member record from buf, returning the member and the
// number of bytes consumed.
func Decode(buf []byte) (*Member, int, error) {
	if len(buf) < kxcodec.Uint16Size+kxcodec.Uint32Size+kxcodec.Uint32Size {
		return nil, 0, ErrBufferNotEnough
	}
	off := 0
	version := kxcodec.Uint16(buf[off:])
	off += kxcodec.Uint16Size
	uid := kxcodec.Uint32(buf[off:])
	off += kxcodec.Uint32Size
	addrLen := int(kxcodec.Uint32(buf[off:]))
	off += kxcodec.Uint32Size
	if len(buf) < off+addrLen {
		return nil, 0, ErrBufferNotEnough
	}
	addr, err := decodeAddr(buf[off : off+addrLen])
	if err != nil {
		return nil, 0, err
	}
	off += addrLen
	return &Member{Version: version, UID: uid, Addr: addr}, off, nil
}

// ID returns the member's identity for versioning purposes: the uid,
// zero-extended to 64 bits, as spec §3 prescribes for vector_record's
// member_id field.
func (m *Member) ID() uint64 {
	return uint64(m.UID)
}
