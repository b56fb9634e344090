package client

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"gdrelay/internal/packet"
)

// InlineBufferSize is the threshold below which recv_exact uses a fixed
// stack-sized buffer instead of a heap allocation.
const InlineBufferSize = 160

// MaxPacketSize is the hard cap on a single TCP frame's body; exceeding it
// fails with ErrPacketTooLong rather than growing unbounded.
const MaxPacketSize = 65536

// WriteTimeout bounds how long a single send may block before failing.
const WriteTimeout = 5 * time.Second

var (
	ErrPacketTooLong    = errors.New("client: packet exceeds max size")
	ErrHTTPPrefix       = errors.New("client: stream begins with an HTTP request line")
	ErrSocketSendFailed = errors.New("client: socket send failed")
)

// httpPrefixes are the request-line prefixes that indicate a browser or
// health-checker connected to the raw game port by mistake; they are
// rejected immediately rather than waited out as malformed framing.
var httpPrefixes = [][4]byte{
	{'G', 'E', 'T', ' '},
	{'P', 'O', 'S', 'T'},
	{'H', 'E', 'A', 'D'},
	{'P', 'U', 'T', ' '},
}

// fragmentHeaderSize is the per-fragment header prepended to each chunk
// packet.SplitFragments produces: message id (2) ‖ total payload length (2)
// ‖ fragment index (1) ‖ fragment count (1).
const fragmentHeaderSize = 6

// Socket owns one TCP stream and, after claim, one UDP destination address
// reachable through a shared *net.UDPConn.
type Socket struct {
	tcp     net.Conn
	udpConn *net.UDPConn // shared across all clients; not owned
	udpAddr *net.UDPAddr

	nextMessageID atomic.Uint32
}

func NewSocket(tcp net.Conn, shared *net.UDPConn) *Socket {
	return &Socket{tcp: tcp, udpConn: shared}
}

// SetUDPPeer binds the UDP destination after a successful claim.
func (s *Socket) SetUDPPeer(addr *net.UDPAddr) { s.udpAddr = addr }

// UDPPeer returns the claimed UDP destination, or nil if unclaimed.
func (s *Socket) UDPPeer() *net.UDPAddr { return s.udpAddr }

// PollTCPLength reads the 4-byte big-endian length prefix of the next TCP
// frame. A prefix that spells out an HTTP request line triggers immediate
// disconnection instead of being treated as a (nonsensical) length.
func (s *Socket) PollTCPLength() (uint32, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(s.tcp, hdr[:]); err != nil {
		return 0, err
	}
	for _, prefix := range httpPrefixes {
		if hdr == prefix {
			return 0, ErrHTTPPrefix
		}
	}
	return binary.BigEndian.Uint32(hdr[:]), nil
}

// RecvExact reads exactly n bytes, using an inline (stack-sized, here just
// a small fixed-capacity slice) buffer when n <= InlineBufferSize and a
// heap buffer otherwise. n above MaxPacketSize fails outright.
func (s *Socket) RecvExact(n uint32) ([]byte, error) {
	if n > MaxPacketSize {
		return nil, ErrPacketTooLong
	}
	var buf []byte
	if n <= InlineBufferSize {
		var inline [InlineBufferSize]byte
		buf = inline[:n]
	} else {
		buf = make([]byte, n)
	}
	if _, err := io.ReadFull(s.tcp, buf); err != nil {
		return nil, err
	}
	// The inline buffer's backing array is about to go out of scope on
	// return, so copy it to a heap slice the caller can retain safely.
	if n <= InlineBufferSize {
		out := make([]byte, n)
		copy(out, buf)
		return out, nil
	}
	return buf, nil
}

// SendTCP writes a complete framed TCP message: u32 length ‖ body. It
// enforces WriteTimeout via the connection's write deadline.
func (s *Socket) SendTCP(body []byte) error {
	if err := s.tcp.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return err
	}
	defer s.tcp.SetWriteDeadline(time.Time{})

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := s.tcp.Write(hdr[:]); err != nil {
		return errors.Join(ErrSocketSendFailed, err)
	}
	if _, err := s.tcp.Write(body); err != nil {
		return errors.Join(ErrSocketSendFailed, err)
	}
	return nil
}

// SendUDPWhole sends payload as a single 0xB1-marked datagram to the
// claimed peer.
func (s *Socket) SendUDPWhole(payload []byte) error {
	if s.udpAddr == nil {
		return errors.New("client: no claimed UDP peer")
	}
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, 0xB1)
	buf = append(buf, payload...)
	_, err := s.udpConn.WriteToUDP(buf, s.udpAddr)
	return err
}

// SendUDPFragmented splits payload per packet.SplitFragments's mtu budget
// and sends each chunk as its own 0xA7-marked datagram, for a framed
// message too large to fit SendUDPWhole's single-datagram path
// (§4.D send_fragmented_udp). Fragments of one call share a message id so
// the receiver can tell them apart from any other fragmented send in
// flight to the same peer.
func (s *Socket) SendUDPFragmented(payload []byte, mtu int) error {
	if s.udpAddr == nil {
		return errors.New("client: no claimed UDP peer")
	}
	chunks, err := packet.SplitFragments(payload, mtu)
	if err != nil {
		return err
	}
	messageID := uint16(s.nextMessageID.Add(1))
	total := uint16(len(payload))
	for i, chunk := range chunks {
		buf := make([]byte, 0, 1+fragmentHeaderSize+len(chunk))
		buf = append(buf, packet.UDPMarkerFragment)
		var hdr [fragmentHeaderSize]byte
		binary.BigEndian.PutUint16(hdr[0:2], messageID)
		binary.BigEndian.PutUint16(hdr[2:4], total)
		hdr[4] = byte(i)
		hdr[5] = byte(len(chunks))
		buf = append(buf, hdr[:]...)
		buf = append(buf, chunk...)
		if _, err := s.udpConn.WriteToUDP(buf, s.udpAddr); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying TCP stream. UDP is a shared socket and is
// never closed per-client.
func (s *Socket) Close() error {
	if s.tcp == nil {
		return nil
	}
	return s.tcp.Close()
}
