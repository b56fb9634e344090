package packet

import "gdrelay/internal/codec"

// UDP datagram markers (§6 framing).
const (
	UDPMarkerWhole    byte = 0xB1
	UDPMarkerFragment byte = 0xA7
)

// MaxDatagramSize bounds a single UDP datagram's payload (excluding marker).
const MaxDatagramSize = 65000

// MaxFragments is the hard ceiling on a fragmented send; exceeding it fails
// with TooManyChunks.
const MaxFragments = 255

// decodeDefault decodes body using the packet's own DecodeBody: the
// "identical layout" translation path every unlisted packet gets by
// default.
func decodeDefault(reg *Registry, id uint16, body []byte) (Message, error) {
	msg, err := reg.New(id)
	if err != nil {
		return nil, err
	}
	r := codec.NewReader(body)
	if err := msg.DecodeBody(r); err != nil {
		return nil, err
	}
	return msg, nil
}

// encodeDefault encodes msg's body with a growable writer.
func encodeDefault(msg Message) ([]byte, error) {
	w := codec.NewGrowableWriter(64)
	if err := msg.EncodeBody(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Header is the fixed 3-byte packet header preceding every body.
type Header struct {
	ID        uint16
	Encrypted bool
}

// EncodeHeader writes the 3-byte header.
func EncodeHeader(w *codec.Writer, h Header) error {
	if err := w.WriteU16(h.ID); err != nil {
		return err
	}
	return w.WriteBool(h.Encrypted)
}

// DecodeHeader reads the 3-byte header.
func DecodeHeader(r *codec.Reader) (Header, error) {
	var h Header
	var err error
	if h.ID, err = r.ReadU16(); err != nil {
		return h, err
	}
	h.Encrypted, err = r.ReadBool()
	return h, err
}

// FragmentCount returns ceil(len/(mtu-8)), the number of fragments a
// send_fragmented_udp call of the given payload length and MTU produces.
func FragmentCount(payloadLen, mtu int) int {
	chunk := mtu - 8
	if chunk <= 0 {
		chunk = 1
	}
	return (payloadLen + chunk - 1) / chunk
}

// SplitFragments splits payload into ceil(len/(mtu-8)) chunks of at most
// mtu-8 bytes each, the shape send_fragmented_udp emits on the wire (each
// chunk still needs the 6-byte fragment header prepended by the caller).
func SplitFragments(payload []byte, mtu int) ([][]byte, error) {
	chunk := mtu - 8
	if chunk <= 0 {
		chunk = 1
	}
	count := FragmentCount(len(payload), mtu)
	if count > MaxFragments {
		return nil, ErrTooManyChunks
	}
	if len(payload) == 0 {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, count)
	for i := 0; i < len(payload); i += chunk {
		end := i + chunk
		if end > len(payload) {
			end = len(payload)
		}
		out = append(out, payload[i:end])
	}
	return out, nil
}
