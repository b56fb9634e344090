package packet

// Translator rewrites packets between the current protocol version and an
// older version a connected client announced. The default behavior for any
// packet not explicitly registered is "identical layout": every packet
// type must still opt in by being absent from, or present in, the relevant
// map; silently assuming an unlisted packet is safe to pass through is the
// documented default, not an oversight.
type Translator struct {
	// decodeOverrides[fromVersion][id] decodes a body an old client sent in
	// its older layout into the current in-memory representation.
	decodeOverrides map[uint16]map[uint16]func(body []byte) (Message, error)
	// encodeOverrides[toVersion][id] re-encodes a current Message into the
	// layout an old client expects.
	encodeOverrides map[uint16]map[uint16]func(Message) ([]byte, error)
}

// NewTranslator returns a translator with no overrides registered; only the
// current and immediately-previous protocol version are expected to carry
// overrides in a given build (§9): older versions are a configuration
// concern, not a code one.
func NewTranslator() *Translator {
	return &Translator{
		decodeOverrides: make(map[uint16]map[uint16]func([]byte) (Message, error)),
		encodeOverrides: make(map[uint16]map[uint16]func(Message) ([]byte, error)),
	}
}

// RegisterDecode installs a decode override for packets of id sent by
// clients announcing clientVersion.
func (t *Translator) RegisterDecode(clientVersion, id uint16, fn func([]byte) (Message, error)) {
	m, ok := t.decodeOverrides[clientVersion]
	if !ok {
		m = make(map[uint16]func([]byte) (Message, error))
		t.decodeOverrides[clientVersion] = m
	}
	m[id] = fn
}

// RegisterEncode installs an encode override producing the layout clients
// announcing clientVersion expect.
func (t *Translator) RegisterEncode(clientVersion, id uint16, fn func(Message) ([]byte, error)) {
	m, ok := t.encodeOverrides[clientVersion]
	if !ok {
		m = make(map[uint16]func(Message) ([]byte, error))
		t.encodeOverrides[clientVersion] = m
	}
	m[id] = fn
}

// DecodeIncoming decodes body for a packet of id from a client announcing
// clientVersion, falling back to the registry's default (current-layout)
// decode when no override exists for that (version, id) pair.
func (t *Translator) DecodeIncoming(reg *Registry, clientVersion, id uint16, body []byte) (Message, error) {
	if clientVersion == NoTranslate || clientVersion == CurrentVersion {
		return decodeDefault(reg, id, body)
	}
	if m, ok := t.decodeOverrides[clientVersion]; ok {
		if fn, ok := m[id]; ok {
			return fn(body)
		}
	}
	return decodeDefault(reg, id, body)
}

// EncodeOutgoing encodes msg for delivery to a client announcing
// clientVersion. If that version cannot represent msg's type at all (a
// future/removed packet), the caller should treat ErrUnsupportedProtocol as
// "drop this send for this recipient".
func (t *Translator) EncodeOutgoing(clientVersion uint16, msg Message) ([]byte, error) {
	id := msg.Descriptor().ID
	if clientVersion != NoTranslate && clientVersion != CurrentVersion {
		if m, ok := t.encodeOverrides[clientVersion]; ok {
			if fn, ok := m[id]; ok {
				return fn(msg)
			}
		}
	}
	return encodeDefault(msg)
}
