package packet

import "gdrelay/internal/codec"

// LegacyProtocolVersion is the one older protocol version this build keeps
// translation scaffolding for (§9: "the translator ships with the
// scaffolding for N-1 only"). A deployment that needs to keep talking to
// older clients still configures which versions remain supported; this is
// the one concrete set of overrides proving the scaffolding actually
// works end to end.
const LegacyProtocolVersion uint16 = CurrentVersion - 1

// RegisterLegacyTranslations installs the N-1 overrides. A v2 client never
// sent or understood the Rotation field PlayerData grew in v3: decoding a
// v2 body leaves Rotation at its zero value, and encoding a v3 PlayerData
// down to a v2 client silently drops it instead of failing the send.
func RegisterLegacyTranslations(t *Translator) {
	t.RegisterDecode(LegacyProtocolVersion, IDPlayerData, decodeLegacyPlayerData)
	t.RegisterEncode(LegacyProtocolVersion, IDPlayerData, encodeLegacyPlayerData)
}

func decodeLegacyPlayerData(body []byte) (Message, error) {
	r := codec.NewReader(body)
	m := &PlayerDataPacket{}
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return nil, err
	}
	if m.LevelID, err = r.ReadI32(); err != nil {
		return nil, err
	}
	if m.X, err = r.ReadFiniteF32(); err != nil {
		return nil, err
	}
	if m.Y, err = r.ReadFiniteF32(); err != nil {
		return nil, err
	}
	if m.Flags, err = r.ReadBitfield(8); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeLegacyPlayerData(msg Message) ([]byte, error) {
	m, ok := msg.(*PlayerDataPacket)
	if !ok {
		return nil, ErrUnsupportedProtocol
	}
	w := codec.NewGrowableWriter(64)
	if err := w.WriteI32(m.AccountID); err != nil {
		return nil, err
	}
	if err := w.WriteI32(m.LevelID); err != nil {
		return nil, err
	}
	if err := w.WriteFiniteF32(m.X); err != nil {
		return nil, err
	}
	if err := w.WriteFiniteF32(m.Y); err != nil {
		return nil, err
	}
	if err := w.WriteBitfield(m.Flags); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
