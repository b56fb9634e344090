package packet

import "testing"

func TestLegacyPlayerDataDropsRotation(t *testing.T) {
	tr := NewTranslator()
	RegisterLegacyTranslations(tr)

	original := &PlayerDataPacket{AccountID: 7, LevelID: 3, X: 1.5, Y: -2.5, Rotation: 90, Flags: make([]bool, 8)}
	body, err := tr.EncodeOutgoing(LegacyProtocolVersion, original)
	if err != nil {
		t.Fatalf("EncodeOutgoing: %v", err)
	}

	reg := NewRegistry()
	decoded, err := tr.DecodeIncoming(reg, LegacyProtocolVersion, IDPlayerData, body)
	if err != nil {
		t.Fatalf("DecodeIncoming: %v", err)
	}
	pd, ok := decoded.(*PlayerDataPacket)
	if !ok {
		t.Fatalf("decoded type = %T, want *PlayerDataPacket", decoded)
	}
	if pd.AccountID != original.AccountID || pd.LevelID != original.LevelID || pd.X != original.X || pd.Y != original.Y {
		t.Fatalf("decoded fields mismatch: %+v", pd)
	}
	if pd.Rotation != 0 {
		t.Fatalf("Rotation = %v, want 0 (not carried over the legacy wire)", pd.Rotation)
	}
}

func TestLegacyPlayerDataIncomingRoundTrips(t *testing.T) {
	tr := NewTranslator()
	RegisterLegacyTranslations(tr)
	reg := NewRegistry()

	w := &PlayerDataPacket{AccountID: 1, LevelID: 2, X: 10, Y: 20, Flags: make([]bool, 8)}
	body, err := encodeLegacyPlayerData(w)
	if err != nil {
		t.Fatalf("encodeLegacyPlayerData: %v", err)
	}
	decoded, err := tr.DecodeIncoming(reg, LegacyProtocolVersion, IDPlayerData, body)
	if err != nil {
		t.Fatalf("DecodeIncoming: %v", err)
	}
	if decoded.(*PlayerDataPacket).X != 10 {
		t.Fatalf("X not preserved across legacy decode")
	}
}

func TestCurrentVersionNeverTranslated(t *testing.T) {
	tr := NewTranslator()
	RegisterLegacyTranslations(tr)
	reg := NewRegistry()

	original := &PlayerDataPacket{AccountID: 1, LevelID: 2, X: 1, Y: 2, Rotation: 45, Flags: make([]bool, 8)}
	body, err := tr.EncodeOutgoing(CurrentVersion, original)
	if err != nil {
		t.Fatalf("EncodeOutgoing: %v", err)
	}
	decoded, err := tr.DecodeIncoming(reg, CurrentVersion, IDPlayerData, body)
	if err != nil {
		t.Fatalf("DecodeIncoming: %v", err)
	}
	if decoded.(*PlayerDataPacket).Rotation != 45 {
		t.Fatal("CurrentVersion must carry Rotation through untouched")
	}
}
