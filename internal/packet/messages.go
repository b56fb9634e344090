package packet

import "gdrelay/internal/codec"

const (
	MaxNameLen     = 24
	MaxRoomNameLen = 32
	MaxPasswordLen = 16
	MaxChatLen     = 192
	MaxReasonLen   = 128
)

// allMessages lists a zero-value constructor per packet type; NewRegistry
// walks this to populate its id→factory map.
var allMessages = []func() Message{
	func() Message { return &CryptoHandshakeStart{} },
	func() Message { return &CryptoHandshakeReply{} },
	func() Message { return &LoginPacket{} },
	func() Message { return &LoggedIn{} },
	func() Message { return &LoginRecover{} },
	func() Message { return &LoginRecoveryFailed{} },
	func() Message { return &ClaimThread{} },
	func() Message { return &Ping{} },
	func() Message { return &Pong{} },
	func() Message { return &ServerDisconnect{} },
	func() Message { return &ServerBanned{} },
	func() Message { return &ProtocolMismatch{} },
	func() Message { return &TerminationNotice{} },

	func() Message { return &PlayerDataPacket{} },
	func() Message { return &LevelDataPacket{} },
	func() Message { return &PlayerMetadataPacket{} },
	func() Message { return &VoicePacket{} },
	func() Message { return &VoiceBroadcast{} },
	func() Message { return &ChatPacket{} },
	func() Message { return &ChatBroadcast{} },

	func() Message { return &CreateRoom{} },
	func() Message { return &JoinRoom{} },
	func() Message { return &LeaveRoom{} },
	func() Message { return &RoomCreateFailed{} },
	func() Message { return &RoomInfo{} },
	func() Message { return &RoomPlayerList{} },

	func() Message { return &AdminAuth{} },
	func() Message { return &AdminAuthFailed{} },
	func() Message { return &AdminSendNotice{} },
	func() Message { return &AdminKick{} },
	func() Message { return &AdminPunishUser{} },
	func() Message { return &AdminSuccessfulUpdate{} },
	func() Message { return &AdminError{} },
	func() Message { return &SpecialUserData{} },
}

// --- connection group ---

type CryptoHandshakeStart struct {
	Protocol  uint16
	PublicKey [32]byte
}

func (*CryptoHandshakeStart) Descriptor() Descriptor {
	return Descriptor{ID: IDCryptoHandshakeStart, Name: "CryptoHandshakeStart", Encrypted: false, PreferTCP: true}
}
func (m *CryptoHandshakeStart) EncodeBody(w *codec.Writer) error {
	if err := w.WriteU16(m.Protocol); err != nil {
		return err
	}
	return w.WriteBytes(m.PublicKey[:])
}
func (m *CryptoHandshakeStart) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadU16()
	if err != nil {
		return err
	}
	m.Protocol = v
	b, err := r.ReadBytes(32)
	if err != nil {
		return err
	}
	copy(m.PublicKey[:], b)
	return nil
}

type CryptoHandshakeReply struct {
	PublicKey [32]byte
}

func (*CryptoHandshakeReply) Descriptor() Descriptor {
	return Descriptor{ID: IDCryptoHandshakeReply, Name: "CryptoHandshakeReply", Encrypted: false, PreferTCP: true}
}
func (m *CryptoHandshakeReply) EncodeBody(w *codec.Writer) error { return w.WriteBytes(m.PublicKey[:]) }
func (m *CryptoHandshakeReply) DecodeBody(r *codec.Reader) error {
	b, err := r.ReadBytes(32)
	if err != nil {
		return err
	}
	copy(m.PublicKey[:], b)
	return nil
}

type LoginPacket struct {
	AccountID          int32
	UserID             int32
	Name               string
	Token              string
	Icons              uint32
	FragmentationLimit uint16
	PrivacyFlags       []bool
}

func (*LoginPacket) Descriptor() Descriptor {
	return Descriptor{ID: IDLoginPacket, Name: "LoginPacket", Encrypted: true, PreferTCP: true}
}
func (m *LoginPacket) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	if err := w.WriteI32(m.UserID); err != nil {
		return err
	}
	if err := w.WriteInlineString(m.Name, MaxNameLen); err != nil {
		return err
	}
	if err := w.WriteInlineString(m.Token, 512); err != nil {
		return err
	}
	if err := w.WriteU32(m.Icons); err != nil {
		return err
	}
	if err := w.WriteU16(m.FragmentationLimit); err != nil {
		return err
	}
	return w.WriteBitfield(m.PrivacyFlags)
}
func (m *LoginPacket) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.UserID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.Name, err = r.ReadInlineString(MaxNameLen); err != nil {
		return err
	}
	if m.Token, err = r.ReadInlineString(512); err != nil {
		return err
	}
	if m.Icons, err = r.ReadU32(); err != nil {
		return err
	}
	if m.FragmentationLimit, err = r.ReadU16(); err != nil {
		return err
	}
	if m.PrivacyFlags, err = r.ReadBitfield(4); err != nil {
		return err
	}
	return nil
}

type LoggedIn struct {
	TPS             uint8
	AllRoles        []byte // opaque serialized role table, sized by server
	SecretKey       uint32
	SpecialUserData []byte
	Protocol        uint16
}

func (*LoggedIn) Descriptor() Descriptor {
	return Descriptor{ID: IDLoggedIn, Name: "LoggedIn", Encrypted: true, PreferTCP: true}
}
func (m *LoggedIn) EncodeBody(w *codec.Writer) error {
	if err := w.WriteU8(m.TPS); err != nil {
		return err
	}
	if err := w.WriteSeqHeader(len(m.AllRoles)); err != nil {
		return err
	}
	if err := w.WriteBytes(m.AllRoles); err != nil {
		return err
	}
	if err := w.WriteU32(m.SecretKey); err != nil {
		return err
	}
	if err := w.WriteSeqHeader(len(m.SpecialUserData)); err != nil {
		return err
	}
	if err := w.WriteBytes(m.SpecialUserData); err != nil {
		return err
	}
	return w.WriteU16(m.Protocol)
}
func (m *LoggedIn) DecodeBody(r *codec.Reader) error {
	var err error
	if m.TPS, err = r.ReadU8(); err != nil {
		return err
	}
	n, err := r.ReadSeqHeader()
	if err != nil {
		return err
	}
	if m.AllRoles, err = r.ReadBytes(n); err != nil {
		return err
	}
	if m.SecretKey, err = r.ReadU32(); err != nil {
		return err
	}
	n2, err := r.ReadSeqHeader()
	if err != nil {
		return err
	}
	if m.SpecialUserData, err = r.ReadBytes(n2); err != nil {
		return err
	}
	if m.Protocol, err = r.ReadU16(); err != nil {
		return err
	}
	return nil
}

type LoginRecover struct {
	AccountID int32
	SecretKey uint32
}

func (*LoginRecover) Descriptor() Descriptor {
	return Descriptor{ID: IDLoginRecover, Name: "LoginRecover", Encrypted: true, PreferTCP: true}
}
func (m *LoginRecover) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	return w.WriteU32(m.SecretKey)
}
func (m *LoginRecover) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.SecretKey, err = r.ReadU32()
	return err
}

type LoginRecoveryFailed struct{}

func (*LoginRecoveryFailed) Descriptor() Descriptor {
	return Descriptor{ID: IDLoginRecoveryFailed, Name: "LoginRecoveryFailed", Encrypted: false, PreferTCP: true}
}
func (*LoginRecoveryFailed) EncodeBody(w *codec.Writer) error { return nil }
func (*LoginRecoveryFailed) DecodeBody(r *codec.Reader) error { return nil }

// ClaimThread is the tiny unencrypted UDP datagram that binds a session.
type ClaimThread struct {
	AccountID int32
	SecretKey uint32
}

func (*ClaimThread) Descriptor() Descriptor {
	return Descriptor{ID: IDClaimThread, Name: "ClaimThread", Encrypted: false, PreferTCP: false}
}
func (m *ClaimThread) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	return w.WriteU32(m.SecretKey)
}
func (m *ClaimThread) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.SecretKey, err = r.ReadU32()
	return err
}

type Ping struct{ ID uint32 }

func (*Ping) Descriptor() Descriptor {
	return Descriptor{ID: IDPing, Name: "Ping", Encrypted: false, PreferTCP: false}
}
func (m *Ping) EncodeBody(w *codec.Writer) error { return w.WriteU32(m.ID) }
func (m *Ping) DecodeBody(r *codec.Reader) error { v, err := r.ReadU32(); m.ID = v; return err }

type Pong struct {
	ID          uint32
	PlayerCount uint32
}

func (*Pong) Descriptor() Descriptor {
	return Descriptor{ID: IDPong, Name: "Pong", Encrypted: false, PreferTCP: false}
}
func (m *Pong) EncodeBody(w *codec.Writer) error {
	if err := w.WriteU32(m.ID); err != nil {
		return err
	}
	return w.WriteU32(m.PlayerCount)
}
func (m *Pong) DecodeBody(r *codec.Reader) error {
	var err error
	if m.ID, err = r.ReadU32(); err != nil {
		return err
	}
	m.PlayerCount, err = r.ReadU32()
	return err
}

type ServerDisconnect struct{ Message string }

func (*ServerDisconnect) Descriptor() Descriptor {
	return Descriptor{ID: IDServerDisconnect, Name: "ServerDisconnect", Encrypted: false, PreferTCP: true}
}
func (m *ServerDisconnect) EncodeBody(w *codec.Writer) error {
	return w.WriteInlineString(m.Message, 256)
}
func (m *ServerDisconnect) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadInlineString(256)
	m.Message = v
	return err
}

type ServerBanned struct {
	Message   string
	Timestamp int64
}

func (*ServerBanned) Descriptor() Descriptor {
	return Descriptor{ID: IDServerBanned, Name: "ServerBanned", Encrypted: false, PreferTCP: true}
}
func (m *ServerBanned) EncodeBody(w *codec.Writer) error {
	if err := w.WriteInlineString(m.Message, MaxReasonLen); err != nil {
		return err
	}
	return w.WriteI64(m.Timestamp)
}
func (m *ServerBanned) DecodeBody(r *codec.Reader) error {
	var err error
	if m.Message, err = r.ReadInlineString(MaxReasonLen); err != nil {
		return err
	}
	m.Timestamp, err = r.ReadI64()
	return err
}

type ProtocolMismatch struct{ ServerProtocol uint16 }

func (*ProtocolMismatch) Descriptor() Descriptor {
	return Descriptor{ID: IDProtocolMismatch, Name: "ProtocolMismatch", Encrypted: false, PreferTCP: true}
}
func (m *ProtocolMismatch) EncodeBody(w *codec.Writer) error { return w.WriteU16(m.ServerProtocol) }
func (m *ProtocolMismatch) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadU16()
	m.ServerProtocol = v
	return err
}

type TerminationNotice struct{ Message string }

func (*TerminationNotice) Descriptor() Descriptor {
	return Descriptor{ID: IDTerminationNotice, Name: "TerminationNotice", Encrypted: false, PreferTCP: true}
}
func (m *TerminationNotice) EncodeBody(w *codec.Writer) error {
	return w.WriteInlineString(m.Message, 256)
}
func (m *TerminationNotice) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadInlineString(256)
	m.Message = v
	return err
}

// --- game group ---

type PlayerDataPacket struct {
	AccountID int32
	LevelID   int32
	X, Y      float32
	Rotation  float32
	Flags     []bool
}

func (*PlayerDataPacket) Descriptor() Descriptor {
	return Descriptor{ID: IDPlayerData, Name: "PlayerData", Encrypted: false, PreferTCP: false}
}
func (m *PlayerDataPacket) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	if err := w.WriteI32(m.LevelID); err != nil {
		return err
	}
	if err := w.WriteFiniteF32(m.X); err != nil {
		return err
	}
	if err := w.WriteFiniteF32(m.Y); err != nil {
		return err
	}
	if err := w.WriteFiniteF32(m.Rotation); err != nil {
		return err
	}
	return w.WriteBitfield(m.Flags)
}
func (m *PlayerDataPacket) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.LevelID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.X, err = r.ReadFiniteF32(); err != nil {
		return err
	}
	if m.Y, err = r.ReadFiniteF32(); err != nil {
		return err
	}
	if m.Rotation, err = r.ReadFiniteF32(); err != nil {
		return err
	}
	if m.Flags, err = r.ReadBitfield(8); err != nil {
		return err
	}
	return nil
}

// AssociatedPlayerData is one other player's pose as seen in a LevelData
// aggregate. sizeof() is used by the broadcast engine's fragmentation
// estimate: 4 (account id) + 12 (x,y,rot) + 1 (flags byte) = 17 bytes.
type AssociatedPlayerData struct {
	AccountID int32
	X, Y      float32
	Rotation  float32
	Flags     []bool
}

const AssociatedPlayerDataSize = 17

func encodeAssociated(w *codec.Writer, a AssociatedPlayerData) error {
	if err := w.WriteI32(a.AccountID); err != nil {
		return err
	}
	if err := w.WriteFiniteF32(a.X); err != nil {
		return err
	}
	if err := w.WriteFiniteF32(a.Y); err != nil {
		return err
	}
	if err := w.WriteFiniteF32(a.Rotation); err != nil {
		return err
	}
	return w.WriteBitfield(a.Flags)
}

func decodeAssociated(r *codec.Reader) (AssociatedPlayerData, error) {
	var a AssociatedPlayerData
	var err error
	if a.AccountID, err = r.ReadI32(); err != nil {
		return a, err
	}
	if a.X, err = r.ReadFiniteF32(); err != nil {
		return a, err
	}
	if a.Y, err = r.ReadFiniteF32(); err != nil {
		return a, err
	}
	if a.Rotation, err = r.ReadFiniteF32(); err != nil {
		return a, err
	}
	a.Flags, err = r.ReadBitfield(8)
	return a, err
}

type LevelDataPacket struct {
	Players []AssociatedPlayerData
}

func (*LevelDataPacket) Descriptor() Descriptor {
	return Descriptor{ID: IDLevelData, Name: "LevelData", Encrypted: false, PreferTCP: false}
}
func (m *LevelDataPacket) EncodeBody(w *codec.Writer) error {
	if err := w.WriteSeqHeader(len(m.Players)); err != nil {
		return err
	}
	for _, p := range m.Players {
		if err := encodeAssociated(w, p); err != nil {
			return err
		}
	}
	return nil
}
func (m *LevelDataPacket) DecodeBody(r *codec.Reader) error {
	n, err := r.ReadSeqHeader()
	if err != nil {
		return err
	}
	m.Players = make([]AssociatedPlayerData, 0, n)
	for i := 0; i < n; i++ {
		p, err := decodeAssociated(r)
		if err != nil {
			return err
		}
		m.Players = append(m.Players, p)
	}
	return nil
}

type PlayerMetadataPacket struct {
	AccountID int32
	LevelID   int32
	Attempts  uint32
	BestPct   uint16
}

func (*PlayerMetadataPacket) Descriptor() Descriptor {
	return Descriptor{ID: IDPlayerMetadata, Name: "PlayerMetadata", Encrypted: false, PreferTCP: true}
}
func (m *PlayerMetadataPacket) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	if err := w.WriteI32(m.LevelID); err != nil {
		return err
	}
	if err := w.WriteU32(m.Attempts); err != nil {
		return err
	}
	return w.WriteU16(m.BestPct)
}
func (m *PlayerMetadataPacket) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.LevelID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.Attempts, err = r.ReadU32(); err != nil {
		return err
	}
	m.BestPct, err = r.ReadU16()
	return err
}

// MaxVoicePacketBytes is the moderation-gate ceiling on raw opus payload.
const MaxVoicePacketBytes = 4096

type VoicePacket struct{ Opus []byte }

func (*VoicePacket) Descriptor() Descriptor {
	return Descriptor{ID: IDVoicePacket, Name: "VoicePacket", Encrypted: false, PreferTCP: false}
}
func (m *VoicePacket) EncodeBody(w *codec.Writer) error {
	if err := w.WriteSeqHeader(len(m.Opus)); err != nil {
		return err
	}
	return w.WriteBytes(m.Opus)
}
func (m *VoicePacket) DecodeBody(r *codec.Reader) error {
	n, err := r.ReadSeqHeader()
	if err != nil {
		return err
	}
	m.Opus, err = r.ReadBytes(n)
	return err
}

type VoiceBroadcast struct {
	SenderAccountID int32
	Opus            []byte
}

func (*VoiceBroadcast) Descriptor() Descriptor {
	return Descriptor{ID: IDVoiceBroadcast, Name: "VoiceBroadcast", Encrypted: false, PreferTCP: false}
}
func (m *VoiceBroadcast) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.SenderAccountID); err != nil {
		return err
	}
	if err := w.WriteSeqHeader(len(m.Opus)); err != nil {
		return err
	}
	return w.WriteBytes(m.Opus)
}
func (m *VoiceBroadcast) DecodeBody(r *codec.Reader) error {
	var err error
	if m.SenderAccountID, err = r.ReadI32(); err != nil {
		return err
	}
	n, err := r.ReadSeqHeader()
	if err != nil {
		return err
	}
	m.Opus, err = r.ReadBytes(n)
	return err
}

type ChatPacket struct{ Message string }

func (*ChatPacket) Descriptor() Descriptor {
	return Descriptor{ID: IDChatPacket, Name: "ChatPacket", Encrypted: false, PreferTCP: true}
}
func (m *ChatPacket) EncodeBody(w *codec.Writer) error {
	return w.WriteInlineString(m.Message, MaxChatLen)
}
func (m *ChatPacket) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadInlineString(MaxChatLen)
	m.Message = v
	return err
}

type ChatBroadcast struct {
	SenderAccountID int32
	Message         string
}

func (*ChatBroadcast) Descriptor() Descriptor {
	return Descriptor{ID: IDChatBroadcast, Name: "ChatBroadcast", Encrypted: false, PreferTCP: true}
}
func (m *ChatBroadcast) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.SenderAccountID); err != nil {
		return err
	}
	return w.WriteInlineString(m.Message, MaxChatLen)
}
func (m *ChatBroadcast) DecodeBody(r *codec.Reader) error {
	var err error
	if m.SenderAccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.Message, err = r.ReadInlineString(MaxChatLen)
	return err
}

// --- room group ---

type CreateRoom struct {
	Name        string
	Password    string
	PlayerLimit uint8
	Flags       []bool
}

func (*CreateRoom) Descriptor() Descriptor {
	return Descriptor{ID: IDCreateRoom, Name: "CreateRoom", Encrypted: true, PreferTCP: true}
}
func (m *CreateRoom) EncodeBody(w *codec.Writer) error {
	if err := w.WriteInlineString(m.Name, MaxRoomNameLen); err != nil {
		return err
	}
	if err := w.WriteInlineString(m.Password, MaxPasswordLen); err != nil {
		return err
	}
	if err := w.WriteU8(m.PlayerLimit); err != nil {
		return err
	}
	return w.WriteBitfield(m.Flags)
}
func (m *CreateRoom) DecodeBody(r *codec.Reader) error {
	var err error
	if m.Name, err = r.ReadInlineString(MaxRoomNameLen); err != nil {
		return err
	}
	if m.Password, err = r.ReadInlineString(MaxPasswordLen); err != nil {
		return err
	}
	if m.PlayerLimit, err = r.ReadU8(); err != nil {
		return err
	}
	m.Flags, err = r.ReadBitfield(4)
	return err
}

type JoinRoom struct {
	RoomID   uint32
	Password string
}

func (*JoinRoom) Descriptor() Descriptor {
	return Descriptor{ID: IDJoinRoom, Name: "JoinRoom", Encrypted: true, PreferTCP: true}
}
func (m *JoinRoom) EncodeBody(w *codec.Writer) error {
	if err := w.WriteU32(m.RoomID); err != nil {
		return err
	}
	return w.WriteInlineString(m.Password, MaxPasswordLen)
}
func (m *JoinRoom) DecodeBody(r *codec.Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	m.Password, err = r.ReadInlineString(MaxPasswordLen)
	return err
}

type LeaveRoom struct{}

func (*LeaveRoom) Descriptor() Descriptor {
	return Descriptor{ID: IDLeaveRoom, Name: "LeaveRoom", Encrypted: true, PreferTCP: true}
}
func (*LeaveRoom) EncodeBody(w *codec.Writer) error { return nil }
func (*LeaveRoom) DecodeBody(r *codec.Reader) error { return nil }

type RoomCreateFailed struct{ Reason string }

func (*RoomCreateFailed) Descriptor() Descriptor {
	return Descriptor{ID: IDRoomCreateFailed, Name: "RoomCreateFailed", Encrypted: false, PreferTCP: true}
}
func (m *RoomCreateFailed) EncodeBody(w *codec.Writer) error {
	return w.WriteInlineString(m.Reason, 128)
}
func (m *RoomCreateFailed) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadInlineString(128)
	m.Reason = v
	return err
}

type RoomInfo struct {
	RoomID      uint32
	Name        string
	OwnerID     int32
	PlayerLimit uint8
	PlayerCount uint32
	Flags       []bool
}

func (*RoomInfo) Descriptor() Descriptor {
	return Descriptor{ID: IDRoomInfo, Name: "RoomInfo", Encrypted: false, PreferTCP: true}
}
func (m *RoomInfo) EncodeBody(w *codec.Writer) error {
	if err := w.WriteU32(m.RoomID); err != nil {
		return err
	}
	if err := w.WriteInlineString(m.Name, MaxRoomNameLen); err != nil {
		return err
	}
	if err := w.WriteI32(m.OwnerID); err != nil {
		return err
	}
	if err := w.WriteU8(m.PlayerLimit); err != nil {
		return err
	}
	if err := w.WriteU32(m.PlayerCount); err != nil {
		return err
	}
	return w.WriteBitfield(m.Flags)
}
func (m *RoomInfo) DecodeBody(r *codec.Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	if m.Name, err = r.ReadInlineString(MaxRoomNameLen); err != nil {
		return err
	}
	if m.OwnerID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.PlayerLimit, err = r.ReadU8(); err != nil {
		return err
	}
	if m.PlayerCount, err = r.ReadU32(); err != nil {
		return err
	}
	m.Flags, err = r.ReadBitfield(4)
	return err
}

type RoomPlayerList struct {
	RoomID    uint32
	AccountIDs []int32
}

func (*RoomPlayerList) Descriptor() Descriptor {
	return Descriptor{ID: IDRoomPlayerList, Name: "RoomPlayerList", Encrypted: false, PreferTCP: true}
}
func (m *RoomPlayerList) EncodeBody(w *codec.Writer) error {
	if err := w.WriteU32(m.RoomID); err != nil {
		return err
	}
	if err := w.WriteSeqHeader(len(m.AccountIDs)); err != nil {
		return err
	}
	for _, id := range m.AccountIDs {
		if err := w.WriteI32(id); err != nil {
			return err
		}
	}
	return nil
}
func (m *RoomPlayerList) DecodeBody(r *codec.Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	n, err := r.ReadSeqHeader()
	if err != nil {
		return err
	}
	m.AccountIDs = make([]int32, 0, n)
	for i := 0; i < n; i++ {
		id, err := r.ReadI32()
		if err != nil {
			return err
		}
		m.AccountIDs = append(m.AccountIDs, id)
	}
	return nil
}

// --- admin group ---

type AdminAuth struct{ Key string }

func (*AdminAuth) Descriptor() Descriptor {
	return Descriptor{ID: IDAdminAuth, Name: "AdminAuth", Encrypted: true, PreferTCP: true}
}
func (m *AdminAuth) EncodeBody(w *codec.Writer) error { return w.WriteInlineString(m.Key, 128) }
func (m *AdminAuth) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadInlineString(128)
	m.Key = v
	return err
}

type AdminAuthFailed struct{}

func (*AdminAuthFailed) Descriptor() Descriptor {
	return Descriptor{ID: IDAdminAuthFailed, Name: "AdminAuthFailed", Encrypted: false, PreferTCP: true}
}
func (*AdminAuthFailed) EncodeBody(w *codec.Writer) error { return nil }
func (*AdminAuthFailed) DecodeBody(r *codec.Reader) error { return nil }

// AdminSendNotice is an admin's request to display a message on a client.
// AccountID == 0 addresses every connected client (requires
// PermNoticeToEveryone); any other value addresses a single account
// (requires PermNotice). The server re-sends the same type to the
// recipient(s) on success, so it serves as both the inbound request and
// the outbound display packet.
type AdminSendNotice struct {
	AccountID int32
	Message   string
}

func (*AdminSendNotice) Descriptor() Descriptor {
	return Descriptor{ID: IDAdminSendNotice, Name: "AdminSendNotice", Encrypted: true, PreferTCP: true}
}
func (m *AdminSendNotice) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	return w.WriteInlineString(m.Message, MaxReasonLen)
}
func (m *AdminSendNotice) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.Message, err = r.ReadInlineString(MaxReasonLen)
	return err
}

// AdminKick is an admin's request to disconnect a client. AccountID == 0
// kicks every connected client (requires PermKickEveryone); any other
// value kicks a single account (requires PermKick).
type AdminKick struct {
	AccountID int32
	Reason    string
}

func (*AdminKick) Descriptor() Descriptor {
	return Descriptor{ID: IDAdminKick, Name: "AdminKick", Encrypted: true, PreferTCP: true}
}
func (m *AdminKick) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	return w.WriteInlineString(m.Reason, MaxReasonLen)
}
func (m *AdminKick) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.Reason, err = r.ReadInlineString(MaxReasonLen)
	return err
}

type AdminPunishUser struct {
	AccountID int32
	IsBan     bool
	Reason    string
	ExpiresAt int64
}

func (*AdminPunishUser) Descriptor() Descriptor {
	return Descriptor{ID: IDAdminPunishUser, Name: "AdminPunishUser", Encrypted: true, PreferTCP: true}
}
func (m *AdminPunishUser) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	if err := w.WriteBool(m.IsBan); err != nil {
		return err
	}
	if err := w.WriteInlineString(m.Reason, MaxReasonLen); err != nil {
		return err
	}
	return w.WriteI64(m.ExpiresAt)
}
func (m *AdminPunishUser) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.IsBan, err = r.ReadBool(); err != nil {
		return err
	}
	if m.Reason, err = r.ReadInlineString(MaxReasonLen); err != nil {
		return err
	}
	m.ExpiresAt, err = r.ReadI64()
	return err
}

type AdminSuccessfulUpdate struct{ Message string }

func (*AdminSuccessfulUpdate) Descriptor() Descriptor {
	return Descriptor{ID: IDAdminSuccessfulUpdate, Name: "AdminSuccessfulUpdate", Encrypted: false, PreferTCP: true}
}
func (m *AdminSuccessfulUpdate) EncodeBody(w *codec.Writer) error {
	return w.WriteInlineString(m.Message, 128)
}
func (m *AdminSuccessfulUpdate) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadInlineString(128)
	m.Message = v
	return err
}

type AdminError struct{ Message string }

func (*AdminError) Descriptor() Descriptor {
	return Descriptor{ID: IDAdminError, Name: "AdminError", Encrypted: false, PreferTCP: true}
}
func (m *AdminError) EncodeBody(w *codec.Writer) error { return w.WriteInlineString(m.Message, 128) }
func (m *AdminError) DecodeBody(r *codec.Reader) error {
	v, err := r.ReadInlineString(128)
	m.Message = v
	return err
}

type SpecialUserData struct {
	AccountID       int32
	RolePriority    uint8
	PermissionBits  uint32
	NameColor       uint32
	BadgeIcon       uint16
}

func (*SpecialUserData) Descriptor() Descriptor {
	return Descriptor{ID: IDSpecialUserData, Name: "SpecialUserData", Encrypted: false, PreferTCP: true}
}
func (m *SpecialUserData) EncodeBody(w *codec.Writer) error {
	if err := w.WriteI32(m.AccountID); err != nil {
		return err
	}
	if err := w.WriteU8(m.RolePriority); err != nil {
		return err
	}
	if err := w.WriteU32(m.PermissionBits); err != nil {
		return err
	}
	if err := w.WriteU32(m.NameColor); err != nil {
		return err
	}
	return w.WriteU16(m.BadgeIcon)
}
func (m *SpecialUserData) DecodeBody(r *codec.Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.RolePriority, err = r.ReadU8(); err != nil {
		return err
	}
	if m.PermissionBits, err = r.ReadU32(); err != nil {
		return err
	}
	if m.NameColor, err = r.ReadU32(); err != nil {
		return err
	}
	m.BadgeIcon, err = r.ReadU16()
	return err
}
