package room

import "gdrelay/internal/packet"

// Recipient is whatever the per-client socket layer exposes to the
// broadcast engine: just enough to pick a destination and hand it a
// message, never direct access to the client's own state. Enqueue must be
// non-blocking and implement the mailbox backpressure/supplant semantics
// itself (see internal/client); a disconnected or full mailbox must never
// propagate back into the broadcast loop.
type Recipient interface {
	AccountID() int32
	FragmentationLimit() int
	Enqueue(kind string, msg packet.Message)
}

// Kinds used for mailbox supplant-on-full decisions.
const (
	KindLevelData  = "leveldata"
	KindVoice      = "voice"
	KindChat       = "chat"
	KindRoomInfo   = "roominfo"
	KindNotice     = "notice"
	KindPlayerList = "playerlist"
)

// Engine drives fan-out given a way to resolve a live Recipient for an
// account id. Lookup returning (nil, false) means the player isn't
// currently connected (e.g. already disconnected) and is silently skipped.
type Engine struct {
	Lookup func(accountID int32) (Recipient, bool)
}

// OnPlayerData updates the sender's entry in r and emits LevelData *to the
// sender only*, containing every other player on the same level, never
// the sender's own account id (testable property #10).
func (e *Engine) OnPlayerData(r *Room, senderID int32, data PlayerData, fragLimit int) {
	r.SetPlayerData(senderID, data)
	if data.LevelID == 0 {
		return
	}
	others := r.OthersOnLevel(data.LevelID, senderID)
	if len(others) == 0 {
		return
	}
	recipient, ok := e.Lookup(senderID)
	if !ok {
		return
	}
	if fragLimit <= 0 {
		fragLimit = recipient.FragmentationLimit()
	}
	for _, pkt := range buildLevelDataPackets(others, fragLimit) {
		recipient.Enqueue(KindLevelData, pkt)
	}
}

// buildLevelDataPackets estimates encoded size as
// 4 + players*sizeof(AssociatedPlayerData) and splits into equal-size
// chunks so each chunk's packet stays <= fragLimit bytes.
func buildLevelDataPackets(others []PlayerEntry, fragLimit int) []packet.Message {
	const headerSize = 4
	if fragLimit <= headerSize+packet.AssociatedPlayerDataSize {
		fragLimit = headerSize + packet.AssociatedPlayerDataSize
	}
	perChunk := (fragLimit - headerSize) / packet.AssociatedPlayerDataSize
	if perChunk <= 0 {
		perChunk = 1
	}

	var out []packet.Message
	for i := 0; i < len(others); i += perChunk {
		end := i + perChunk
		if end > len(others) {
			end = len(others)
		}
		chunk := others[i:end]
		players := make([]packet.AssociatedPlayerData, 0, len(chunk))
		for _, p := range chunk {
			players = append(players, packet.AssociatedPlayerData{
				AccountID: p.AccountID,
				X:         p.Data.X,
				Y:         p.Data.Y,
				Rotation:  p.Data.Rotation,
				Flags:     p.Data.Flags,
			})
		}
		out = append(out, &packet.LevelDataPacket{Players: players})
	}
	return out
}

// BroadcastVoice wraps the sender's opus payload with its account id and
// pushes it to every other player on the same level in the same room. The
// caller is responsible for the §4.H size/rate/mute gate before calling.
func (e *Engine) BroadcastVoice(r *Room, levelID int32, senderID int32, opus []byte) {
	others := r.OthersOnLevel(levelID, senderID)
	msg := &packet.VoiceBroadcast{SenderAccountID: senderID, Opus: opus}
	for _, p := range others {
		if recipient, ok := e.Lookup(p.AccountID); ok {
			recipient.Enqueue(KindVoice, msg)
		}
	}
}

// BroadcastChat fans out a non-empty chat message from senderID to every
// other player on the same level. Callers gate empty messages and muted
// senders via the ratelimit.Gate before calling this.
func (e *Engine) BroadcastChat(r *Room, levelID int32, senderID int32, message string) {
	others := r.OthersOnLevel(levelID, senderID)
	msg := &packet.ChatBroadcast{SenderAccountID: senderID, Message: message}
	for _, p := range others {
		if recipient, ok := e.Lookup(p.AccountID); ok {
			recipient.Enqueue(KindChat, msg)
		}
	}
}

// BroadcastRoomInfo pushes an updated RoomInfo to every current member.
// Called whenever settings change, owner rotates, or membership changes.
func (e *Engine) BroadcastRoomInfo(r *Room) {
	info := &packet.RoomInfo{
		RoomID:      r.ID(),
		Name:        r.Name(),
		OwnerID:     r.Owner(),
		PlayerLimit: r.Settings().PlayerLimit,
		PlayerCount: uint32(r.PlayerCount()),
		Flags: []bool{
			r.Settings().Hidden,
			r.Settings().PublicInvites,
			r.Settings().TwoPlayerMode,
			r.Settings().Collision,
		},
	}
	for _, id := range r.Snapshot() {
		if recipient, ok := e.Lookup(id); ok {
			recipient.Enqueue(KindRoomInfo, info)
		}
	}
}

// BroadcastRoomPlayerList fans the full account-id roster out to every
// member of r, so each client can populate its own room member list
// without polling; sent alongside BroadcastRoomInfo on any membership
// change (create/join/leave).
func (e *Engine) BroadcastRoomPlayerList(r *Room) {
	ids := r.Snapshot()
	list := &packet.RoomPlayerList{RoomID: r.ID(), AccountIDs: ids}
	for _, id := range ids {
		if recipient, ok := e.Lookup(id); ok {
			recipient.Enqueue(KindPlayerList, list)
		}
	}
}
