package room

import (
	"testing"

	"gdrelay/internal/packet"
)

func TestCreateRoomAssignsDistinctIDsInRange(t *testing.T) {
	m := NewManager()
	seen := make(map[uint32]bool)
	for i := int32(1); i <= 50; i++ {
		r, err := m.CreateRoom(i, "room", "", Settings{})
		if err != nil {
			t.Fatal(err)
		}
		if r.ID() < 100000 || r.ID() > 999999 {
			t.Fatalf("room id %d out of range", r.ID())
		}
		if seen[r.ID()] {
			t.Fatalf("duplicate room id %d", r.ID())
		}
		seen[r.ID()] = true
	}
}

func TestCreateRoomRemovesOwnerFromGlobal(t *testing.T) {
	m := NewManager()
	m.Global().insert(10)
	r, err := m.CreateRoom(10, "room", "", Settings{})
	if err != nil {
		t.Fatal(err)
	}
	if m.Global().Has(10) {
		t.Fatal("owner should have left the global room")
	}
	if !r.Has(10) {
		t.Fatal("owner should be in the new room")
	}
}

func TestJoinRoomWrongPassword(t *testing.T) {
	m := NewManager()
	r, _ := m.CreateRoom(1, "room", "secret", Settings{})
	if _, err := m.JoinRoom(2, r.ID(), "wrong"); err != ErrRoomProtected {
		t.Fatalf("expected ErrRoomProtected, got %v", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	m := NewManager()
	r, _ := m.CreateRoom(1, "room", "", Settings{PlayerLimit: 1})
	if _, err := m.JoinRoom(2, r.ID(), ""); err != ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestOwnerRotationPicksLowestRemaining(t *testing.T) {
	m := NewManager()
	r, _ := m.CreateRoom(10, "room", "", Settings{})
	m.JoinRoom(30, r.ID(), "")
	m.JoinRoom(20, r.ID(), "")

	m.LeaveRoom(10, r.ID())
	if r.Owner() != 20 {
		t.Fatalf("expected owner 20 (lowest remaining), got %d", r.Owner())
	}
}

func TestRoomDestroyedWhenEmpty(t *testing.T) {
	m := NewManager()
	r, _ := m.CreateRoom(10, "room", "", Settings{})
	id := r.ID()
	m.LeaveRoom(10, id)
	if _, ok := m.Room(id); ok {
		t.Fatal("non-global room should be destroyed once empty")
	}
}

func TestGlobalRoomNeverDeleted(t *testing.T) {
	m := NewManager()
	m.Global().insert(1)
	m.LeaveRoom(1, GlobalRoomID)
	if _, ok := m.Room(GlobalRoomID); !ok {
		t.Fatal("global room must always exist")
	}
}

func TestLeaveRoomReinsertsIntoGlobal(t *testing.T) {
	m := NewManager()
	r, _ := m.CreateRoom(10, "room", "", Settings{})
	m.LeaveRoom(10, r.ID())
	if !m.Global().Has(10) {
		t.Fatal("leaving player must be re-inserted into the global room")
	}
}

func TestLevelIndexMembershipInvariant(t *testing.T) {
	r := newRoom(1, "room", "", 0, Settings{})
	r.insert(1)
	r.insert(2)
	r.SetPlayerData(1, PlayerData{LevelID: 500})
	r.SetPlayerData(2, PlayerData{LevelID: 500})
	r.SetPlayerData(1, PlayerData{LevelID: 600})

	r.ForEachLevel(func(levelID int32, ids []int32) {
		for _, id := range ids {
			if !r.Has(id) {
				t.Fatalf("level %d references account %d not present in players map", levelID, id)
			}
		}
	})

	others := r.OthersOnLevel(500, 2)
	if len(others) != 0 {
		t.Fatalf("account 1 should have moved off level 500, found %d others", len(others))
	}
}

type fakeRecipient struct {
	accountID int32
	fragLimit int
	received  []packet.Message
}

func (f *fakeRecipient) AccountID() int32      { return f.accountID }
func (f *fakeRecipient) FragmentationLimit() int { return f.fragLimit }
func (f *fakeRecipient) Enqueue(kind string, msg packet.Message) {
	f.received = append(f.received, msg)
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := newRoom(1, "room", "", 0, Settings{})
	r.insert(42)
	r.insert(7)
	r.SetPlayerData(7, PlayerData{LevelID: 500, X: 1, Y: 2})

	sender := &fakeRecipient{accountID: 42, fragLimit: 1400}
	engine := &Engine{Lookup: func(id int32) (Recipient, bool) {
		if id == 42 {
			return sender, true
		}
		return nil, false
	}}

	engine.OnPlayerData(r, 42, PlayerData{LevelID: 500, X: 5, Y: 6}, 1400)

	if len(sender.received) != 1 {
		t.Fatalf("expected one LevelData packet, got %d", len(sender.received))
	}
	ld := sender.received[0].(*packet.LevelDataPacket)
	for _, p := range ld.Players {
		if p.AccountID == 42 {
			t.Fatal("LevelData must never contain the sender's own account id")
		}
	}
	if len(ld.Players) != 1 || ld.Players[0].AccountID != 7 {
		t.Fatalf("expected exactly player 7 in the aggregate, got %+v", ld.Players)
	}
}

func TestFragmentationSplitsAcrossPackets(t *testing.T) {
	r := newRoom(1, "room", "", 0, Settings{})
	r.insert(1)
	for i := int32(2); i <= 41; i++ {
		r.insert(i)
		r.SetPlayerData(i, PlayerData{LevelID: 500, X: float32(i)})
	}

	sender := &fakeRecipient{accountID: 1, fragLimit: 1200}
	engine := &Engine{Lookup: func(id int32) (Recipient, bool) {
		if id == 1 {
			return sender, true
		}
		return nil, false
	}}
	engine.OnPlayerData(r, 1, PlayerData{LevelID: 500}, 1200)

	if len(sender.received) < 2 {
		t.Fatalf("expected multiple LevelData packets for 40 others at 1200-byte limit, got %d", len(sender.received))
	}

	seen := make(map[int32]bool)
	for _, m := range sender.received {
		ld := m.(*packet.LevelDataPacket)
		encSize := 4 + len(ld.Players)*packet.AssociatedPlayerDataSize
		if encSize > 1200 {
			t.Fatalf("packet exceeds fragmentation_limit: %d > 1200", encSize)
		}
		for _, p := range ld.Players {
			if seen[p.AccountID] {
				t.Fatalf("account %d appeared twice across fragments", p.AccountID)
			}
			seen[p.AccountID] = true
			if p.AccountID == 1 {
				t.Fatal("sender must not appear in its own aggregate")
			}
		}
	}
	if len(seen) != 40 {
		t.Fatalf("expected all 40 others covered exactly once, got %d", len(seen))
	}
}
