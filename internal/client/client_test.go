package client

import (
	"net"
	"testing"
	"time"

	"gdrelay/internal/crypto"
	"gdrelay/internal/packet"
	"gdrelay/internal/room"
)

func newPipeSocket(t *testing.T) (*Socket, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return NewSocket(a, nil), b
}

func TestNewClientStartsUnauthorized(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	if c.State() != Unauthorized {
		t.Fatalf("new client state = %v, want Unauthorized", c.State())
	}
}

func TestLoginAdvancesToUnclaimed(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	if !c.Login(42, 7, "Player", 0, 1300, nil, 0xDEADBEEF, UserEntry{}) {
		t.Fatal("Login from Unauthorized should succeed")
	}
	if c.State() != Unclaimed {
		t.Fatalf("state after Login = %v, want Unclaimed", c.State())
	}
	if c.AccountID() != 42 {
		t.Fatalf("AccountID = %d, want 42", c.AccountID())
	}

	// A second Login attempt (now from Unclaimed) is not a legal transition
	// since Unclaimed -> Unclaimed is not in the diagram.
	if c.Login(42, 7, "Player", 0, 1300, nil, 0xDEADBEEF, UserEntry{}) {
		t.Fatal("second Login from Unclaimed should fail")
	}
}

func TestCannotSkipStraightToEstablished(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	// Claim requires Unclaimed; from Unauthorized it must fail regardless of
	// whether the secret key matches, since the transition itself is illegal.
	if c.Claim(0, nil) {
		t.Fatal("Claim from Unauthorized should fail")
	}
	if c.State() != Unauthorized {
		t.Fatalf("state after rejected Claim = %v, want Unauthorized", c.State())
	}
}

func TestClaimRequiresMatchingSecretKey(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	c.Login(1, 1, "A", 0, 1300, nil, 0x1234, UserEntry{})

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	if c.Claim(0xFFFF, addr) {
		t.Fatal("Claim with wrong secret key should fail")
	}
	if c.State() != Unclaimed {
		t.Fatalf("state after failed Claim = %v, want Unclaimed", c.State())
	}

	if !c.Claim(0x1234, addr) {
		t.Fatal("Claim with correct secret key should succeed")
	}
	if c.State() != Established {
		t.Fatalf("state after successful Claim = %v, want Established", c.State())
	}
	if sock.UDPPeer() != addr {
		t.Fatal("Claim should bind the UDP peer address")
	}
}

func TestRecoverRequiresMatchingSecretKeyAndDisconnectedState(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	c.Login(1, 1, "A", 0, 1300, nil, 0xABCD, UserEntry{})
	c.Claim(0xABCD, &net.UDPAddr{})
	if !c.MarkDisconnected() {
		t.Fatal("MarkDisconnected from Established should succeed")
	}
	if c.State() != Disconnected {
		t.Fatalf("state = %v, want Disconnected", c.State())
	}

	newSock, _ := newPipeSocket(t)

	// Wrong key: must fail identically whether or not a disconnected record
	// actually exists with a different key - there is no observable branch.
	if c.Recover(newSock, 0x0000) {
		t.Fatal("Recover with wrong secret key should fail")
	}
	if c.State() != Disconnected {
		t.Fatalf("state after failed Recover = %v, want Disconnected", c.State())
	}

	if !c.Recover(newSock, 0xABCD) {
		t.Fatal("Recover with correct secret key should succeed")
	}
	if c.State() != Unclaimed {
		t.Fatalf("state after successful Recover = %v, want Unclaimed", c.State())
	}
}

func TestRecoverFailsWhenNotDisconnected(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	c.Login(1, 1, "A", 0, 1300, nil, 0xABCD, UserEntry{})
	// Still Unclaimed, never went through Established/Disconnected.
	newSock, _ := newPipeSocket(t)
	if c.Recover(newSock, 0xABCD) {
		t.Fatal("Recover from Unclaimed should fail")
	}
}

func TestTerminateIsUnconditionalAndTerminal(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	c.Terminate()
	if c.State() != Terminating {
		t.Fatalf("state after Terminate = %v, want Terminating", c.State())
	}
	// Terminating has no legal outgoing transition.
	if c.Login(1, 1, "A", 0, 1300, nil, 1, UserEntry{}) {
		t.Fatal("no transition should be legal out of Terminating")
	}
}

func TestBeginHandshakeDerivesSharedBox(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	serverKP, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	clientKP, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	box, err := c.BeginHandshake(serverKP, 3, clientKP.Public)
	if err != nil {
		t.Fatalf("BeginHandshake: %v", err)
	}
	if box == nil {
		t.Fatal("BeginHandshake returned nil box")
	}
	if c.Box() != box {
		t.Fatal("Client.Box() should return the box installed by BeginHandshake")
	}
	if c.ProtocolVersion != 3 {
		t.Fatalf("ProtocolVersion = %d, want 3", c.ProtocolVersion)
	}
}

func TestBeginHandshakeAcceptsLegacyProtocolVersion(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	serverKP, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	clientKP, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	if _, err := c.BeginHandshake(serverKP, packet.LegacyProtocolVersion, clientKP.Public); err != nil {
		t.Fatalf("BeginHandshake with legacy version: %v", err)
	}
}

func TestBeginHandshakeRejectsUnknownProtocolVersion(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	serverKP, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	clientKP, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	if _, err := c.BeginHandshake(serverKP, 1, clientKP.Public); err == nil {
		t.Fatal("expected error for a protocol version with no translation scaffolding")
	}
}

func TestFragmentationLimitDefaultsTo1300(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	if got := c.FragmentationLimit(); got != 1300 {
		t.Fatalf("default FragmentationLimit = %d, want 1300", got)
	}

	c.Login(1, 1, "A", 0, 900, nil, 1, UserEntry{})
	if got := c.FragmentationLimit(); got != 900 {
		t.Fatalf("FragmentationLimit after Login = %d, want 900", got)
	}
}

func TestMailboxSupplantableKindsOverwriteSlot(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	c.Enqueue(room.KindLevelData, nil)
	c.Enqueue(room.KindLevelData, nil)
	c.Enqueue(room.KindRoomInfo, nil)

	out := c.DrainOutbound()
	// Each supplantable kind keeps exactly one slot regardless of how many
	// times it was enqueued.
	counts := map[string]int{}
	for _, e := range out {
		counts[e.kind]++
	}
	if counts[room.KindLevelData] != 1 {
		t.Fatalf("KindLevelData count = %d, want 1", counts[room.KindLevelData])
	}
	if counts[room.KindRoomInfo] != 1 {
		t.Fatalf("KindRoomInfo count = %d, want 1", counts[room.KindRoomInfo])
	}
}

func TestMailboxNonSupplantableDropsSilentlyWhenFull(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	for i := 0; i < mailboxCapacity+10; i++ {
		c.Enqueue(room.KindVoice, nil)
	}

	out := c.DrainOutbound()
	if len(out) != mailboxCapacity {
		t.Fatalf("drained %d envelopes, want exactly %d (capacity, extras dropped)", len(out), mailboxCapacity)
	}
	// The connection must still be perfectly healthy - dropping never
	// terminates it.
	if c.State() == Terminating {
		t.Fatal("mailbox overflow must never move state to Terminating")
	}
}

func TestMailboxDrainEmptiesQueue(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	c.Enqueue(room.KindChat, nil)
	first := c.DrainOutbound()
	if len(first) != 1 {
		t.Fatalf("first drain = %d envelopes, want 1", len(first))
	}
	second := c.DrainOutbound()
	if len(second) != 0 {
		t.Fatalf("second drain = %d envelopes, want 0", len(second))
	}
}

func TestWakeSignalsOnEnqueue(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)
	c.Enqueue(room.KindNotice, nil)
	select {
	case <-c.Wake():
	case <-time.After(time.Second):
		t.Fatal("Wake channel did not signal after Enqueue")
	}
}

func TestCircuitBreakerSkipsAfterThreshold(t *testing.T) {
	sock, _ := newPipeSocket(t)
	c := New(sock)

	for i := 0; i < circuitBreakerThreshold; i++ {
		c.RecordSendResult(false)
	}
	if !c.ShouldSkipSend() {
		t.Fatal("breaker should trip once failures reach threshold")
	}
	c.RecordSendResult(true)
	if c.ShouldSkipSend() {
		t.Fatal("a single success should reset the breaker")
	}
}
