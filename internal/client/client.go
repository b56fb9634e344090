// Package client implements the per-client socket (§4.D) and connection
// state machine (§4.E): one Client per live TCP+UDP connection pair.
package client

import (
	"crypto/subtle"
	"net"
	"sync"
	"time"

	"gdrelay/internal/crypto"
	"gdrelay/internal/packet"
	"gdrelay/internal/ratelimit"
)

// UserEntry is the locally-cached view of the auth service's authoritative
// moderation record for one account (§9 "treat the in-memory user_entry as
// a cache"). The bridge is always the source of truth; this is read-mostly.
type UserEntry struct {
	IsBanned     bool
	IsMuted      bool
	ViolationExp int64
	Whitelisted  bool
	RolePriority uint8
	Permissions  uint32
}

// Client is one live connection's full record.
type Client struct {
	socket *Socket
	state  *stateMachine

	ProtocolVersion uint16
	SecretKey       uint32

	accountID    int32
	UserID       int32
	Name         string
	Icons        uint32
	PrivacyFlags []bool

	mu                 sync.RWMutex
	levelID            int32
	roomID             uint32
	onUnlistedLevel    bool
	userEntry          UserEntry
	fragmentationLimit int

	box *crypto.Box

	limiters *ratelimit.ClientLimiters
	health   sendHealth
	inbox    mailbox // inbound mailbox

	IsAuthorizedAdmin bool
	IsSuperAdmin      bool
}

// New constructs a fresh Unauthorized client wrapping socket.
func New(socket *Socket) *Client {
	return &Client{
		socket: socket,
		state:  newStateMachine(Unauthorized),
		inbox:  *newMailbox(),
	}
}

func (c *Client) State() State { return c.state.Get() }

// Expired reports whether c has sat in a non-Established state longer than
// IdleTimeout, i.e. a sweeper should terminate it (§4.E).
func (c *Client) Expired(now time.Time) bool { return c.state.Expired(now) }

// AccountID implements room.Recipient.
func (c *Client) AccountID() int32 { return c.accountID }

// --- room.Recipient implementation ---

func (c *Client) FragmentationLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fragmentationLimit <= 0 {
		return 1300
	}
	return c.fragmentationLimit
}

func (c *Client) Enqueue(kind string, msg packet.Message) {
	c.inbox.Enqueue(kind, msg)
}

// DrainOutbound returns everything currently queued for delivery; the
// caller's writer goroutine is expected to encode and send each one.
func (c *Client) DrainOutbound() []envelope { return c.inbox.drain() }

// Wake exposes the mailbox's wake channel so a writer goroutine can block
// until there's something to send instead of busy-polling.
func (c *Client) Wake() <-chan struct{} { return c.inbox.wake }

// --- handshake / login / claim / recovery (§4.E) ---

// ErrUnsupportedProtocol is returned when a client announces a protocol
// version this build has no translation scaffolding for.
var ErrUnsupportedProtocol = packet.ErrUnsupportedProtocol

// BeginHandshake validates the announced protocol and installs the shared
// crypto box. protocol == packet.NoTranslate is always accepted; an older
// version is accepted only if the translator ships scaffolding for it
// (currently just CurrentVersion-1, §9), since dispatch-time translation
// depends on that scaffolding existing.
func (c *Client) BeginHandshake(kp *crypto.Keypair, clientProtocol uint16, clientPublicKey [32]byte) (*crypto.Box, error) {
	switch clientProtocol {
	case packet.NoTranslate, packet.CurrentVersion, packet.LegacyProtocolVersion:
	default:
		return nil, ErrUnsupportedProtocol
	}
	box, err := kp.DeriveBox(clientPublicKey)
	if err != nil {
		return nil, err
	}
	c.box = box
	c.ProtocolVersion = clientProtocol
	return box, nil
}

// Login records the post-authentication identity and advances
// Unauthorized -> Unclaimed. secretKey should come from a CSPRNG.
func (c *Client) Login(accountID, userID int32, name string, icons uint32, fragLimit uint16, privacy []bool, secretKey uint32, entry UserEntry) bool {
	if !c.state.Set(Unclaimed) {
		return false
	}
	c.accountID = accountID
	c.UserID = userID
	c.Name = name
	c.Icons = icons
	c.PrivacyFlags = privacy
	c.SecretKey = secretKey

	c.mu.Lock()
	c.fragmentationLimit = int(fragLimit)
	c.userEntry = entry
	c.mu.Unlock()
	return true
}

// Claim binds a UDP peer address after verifying the claim's secret key
// matches in constant time, advancing Unclaimed -> Established.
func (c *Client) Claim(secretKey uint32, peer *net.UDPAddr) bool {
	if c.State() != Unclaimed {
		return false
	}
	if !constantTimeEqualU32(c.SecretKey, secretKey) {
		return false
	}
	c.socket.SetUDPPeer(peer)
	return c.state.Set(Established)
}

// MarkDisconnected transitions Established -> Disconnected (TCP EOF/error);
// the UDP peer binding and room membership are left untouched so a
// recovery within the idle window can resume them.
func (c *Client) MarkDisconnected() bool { return c.state.Set(Disconnected) }

// Recover re-binds a new TCP stream to a Disconnected record after a
// secret-key match, returning Unclaimed (a fresh UDP claim is required).
// The key comparison is constant-time and a mismatch is indistinguishable
// from "no such disconnected session" to the caller.
func (c *Client) Recover(newSocket *Socket, secretKey uint32) bool {
	if c.State() != Disconnected {
		return false
	}
	if !constantTimeEqualU32(c.SecretKey, secretKey) {
		return false
	}
	c.socket = newSocket
	return c.state.Set(Unclaimed)
}

// Terminate unconditionally moves to Terminating; the owning task notices
// on its next loop iteration and releases all handles.
func (c *Client) Terminate() {
	c.state.mu.Lock()
	c.state.state = Terminating
	c.state.mu.Unlock()
	_ = c.socket.Close()
}

func constantTimeEqualU32(a, b uint32) bool {
	var ab, bb [4]byte
	ab[0], ab[1], ab[2], ab[3] = byte(a>>24), byte(a>>16), byte(a>>8), byte(a)
	bb[0], bb[1], bb[2], bb[3] = byte(b>>24), byte(b>>16), byte(b>>8), byte(b)
	return subtle.ConstantTimeCompare(ab[:], bb[:]) == 1
}

// SetLevel updates the level/room/unlisted bookkeeping this client's own
// task is authoritative for. Broadcast reads it through Snapshot.
func (c *Client) SetLevel(levelID int32, roomID uint32, unlisted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levelID = levelID
	c.roomID = roomID
	c.onUnlistedLevel = unlisted
}

// Snapshot returns an immutable copy of the presentation fields broadcast
// code may need, taken under a short lock never held across a send.
func (c *Client) Snapshot() (levelID int32, roomID uint32, entry UserEntry) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.levelID, c.roomID, c.userEntry
}

// UpdateUserEntry overwrites the cached moderation record, e.g. after an
// admin edit that was already written through to the bridge.
func (c *Client) UpdateUserEntry(entry UserEntry) {
	c.mu.Lock()
	c.userEntry = entry
	c.mu.Unlock()
}

// ShouldSkipSend reports whether the circuit breaker says to skip the next
// send attempt outright rather than retry a socket that keeps failing.
func (c *Client) ShouldSkipSend() bool { return c.health.shouldSkip() }

// RecordSendResult feeds one send attempt's outcome back into the breaker.
func (c *Client) RecordSendResult(ok bool) {
	if ok {
		c.health.recordSuccess()
	} else {
		c.health.recordFailure()
	}
}

// Socket exposes the underlying per-client socket for send/recv calls.
func (c *Client) Socket() *Socket { return c.socket }

// Box returns the established crypto box, or nil before handshake.
func (c *Client) Box() *crypto.Box { return c.box }

// Limiters lazily initializes and returns this client's rate limiter set.
func (c *Client) Limiters(tps, chatBurst int, chatInterval time.Duration) *ratelimit.ClientLimiters {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limiters == nil {
		c.limiters = ratelimit.NewClientLimiters(tps, chatBurst, chatInterval)
	}
	return c.limiters
}
