// Package ratelimit implements the per-client sliding-window limiters and
// the moderation gate applied before voice/chat fan-out.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Defaults per §4.H: packet limiter capacity is tps+6 per 900ms, voice is
// 5 per second, chat comes from server config.
const (
	PacketWindow = 900 * time.Millisecond
	VoiceLimit   = 5
	VoiceWindow  = time.Second
)

// Limiter wraps golang.org/x/time/rate to express a "capacity per interval"
// sliding window: Allow reports whether one more event is permitted right
// now, consuming from the budget if so.
type Limiter struct{ rl *rate.Limiter }

// NewLimiter builds a sliding window of the given capacity refilling evenly
// over interval, with burst equal to capacity (a full window's worth may be
// spent immediately).
func NewLimiter(capacity int, interval time.Duration) *Limiter {
	if capacity <= 0 || interval <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, 0)}
	}
	perSecond := float64(capacity) / interval.Seconds()
	return &Limiter{rl: rate.NewLimiter(rate.Limit(perSecond), capacity)}
}

// Allow consumes one token if available.
func (l *Limiter) Allow() bool { return l.rl.Allow() }

// ClientLimiters bundles the three independent windows a Client record
// owns: general packets, voice, chat.
type ClientLimiters struct {
	Packet *Limiter
	Voice   *Limiter
	Chat    *Limiter
}

// NewClientLimiters builds the three windows for a client whose server TPS
// is tps and whose chat burst config is (chatBurst, chatInterval). A zero
// chatBurst or chatInterval disables the chat limiter entirely (Allow
// always true), per §4.H ("disabled if either bound is zero").
func NewClientLimiters(tps int, chatBurst int, chatInterval time.Duration) *ClientLimiters {
	c := &ClientLimiters{
		Packet: NewLimiter(tps+6, PacketWindow),
		Voice:  NewLimiter(VoiceLimit, VoiceWindow),
	}
	if chatBurst == 0 || chatInterval == 0 {
		c.Chat = &Limiter{rl: rate.NewLimiter(rate.Inf, 0)}
	} else {
		c.Chat = NewLimiter(chatBurst, chatInterval)
	}
	return c
}

// Gate is the moderation decision applied before voice/chat fan-out.
type Gate struct {
	// IsMuted reports whether the given account is currently muted.
	IsMuted func(accountID int32) bool
}

// AllowVoice reports whether a voice packet from accountID of the given
// size may be broadcast: it must have an authenticated account id, not be
// muted, and be within MaxVoicePacketBytes.
func (g *Gate) AllowVoice(accountID int32, size int, maxBytes int) bool {
	if accountID == 0 {
		return false
	}
	if g.IsMuted != nil && g.IsMuted(accountID) {
		return false
	}
	return size <= maxBytes
}

// AllowChat reports whether a chat message from accountID may be broadcast:
// authenticated, not muted, and non-empty (empty messages are silently
// dropped per §4.G, not an error).
func (g *Gate) AllowChat(accountID int32, message string) bool {
	if accountID == 0 {
		return false
	}
	if message == "" {
		return false
	}
	if g.IsMuted != nil && g.IsMuted(accountID) {
		return false
	}
	return true
}
