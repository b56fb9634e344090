package ratelimit

import (
	"testing"
	"time"
)

func TestVoiceLimiterAllowsFiveThenDropsSixth(t *testing.T) {
	l := NewLimiter(VoiceLimit, VoiceWindow)
	allowed := 0
	for i := 0; i < 6; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 5 {
		t.Fatalf("expected 5 allowed in burst, got %d", allowed)
	}
}

func TestVoiceLimiterRefillsAfterWindow(t *testing.T) {
	l := NewLimiter(VoiceLimit, VoiceWindow)
	for i := 0; i < VoiceLimit; i++ {
		l.Allow()
	}
	if l.Allow() {
		t.Fatal("sixth packet within the window should be dropped")
	}
	time.Sleep(VoiceWindow + 50*time.Millisecond)
	if !l.Allow() {
		t.Fatal("expected a refreshed token after the window elapses")
	}
}

func TestChatLimiterDisabledWhenZeroConfig(t *testing.T) {
	c := NewClientLimiters(30, 0, 0)
	for i := 0; i < 1000; i++ {
		if !c.Chat.Allow() {
			t.Fatal("chat limiter should be disabled (always allow) when burst/interval is zero")
		}
	}
}

func TestGateRejectsUnauthenticated(t *testing.T) {
	g := &Gate{}
	if g.AllowVoice(0, 10, 4096) {
		t.Fatal("unauthenticated sender must be rejected")
	}
	if g.AllowChat(0, "hi") {
		t.Fatal("unauthenticated sender must be rejected")
	}
}

func TestGateRejectsMuted(t *testing.T) {
	g := &Gate{IsMuted: func(id int32) bool { return id == 42 }}
	if g.AllowChat(42, "hi") {
		t.Fatal("muted sender must produce no broadcast")
	}
	if !g.AllowChat(7, "hi") {
		t.Fatal("non-muted sender should pass")
	}
}

func TestGateRejectsOversizeVoice(t *testing.T) {
	g := &Gate{}
	if g.AllowVoice(42, 5000, 4096) {
		t.Fatal("voice packets over 4KB must be dropped")
	}
}

func TestGateDropsEmptyChat(t *testing.T) {
	g := &Gate{}
	if g.AllowChat(42, "") {
		t.Fatal("empty chat messages are silently dropped")
	}
}
