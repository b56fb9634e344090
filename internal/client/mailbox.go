package client

import (
	"sync"

	"gdrelay/internal/packet"
	"gdrelay/internal/room"
)

// mailboxCapacity bounds the FIFO portion of a client's inbound mailbox.
const mailboxCapacity = 64

// supplantable kinds only ever keep the most recent pending message: a
// LevelData or RoomInfo delivered late is fully superseded by the next one,
// so there is no reason to burn mailbox slots queuing stale ones.
var supplantableKinds = map[string]bool{
	room.KindLevelData: true,
	room.KindRoomInfo:  true,
}

// envelope is one pending outbound message plus the kind it was tagged
// with, used only for supplant-on-full decisions.
type envelope struct {
	kind string
	msg  packet.Message
}

// mailbox is the bounded inbound queue a client's writer goroutine drains.
// Enqueue never blocks: supplantable kinds overwrite their single pending
// slot, everything else is dropped (not errored, not disconnected) once the
// FIFO is full.
type mailbox struct {
	mu    sync.Mutex
	fifo  []envelope
	slots map[string]envelope
	wake  chan struct{}

	dropped int64 // diagnostic counter, not behavior-affecting
}

func newMailbox() *mailbox {
	return &mailbox{
		slots: make(map[string]envelope),
		wake:  make(chan struct{}, 1),
	}
}

// Enqueue implements room.Recipient's delivery contract.
func (m *mailbox) Enqueue(kind string, msg packet.Message) {
	m.mu.Lock()
	if supplantableKinds[kind] {
		m.slots[kind] = envelope{kind: kind, msg: msg}
	} else if len(m.fifo) < mailboxCapacity {
		m.fifo = append(m.fifo, envelope{kind: kind, msg: msg})
	} else {
		m.dropped++
	}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// pop removes and returns one pending envelope in mailbox-insertion order
// among the FIFO portion, but always drains any pending supplantable slots
// first (they represent "the current state", not a queued event).
func (m *mailbox) pop() (envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for kind, e := range m.slots {
		delete(m.slots, kind)
		return e, true
	}
	if len(m.fifo) == 0 {
		return envelope{}, false
	}
	e := m.fifo[0]
	m.fifo = m.fifo[1:]
	return e, true
}

// drain pops every currently-pending envelope.
func (m *mailbox) drain() []envelope {
	var out []envelope
	for {
		e, ok := m.pop()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}
