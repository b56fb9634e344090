package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"gdrelay/internal/admin"
	"gdrelay/internal/bridge"
	"gdrelay/internal/client"
	"gdrelay/internal/codec"
	"gdrelay/internal/config"
	"gdrelay/internal/crypto"
	"gdrelay/internal/packet"
	"gdrelay/internal/ratelimit"
	"gdrelay/internal/room"
	"gdrelay/internal/store"
)

// Server owns the shared TCP listener and UDP socket plus the live client
// registry every per-connection goroutine reads and writes through. It
// speaks the raw dual-transport protocol directly (§4.D, §6 "no TLS")
// rather than terminating HTTPS/WebSocket connections.
type Server struct {
	tcpAddr string
	udpAddr string
	udpConn *net.UDPConn

	keypair    *crypto.Keypair
	registry   *packet.Registry
	translator *packet.Translator

	rooms  *room.Manager
	engine *room.Engine
	br     *bridge.Client
	db     *store.Store
	watch  *config.Watcher

	mu        sync.RWMutex
	byAccount map[int32]*client.Client
	byUDPAddr map[string]int32
}

// NewServer wires a Server from already-constructed dependencies.
func NewServer(tcpAddr, udpAddr string, rooms *room.Manager, br *bridge.Client, db *store.Store, watch *config.Watcher) (*Server, error) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	s := &Server{
		tcpAddr:    tcpAddr,
		udpAddr:    udpAddr,
		keypair:    kp,
		registry:   packet.NewRegistry(),
		translator: packet.NewTranslator(),
		rooms:      rooms,
		br:         br,
		db:         db,
		watch:      watch,
		byAccount:  make(map[int32]*client.Client),
		byUDPAddr:  make(map[string]int32),
	}
	s.engine = &room.Engine{Lookup: s.lookupRecipient}
	packet.RegisterLegacyTranslations(s.translator)
	return s, nil
}

func (s *Server) lookupRecipient(accountID int32) (room.Recipient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byAccount[accountID]
	if !ok || c.State() != client.Established {
		return nil, false
	}
	return c, true
}

// Run opens the TCP listener and shared UDP socket and blocks until ctx is
// canceled, at which point both are closed and every live connection's
// goroutine unwinds on its own next read.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.tcpAddr)
	if err != nil {
		return err
	}
	defer ln.Close()

	udpAddr, err := net.ResolveUDPAddr("udp", s.udpAddr)
	if err != nil {
		return err
	}
	s.udpConn, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer s.udpConn.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
		s.udpConn.Close()
	}()

	go s.udpLoop(ctx)
	go s.reapIdleClients(ctx, 10*time.Second)

	log.Printf("[server] tcp=%s udp=%s", s.tcpAddr, s.udpAddr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[server] accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn owns one TCP connection end to end: handshake, login/recover,
// dispatch loop, and cleanup on disconnect. A writer goroutine drains the
// client's mailbox independently so a slow reader never blocks broadcasts
// to other clients.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	sock := client.NewSocket(conn, s.udpConn)
	c := client.New(sock)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writerLoop(ctx, c)
	}()

	defer func() {
		c.MarkDisconnected()
		s.scheduleReap(c)
		sock.Close()
		<-writerDone
	}()

	for {
		n, err := sock.PollTCPLength()
		if err != nil {
			return
		}
		raw, err := sock.RecvExact(n)
		if err != nil {
			return
		}
		r := codec.NewReader(raw)
		hdr, err := packet.DecodeHeader(r)
		if err != nil {
			log.Printf("[server] decode header from account %d: %v", c.AccountID(), err)
			continue
		}
		body, err := r.ReadBytes(r.Remaining())
		if err != nil {
			log.Printf("[server] read body for packet %d from account %d: %v", hdr.ID, c.AccountID(), err)
			continue
		}
		if hdr.Encrypted {
			box := c.Box()
			if box == nil {
				log.Printf("[server] packet %d from account %d claims encrypted with no box established", hdr.ID, c.AccountID())
				continue
			}
			body, err = box.Decrypt(body)
			if err != nil {
				log.Printf("[server] decrypt packet %d from account %d: %v", hdr.ID, c.AccountID(), err)
				continue
			}
		}
		msg, err := s.translator.DecodeIncoming(s.registry, c.ProtocolVersion, hdr.ID, body)
		if err != nil {
			log.Printf("[server] decode packet %d from account %d: %v", hdr.ID, c.AccountID(), err)
			continue
		}
		// The registry's own encrypted flag is the authority (§9: every
		// packet flagged encrypted stays that way); a client claiming
		// hdr.Encrypted=false for a packet the registry requires encrypted
		// would otherwise skip Decrypt entirely and smuggle raw bytes in as
		// if legitimate.
		if msg.Descriptor().Encrypted != hdr.Encrypted {
			log.Printf("[server] packet %d from account %d: header encrypted=%v but registry requires %v", hdr.ID, c.AccountID(), hdr.Encrypted, msg.Descriptor().Encrypted)
			continue
		}

		if next := s.dispatch(ctx, &c, msg); next != nil {
			c = next
		}
		if c.State() == client.Terminating {
			return
		}
	}
}

// reapIdleClients terminates every registered client (one that has logged
// in and so appears in byAccount) that has sat past the idle window in
// Unclaimed or Disconnected (§4.E); a client's own read loop notices
// Terminating on its next iteration and unwinds, which drives it through
// scheduleReap and, via Manager.Leave, out of its room. A connection that
// has not completed login is not in byAccount and is not reaped here.
func (s *Server) reapIdleClients(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.RLock()
			stale := make([]*client.Client, 0)
			for _, c := range s.byAccount {
				if c.Expired(now) {
					stale = append(stale, c)
				}
			}
			s.mu.RUnlock()
			for _, c := range stale {
				c.Terminate()
			}
		}
	}
}

// scheduleReap drops a terminated client from the registry. A Disconnected
// client is left in place so LoginRecover can find it within the idle
// window; only Terminating removes it for good.
func (s *Server) scheduleReap(c *client.Client) {
	if c.State() != client.Terminating {
		return
	}
	s.mu.Lock()
	// A newer login for this account may already have replaced c in
	// byAccount (see handleLogin); only clean up the registry and room
	// membership if c is still the registered session, so an old
	// connection's delayed teardown never evicts a fresher one.
	stillOwner := s.byAccount[c.AccountID()] == c
	if stillOwner {
		delete(s.byAccount, c.AccountID())
	}
	if peer := c.Socket().UDPPeer(); peer != nil {
		delete(s.byUDPAddr, peer.String())
	}
	s.mu.Unlock()
	if stillOwner {
		s.rooms.Leave(c.AccountID())
	}
}

// writerLoop drains c's mailbox whenever woken and pushes each envelope
// out over whichever transport its descriptor prefers.
func (s *Server) writerLoop(ctx context.Context, c *client.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Wake():
		}
		for _, e := range c.DrainOutbound() {
			s.send(c, e.msg)
		}
		if c.State() == client.Terminating {
			return
		}
	}
}

// send encodes, optionally encrypts, frames, and transmits one message to
// c over its descriptor's preferred transport, falling back to TCP whenever
// no UDP peer has been claimed yet.
func (s *Server) send(c *client.Client, msg packet.Message) {
	desc := msg.Descriptor()
	body, err := s.translator.EncodeOutgoing(c.ProtocolVersion, msg)
	if err != nil {
		log.Printf("[server] encode %s: %v", desc.Name, err)
		return
	}
	if desc.Encrypted {
		box := c.Box()
		if box == nil {
			return
		}
		body, err = box.Encrypt(body)
		if err != nil {
			log.Printf("[server] encrypt %s: %v", desc.Name, err)
			return
		}
	}

	w := codec.NewGrowableWriter(len(body) + 3)
	if err := packet.EncodeHeader(w, packet.Header{ID: desc.ID, Encrypted: desc.Encrypted}); err != nil {
		return
	}
	if err := w.WriteBytes(body); err != nil {
		return
	}
	framed := w.Bytes()

	if c.ShouldSkipSend() {
		return
	}

	var sendErr error
	switch {
	case desc.PreferTCP || c.Socket().UDPPeer() == nil:
		sendErr = c.Socket().SendTCP(framed)
	case len(framed) > c.FragmentationLimit():
		sendErr = c.Socket().SendUDPFragmented(framed, c.FragmentationLimit())
	default:
		sendErr = c.Socket().SendUDPWhole(framed)
	}
	c.RecordSendResult(sendErr == nil)
	if sendErr == nil {
		totalBytesBroadcast.Add(int64(len(framed)))
	}
}

// fragmentReassemblyTimeout bounds how long a partial fragmented send may
// sit incomplete before it's discarded, so a peer that drops mid-send
// can't leak memory into the reassembly table forever.
const fragmentReassemblyTimeout = 5 * time.Second

// fragmentAssembly tracks one in-progress fragmented send, keyed by source
// address and the sender-chosen message id (internal/client.Socket.
// SendUDPFragmented).
type fragmentAssembly struct {
	chunks    [][]byte
	received  int
	total     uint16
	startedAt time.Time
}

// udpLoop reads every datagram arriving on the shared UDP socket and routes
// it either to the claim handler (unclaimed ClaimThread), the fragment
// reassembler, or directly to the already-bound client for that source
// address. pending is only ever touched from this single goroutine, so it
// needs no locking of its own.
func (s *Server) udpLoop(ctx context.Context) {
	buf := make([]byte, 65536)
	pending := make(map[string]*fragmentAssembly)
	for {
		n, addr, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if n < 1 {
			continue
		}
		switch buf[0] {
		case packet.UDPMarkerWhole:
			payload := append([]byte(nil), buf[1:n]...)
			s.handleUDPDatagram(addr, payload)
		case packet.UDPMarkerFragment:
			s.handleUDPFragment(pending, addr, append([]byte(nil), buf[1:n]...))
		default:
			continue
		}
		pruneStaleFragments(pending)
	}
}

// handleUDPFragment folds one fragment into its assembly, completing and
// dispatching the reassembled datagram once every fragment has arrived.
func (s *Server) handleUDPFragment(pending map[string]*fragmentAssembly, addr *net.UDPAddr, framed []byte) {
	if len(framed) < fragmentHeaderSize {
		return
	}
	messageID := binary.BigEndian.Uint16(framed[0:2])
	total := binary.BigEndian.Uint16(framed[2:4])
	index := int(framed[4])
	count := int(framed[5])
	chunk := framed[fragmentHeaderSize:]
	if count <= 0 || count > packet.MaxFragments || index < 0 || index >= count {
		return
	}

	key := fmt.Sprintf("%s|%d", addr.String(), messageID)
	asm, ok := pending[key]
	if !ok {
		asm = &fragmentAssembly{chunks: make([][]byte, count), total: total, startedAt: time.Now()}
		pending[key] = asm
	}
	if len(asm.chunks) != count {
		// A message id collided with a still-open assembly of a different
		// shape; start over rather than risk splicing unrelated fragments.
		asm = &fragmentAssembly{chunks: make([][]byte, count), total: total, startedAt: time.Now()}
		pending[key] = asm
	}
	if asm.chunks[index] == nil {
		asm.chunks[index] = chunk
		asm.received++
	}
	if asm.received < count {
		return
	}
	delete(pending, key)

	payload := make([]byte, 0, asm.total)
	for _, c := range asm.chunks {
		payload = append(payload, c...)
	}
	s.handleUDPDatagram(addr, payload)
}

func pruneStaleFragments(pending map[string]*fragmentAssembly) {
	now := time.Now()
	for key, asm := range pending {
		if now.Sub(asm.startedAt) > fragmentReassemblyTimeout {
			delete(pending, key)
		}
	}
}

// fragmentHeaderSize mirrors internal/client.Socket's wire format so the
// receive side can parse what the send side wrote.
const fragmentHeaderSize = 6

func (s *Server) handleUDPDatagram(addr *net.UDPAddr, raw []byte) {
	r := codec.NewReader(raw)
	hdr, err := packet.DecodeHeader(r)
	if err != nil {
		return
	}
	body, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return
	}

	if hdr.ID == packet.IDClaimThread {
		msg, err := s.registry.New(hdr.ID)
		if err != nil {
			return
		}
		if err := msg.DecodeBody(codec.NewReader(body)); err != nil {
			return
		}
		claim := msg.(*packet.ClaimThread)
		s.mu.RLock()
		c, ok := s.byAccount[claim.AccountID]
		s.mu.RUnlock()
		if !ok {
			return
		}
		if c.Claim(claim.SecretKey, addr) {
			s.mu.Lock()
			s.byUDPAddr[addr.String()] = claim.AccountID
			s.mu.Unlock()
		}
		return
	}

	s.mu.RLock()
	accountID, ok := s.byUDPAddr[addr.String()]
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.mu.RLock()
	c, ok := s.byAccount[accountID]
	s.mu.RUnlock()
	if !ok || c.State() != client.Established {
		return
	}

	if hdr.Encrypted {
		box := c.Box()
		if box == nil {
			return
		}
		body, err = box.Decrypt(body)
		if err != nil {
			return
		}
	}
	msg, err := s.translator.DecodeIncoming(s.registry, c.ProtocolVersion, hdr.ID, body)
	if err != nil {
		return
	}
	s.dispatch(context.Background(), &c, msg)
}

// dispatch handles one decoded message for c, optionally returning a
// different *client.Client that the caller's read loop should switch to
// operating on (the LoginRecover path resumes an existing record rather
// than the freshly-dialed one).
func (s *Server) dispatch(ctx context.Context, cp **client.Client, msg packet.Message) *client.Client {
	c := *cp
	switch m := msg.(type) {

	case *packet.CryptoHandshakeStart:
		if _, err := c.BeginHandshake(s.keypair, m.Protocol, m.PublicKey); err != nil {
			c.Terminate()
			return nil
		}
		s.send(c, &packet.CryptoHandshakeReply{PublicKey: s.keypair.Public})

	case *packet.LoginPacket:
		s.handleLogin(ctx, c, m)

	case *packet.LoginRecover:
		return s.handleRecover(c, m)

	case *packet.Ping:
		total, _ := s.rooms.Stats()
		s.send(c, &packet.Pong{ID: m.ID, PlayerCount: uint32(total)})

	case *packet.PlayerDataPacket:
		s.handlePlayerData(c, m)

	case *packet.PlayerMetadataPacket:
		_, roomID, _ := c.Snapshot()
		if r, ok := s.rooms.Room(roomID); ok {
			r.SetPlayerMetadata(m.AccountID, room.PlayerMetadata{Attempts: m.Attempts, BestPct: m.BestPct})
		}

	case *packet.VoicePacket:
		s.handleVoice(c, m)

	case *packet.ChatPacket:
		s.handleChat(c, m)

	case *packet.CreateRoom:
		s.handleCreateRoom(c, m)

	case *packet.JoinRoom:
		s.handleJoinRoom(c, m)

	case *packet.LeaveRoom:
		s.handleLeaveRoom(c)

	case *packet.AdminAuth:
		s.handleAdminAuth(c, m)

	case *packet.AdminSendNotice:
		s.handleAdminNotice(c, m)

	case *packet.AdminKick:
		s.handleAdminKick(c, m)

	case *packet.AdminPunishUser:
		s.handleAdminPunish(ctx, c, m)
	}
	return nil
}

func contains32(haystack []int32, needle int32) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// handleLogin validates credentials against the bridge, enforces the
// configured whitelist/blacklist and maintenance flag, and advances the
// client Unauthorized -> Unclaimed on success (§4.E, §6).
func (s *Server) handleLogin(ctx context.Context, c *client.Client, m *packet.LoginPacket) {
	cfg := s.watch.Current()
	if cfg.Maintenance {
		s.send(c, &packet.ServerDisconnect{Message: "server is in maintenance"})
		c.Terminate()
		return
	}
	switch cfg.UserlistMode {
	case config.UserlistWhitelist:
		if !contains32(cfg.Whitelist, m.AccountID) {
			s.send(c, &packet.ServerDisconnect{Message: "account is not whitelisted"})
			c.Terminate()
			return
		}
	case config.UserlistBlacklist:
		if contains32(cfg.Blacklist, m.AccountID) {
			s.send(c, &packet.ServerDisconnect{Message: "account is blacklisted"})
			c.Terminate()
			return
		}
	}

	verdict, berr := s.br.ValidateToken(ctx, m.AccountID, m.UserID, m.Token)
	if berr != nil || verdict.Kind == "Invalid" {
		s.send(c, &packet.ServerDisconnect{Message: "authentication failed"})
		c.Terminate()
		return
	}

	entry := s.fetchUserEntry(ctx, m.AccountID)
	if entry.IsBanned {
		s.send(c, &packet.ServerBanned{Message: "account is banned", Timestamp: time.Now().Unix()})
		c.Terminate()
		return
	}

	var keyBuf [4]byte
	if _, err := rand.Read(keyBuf[:]); err != nil {
		c.Terminate()
		return
	}
	secretKey := binary.BigEndian.Uint32(keyBuf[:])

	ok := c.Login(m.AccountID, m.UserID, m.Name, m.Icons, m.FragmentationLimit, m.PrivacyFlags, secretKey, client.UserEntry{
		IsBanned:     entry.IsBanned,
		IsMuted:      entry.IsMuted,
		ViolationExp: entry.ViolationExp,
		Whitelisted:  entry.Whitelisted,
		RolePriority: entry.RolePriority,
		Permissions:  entry.Permissions,
	})
	if !ok {
		c.Terminate()
		return
	}

	s.mu.Lock()
	existing, hadExisting := s.byAccount[m.AccountID]
	if hadExisting {
		delete(s.byAccount, m.AccountID)
		if peer := existing.Socket().UDPPeer(); peer != nil {
			delete(s.byUDPAddr, peer.String())
		}
	}
	s.byAccount[m.AccountID] = c
	s.mu.Unlock()
	if hadExisting {
		// Evicted here rather than left to its own idle timer: a second
		// login for the same account must not leave the stale session
		// lingering in the registry or its room/level slot (§4.E: "second
		// login kicks the first").
		s.send(existing, &packet.TerminationNotice{Message: "logged in from another location"})
		existing.Terminate()
		s.rooms.Leave(m.AccountID)
	}
	s.rooms.EnterGlobal(m.AccountID)

	s.send(c, &packet.LoggedIn{
		TPS:       uint8(cfg.TPS),
		SecretKey: secretKey,
		Protocol:  packet.CurrentVersion,
	})
}

// fetchUserEntry consults the bridge first and falls back to the local
// moderation cache (§9 "treat the in-memory user_entry as a cache") when the
// bridge call fails, so a transient outage doesn't let a cached ban lapse.
func (s *Server) fetchUserEntry(ctx context.Context, accountID int32) bridge.UserEntry {
	if u, berr := s.br.GetUser(ctx, accountID); berr == nil {
		if s.db != nil {
			_ = s.db.PutRole(store.CachedRole{AccountID: accountID, RolePriority: u.RolePriority, Permissions: u.Permissions, UpdatedAt: time.Now().Unix()})
			_ = s.db.PutPunishment(store.CachedPunishment{AccountID: accountID, IsBanned: u.IsBanned, IsMuted: u.IsMuted, ExpiresAt: u.ViolationExp, UpdatedAt: time.Now().Unix()})
		}
		return u
	}
	if s.db == nil {
		return bridge.UserEntry{AccountID: accountID}
	}
	role, _, _ := s.db.GetRole(accountID)
	punishment, _, _ := s.db.GetPunishment(accountID)
	return bridge.UserEntry{
		AccountID:    accountID,
		RolePriority: role.RolePriority,
		Permissions:  role.Permissions,
		IsBanned:     punishment.IsBanned,
		IsMuted:      punishment.IsMuted,
		ViolationExp: punishment.ExpiresAt,
	}
}

// handleRecover re-binds a fresh TCP connection to a Disconnected client
// record within the idle window (§4.E). The caller's read loop must switch
// to operating on the returned record instead of the one that was just
// dialed in.
func (s *Server) handleRecover(c *client.Client, m *packet.LoginRecover) *client.Client {
	s.mu.RLock()
	existing, ok := s.byAccount[m.AccountID]
	s.mu.RUnlock()
	if !ok || !existing.Recover(c.Socket(), m.SecretKey) {
		s.send(c, &packet.LoginRecoveryFailed{})
		c.Terminate()
		return nil
	}
	s.send(existing, &packet.LoggedIn{
		TPS:       uint8(s.watch.Current().TPS),
		SecretKey: m.SecretKey,
		Protocol:  packet.CurrentVersion,
	})
	return existing
}

// handlePlayerData updates c's pose in its current room and, via the
// broadcast engine, pushes every other player on the same level back to c
// (never to anyone else) as a LevelData aggregate.
func (s *Server) handlePlayerData(c *client.Client, m *packet.PlayerDataPacket) {
	if c.State() != client.Established {
		return
	}
	if lim := c.Limiters(s.watch.Current().TPS, s.watch.Current().ChatBurst, s.watch.Current().ChatInterval()); !lim.Packet.Allow() {
		return
	}
	_, roomID, _ := c.Snapshot()
	r, ok := s.rooms.Room(roomID)
	if !ok {
		r = s.rooms.Global()
	}
	c.SetLevel(m.LevelID, roomID, false)
	s.engine.OnPlayerData(r, c.AccountID(), room.PlayerData{
		LevelID:  m.LevelID,
		X:        m.X,
		Y:        m.Y,
		Rotation: m.Rotation,
		Flags:    m.Flags,
	}, c.FragmentationLimit())
}

// handleVoice gates a voice packet through the moderation gate before
// fanning it out to everyone else on the sender's level.
func (s *Server) handleVoice(c *client.Client, m *packet.VoicePacket) {
	if c.State() != client.Established {
		return
	}
	gate := s.moderationGate()
	if !gate.AllowVoice(c.AccountID(), len(m.Opus), packet.MaxVoicePacketBytes) {
		return
	}
	lim := c.Limiters(s.watch.Current().TPS, s.watch.Current().ChatBurst, s.watch.Current().ChatInterval())
	if !lim.Voice.Allow() {
		return
	}
	levelID, roomID, _ := c.Snapshot()
	r, ok := s.rooms.Room(roomID)
	if !ok {
		return
	}
	s.engine.BroadcastVoice(r, levelID, c.AccountID(), m.Opus)
}

// handleChat gates a chat packet through the moderation gate and the
// client's own chat-burst limiter before fanning it out.
func (s *Server) handleChat(c *client.Client, m *packet.ChatPacket) {
	if c.State() != client.Established {
		return
	}
	gate := s.moderationGate()
	if !gate.AllowChat(c.AccountID(), m.Message) {
		return
	}
	cfg := s.watch.Current()
	lim := c.Limiters(cfg.TPS, cfg.ChatBurst, cfg.ChatInterval())
	if !lim.Chat.Allow() {
		return
	}
	levelID, roomID, _ := c.Snapshot()
	r, ok := s.rooms.Room(roomID)
	if !ok {
		return
	}
	s.engine.BroadcastChat(r, levelID, c.AccountID(), m.Message)
}

func (s *Server) moderationGate() *ratelimit.Gate {
	return &ratelimit.Gate{IsMuted: func(accountID int32) bool {
		s.mu.RLock()
		c, ok := s.byAccount[accountID]
		s.mu.RUnlock()
		if !ok {
			return false
		}
		_, _, entry := c.Snapshot()
		return entry.IsMuted
	}}
}

func (s *Server) handleCreateRoom(c *client.Client, m *packet.CreateRoom) {
	if c.State() != client.Established {
		return
	}
	settings := room.Settings{PlayerLimit: m.PlayerLimit}
	if len(m.Flags) >= 4 {
		settings.Hidden, settings.PublicInvites, settings.TwoPlayerMode, settings.Collision = m.Flags[0], m.Flags[1], m.Flags[2], m.Flags[3]
	}
	r, err := s.rooms.CreateRoom(c.AccountID(), m.Name, m.Password, settings)
	if err != nil {
		s.send(c, &packet.RoomCreateFailed{Reason: err.Error()})
		return
	}
	c.SetLevel(0, r.ID(), false)
	s.engine.BroadcastRoomInfo(r)
	s.engine.BroadcastRoomPlayerList(r)
}

func (s *Server) handleJoinRoom(c *client.Client, m *packet.JoinRoom) {
	if c.State() != client.Established {
		return
	}
	r, err := s.rooms.JoinRoom(c.AccountID(), m.RoomID, m.Password)
	if err != nil {
		s.send(c, &packet.RoomCreateFailed{Reason: err.Error()})
		return
	}
	c.SetLevel(0, r.ID(), false)
	s.engine.BroadcastRoomInfo(r)
	s.engine.BroadcastRoomPlayerList(r)
}

func (s *Server) handleLeaveRoom(c *client.Client) {
	if c.State() != client.Established {
		return
	}
	_, roomID, _ := c.Snapshot()
	if roomID == room.GlobalRoomID {
		return
	}
	_, destroyed := s.rooms.LeaveRoom(c.AccountID(), roomID)
	c.SetLevel(0, room.GlobalRoomID, false)
	if !destroyed {
		if r, ok := s.rooms.Room(roomID); ok {
			s.engine.BroadcastRoomInfo(r)
			s.engine.BroadcastRoomPlayerList(r)
		}
	}
}

// handleAdminAuth checks key against the configured super-admin key,
// marking the client authorized on a match (§4.I). No per-account admin
// password is passed to admin.CheckKey, so the super-admin key is the only
// key that authorizes.
func (s *Server) handleAdminAuth(c *client.Client, m *packet.AdminAuth) {
	cfg := s.watch.Current()
	ok, isSuper := admin.CheckKey(m.Key, cfg.AdminKey, "")
	if !ok {
		s.send(c, &packet.AdminAuthFailed{})
		return
	}
	c.IsAuthorizedAdmin = true
	c.IsSuperAdmin = isSuper
	s.send(c, &packet.AdminSuccessfulUpdate{Message: "admin session authorized"})
}

// handleAdminNotice displays a message on one connected client, or on every
// connected client when AccountID == 0, gated on PermNotice/
// PermNoticeToEveryone respectively (§4.I).
func (s *Server) handleAdminNotice(c *client.Client, m *packet.AdminSendNotice) {
	if !c.IsAuthorizedAdmin {
		s.send(c, &packet.AdminError{Message: "not authorized"})
		return
	}
	_, _, entry := c.Snapshot()
	actor := admin.Actor{AccountID: c.AccountID(), Priority: entry.RolePriority, Permissions: entry.Permissions, IsSuperAdmin: c.IsSuperAdmin}

	if m.AccountID == 0 {
		if !admin.Require(actor, admin.PermNoticeToEveryone, -1) {
			s.send(c, &packet.AdminError{Message: "insufficient permission"})
			return
		}
		s.mu.RLock()
		targets := make([]*client.Client, 0, len(s.byAccount))
		for _, tc := range s.byAccount {
			targets = append(targets, tc)
		}
		s.mu.RUnlock()
		for _, tc := range targets {
			s.send(tc, &packet.AdminSendNotice{Message: m.Message})
		}
		s.send(c, &packet.AdminSuccessfulUpdate{Message: "notice sent to everyone"})
		return
	}

	if !admin.Require(actor, admin.PermNotice, -1) {
		s.send(c, &packet.AdminError{Message: "insufficient permission"})
		return
	}
	target, ok := s.lookupRecipient(m.AccountID)
	tc, ok2 := target.(*client.Client)
	if !ok || !ok2 {
		s.send(c, &packet.AdminError{Message: "target not connected"})
		return
	}
	s.send(tc, &packet.AdminSendNotice{AccountID: m.AccountID, Message: m.Message})
	s.send(c, &packet.AdminSuccessfulUpdate{Message: "notice sent"})
}

// handleAdminKick disconnects one connected client, or every connected
// client when AccountID == 0, gated on PermKick/PermKickEveryone (§4.I).
func (s *Server) handleAdminKick(c *client.Client, m *packet.AdminKick) {
	if !c.IsAuthorizedAdmin {
		s.send(c, &packet.AdminError{Message: "not authorized"})
		return
	}
	_, _, entry := c.Snapshot()
	actor := admin.Actor{AccountID: c.AccountID(), Priority: entry.RolePriority, Permissions: entry.Permissions, IsSuperAdmin: c.IsSuperAdmin}

	if m.AccountID == 0 {
		if !admin.Require(actor, admin.PermKickEveryone, -1) {
			s.send(c, &packet.AdminError{Message: "insufficient permission"})
			return
		}
		s.mu.RLock()
		targets := make([]*client.Client, 0, len(s.byAccount))
		for _, tc := range s.byAccount {
			targets = append(targets, tc)
		}
		s.mu.RUnlock()
		for _, tc := range targets {
			s.send(tc, &packet.TerminationNotice{Message: m.Reason})
			tc.Terminate()
		}
		s.send(c, &packet.AdminSuccessfulUpdate{Message: "kicked everyone"})
		return
	}

	targetPriority := -1
	if target, ok := s.lookupRecipient(m.AccountID); ok {
		if tc, ok := target.(*client.Client); ok {
			_, _, te := tc.Snapshot()
			targetPriority = int(te.RolePriority)
		}
	}
	if !admin.Require(actor, admin.PermKick, targetPriority) {
		s.send(c, &packet.AdminError{Message: "insufficient permission"})
		return
	}
	target, ok := s.lookupRecipient(m.AccountID)
	tc, ok2 := target.(*client.Client)
	if !ok || !ok2 {
		s.send(c, &packet.AdminError{Message: "target not connected"})
		return
	}
	s.send(tc, &packet.TerminationNotice{Message: m.Reason})
	tc.Terminate()
	s.send(c, &packet.AdminSuccessfulUpdate{Message: "kicked"})
}

// handleAdminPunish applies a mute/ban through the bridge (source of
// truth), refreshes the local cache, and notifies the target if connected.
func (s *Server) handleAdminPunish(ctx context.Context, c *client.Client, m *packet.AdminPunishUser) {
	if !c.IsAuthorizedAdmin {
		s.send(c, &packet.AdminError{Message: "not authorized"})
		return
	}
	_, _, entry := c.Snapshot()
	actor := admin.Actor{AccountID: c.AccountID(), Priority: entry.RolePriority, Permissions: entry.Permissions, IsSuperAdmin: c.IsSuperAdmin}
	wanted := admin.PermMute
	if m.IsBan {
		wanted = admin.PermBan
	}
	targetPriority := -1
	if target, ok := s.lookupRecipient(m.AccountID); ok {
		if tc, ok := target.(*client.Client); ok {
			_, _, te := tc.Snapshot()
			targetPriority = int(te.RolePriority)
		}
	}
	if !admin.Require(actor, wanted, targetPriority) {
		s.send(c, &packet.AdminError{Message: "insufficient permission"})
		return
	}

	if berr := s.br.PunishUser(ctx, bridge.PunishAction{
		AccountID: m.AccountID,
		IsBan:     m.IsBan,
		Reason:    m.Reason,
		ExpiresAt: m.ExpiresAt,
		ActorID:   c.AccountID(),
	}); berr != nil {
		s.send(c, &packet.AdminError{Message: berr.Error()})
		return
	}
	if s.db != nil {
		_ = s.db.PutPunishment(store.CachedPunishment{
			AccountID: m.AccountID, IsBanned: m.IsBan, IsMuted: !m.IsBan,
			Reason: m.Reason, ExpiresAt: m.ExpiresAt, PunishedBy: c.AccountID(), UpdatedAt: time.Now().Unix(),
		})
		_ = s.db.InsertAuditLog(c.AccountID(), c.Name, "punish", m.AccountID, m.Reason)
	}

	s.mu.RLock()
	target, ok := s.byAccount[m.AccountID]
	s.mu.RUnlock()
	if ok {
		_, _, te := target.Snapshot()
		te.IsBanned, te.IsMuted = m.IsBan, !m.IsBan
		target.UpdateUserEntry(te)
		if m.IsBan {
			s.send(target, &packet.ServerBanned{Message: m.Reason, Timestamp: time.Now().Unix()})
			target.Terminate()
		}
	}
	s.send(c, &packet.AdminSuccessfulUpdate{Message: "punishment applied"})

	action := "muted"
	if m.IsBan {
		action = "banned"
	}
	cfg := s.watch.Current()
	for _, url := range cfg.WebhookURLs {
		go s.br.SendWebhook(ctx, url, []string{
			fmt.Sprintf("%s account %d (%s) by %s", action, m.AccountID, m.Reason, c.Name),
		})
	}
}
