// Package server routes client frames to match operations and fans the results out.
package server

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/LemmyAI/tankduel/internal/game"
	"github.com/LemmyAI/tankduel/internal/protocol"
	"github.com/LemmyAI/tankduel/internal/room"
	"github.com/LemmyAI/tankduel/internal/storage"
	"github.com/LemmyAI/tankduel/internal/transport"
)

// User-facing error texts.
const (
	errTextNotFound = "Game not found"
	errTextFull     = "Game is full"
)

// Recorder stores finished matches. *storage.History satisfies it.
type Recorder interface {
	Record(ctx context.Context, r storage.Result) error
}

// Options tunes a Dispatcher.
type Options struct {
	ShotDelay  time.Duration
	FrameRate  float64
	FrameBurst int
	History    Recorder // Optional
}

// DefaultOptions returns the production timings without a history ledger.
func DefaultOptions() Options {
	return Options{
		ShotDelay:  2 * time.Second,
		FrameRate:  30,
		FrameBurst: 60,
	}
}

// Session is the per-connection binding to a player and a match.
// Its fields are only touched from that connection's read loop.
type Session struct {
	conn     transport.Conn
	playerID string
	matchID  string
	limiter  *rate.Limiter
}

func (s *Session) bound() bool {
	return s.playerID != ""
}

// Dispatcher validates inbound messages and applies them to matches.
type Dispatcher struct {
	registry    *room.Registry
	broadcaster *Broadcaster
	opts        Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *room.Registry, opts Options) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		broadcaster: NewBroadcaster(registry),
		opts:        opts,
		sessions:    make(map[string]*Session),
	}
}

// Attach registers the dispatcher's handlers on a transport.
func (d *Dispatcher) Attach(t *transport.WebSocketTransport) {
	t.OnConnect(d.Connect)
	t.OnMessage(d.HandleMessage)
	t.OnDisconnect(d.Disconnect)
}

// Connect starts a session for conn.
func (d *Dispatcher) Connect(conn transport.Conn) {
	d.session(conn)
	log.Printf("✅ Client connected: %s (%s)", conn.ID(), conn.RemoteAddr())
}

func (d *Dispatcher) session(conn transport.Conn) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[conn.ID()]
	if !ok {
		s = &Session{
			conn:    conn,
			limiter: rate.NewLimiter(rate.Limit(d.opts.FrameRate), d.opts.FrameBurst),
		}
		d.sessions[conn.ID()] = s
	}
	return s
}

// SessionCount returns the number of connected clients.
func (d *Dispatcher) SessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// HandleMessage decodes one frame and dispatches it. It never panics.
//
// The frame limiter covers malformed frames and the frames that allocate or
// rebuild matches. Move, fire and weapon frames are bounded by the turn and
// phase rules and are never rate limited.
func (d *Dispatcher) HandleMessage(conn transport.Conn, data []byte) {
	s := d.session(conn)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [%s] panic handling %s: %v\n%s", conn.ID(), protocol.MessageTypeName(data), r, debug.Stack())
		}
	}()

	msg, err := protocol.Decode(data)
	if err != nil {
		if s.limiter.Allow() {
			log.Printf("⚠️ [%s] dropping frame: %v", conn.ID(), err)
		}
		return
	}

	switch msg.(type) {
	case protocol.CreateGame, protocol.JoinGame, protocol.ResetGame:
		if !s.limiter.Allow() {
			log.Printf("⚠️ [%s] rate limited, dropping %s", conn.ID(), msg.Type())
			return
		}
	}

	switch m := msg.(type) {
	case protocol.CreateGame:
		d.handleCreate(s)
	case protocol.JoinGame:
		d.handleJoin(s, m)
	case protocol.MoveTank:
		d.handleMove(s, m)
	case protocol.FireProjectile:
		d.handleFire(s, m)
	case protocol.ChangeWeapon:
		d.handleWeapon(s, m)
	case protocol.ResetGame:
		d.handleReset(s, m)
	}
}

func (d *Dispatcher) handleCreate(s *Session) {
	if s.bound() {
		return
	}

	matchID, _ := d.registry.CreateMatch()
	_, _, _, err := d.registry.JoinMatch(matchID, s.conn, func(m *game.Match, playerID string, idx int) {
		s.playerID, s.matchID = playerID, m.ID
		send(s.conn, protocol.NewGameCreated(playerID, idx, m.Snapshot()))
	})
	if err != nil {
		// Only reachable if the fresh match vanished; nothing to report.
		log.Printf("❌ [%s] create failed: %v", s.conn.ID(), err)
		return
	}
	log.Printf("🎯 Game %s created by player %s", matchID, s.playerID)
}

func (d *Dispatcher) handleJoin(s *Session, msg protocol.JoinGame) {
	if s.bound() {
		return
	}

	_, _, _, err := d.registry.JoinMatch(msg.GameID, s.conn, func(m *game.Match, playerID string, idx int) {
		s.playerID, s.matchID = playerID, m.ID
		send(s.conn, protocol.NewGameJoined(playerID, idx, m.Snapshot()))
		d.broadcaster.Broadcast(m, protocol.NewPlayerJoined(playerID, idx), "")
	})
	switch {
	case errors.Is(err, room.ErrMatchNotFound):
		send(s.conn, protocol.NewError(errTextNotFound))
	case errors.Is(err, room.ErrMatchFull):
		send(s.conn, protocol.NewError(errTextFull))
	case err != nil:
		log.Printf("❌ [%s] join %s failed: %v", s.conn.ID(), msg.GameID, err)
	default:
		log.Printf("✅ Player %s joined game %s", s.playerID, s.matchID)
	}
}

// withMatch runs fn under the lock of the sender's match. Frames from unbound
// sessions, frames naming another match, and frames for a closed match are dropped.
func (d *Dispatcher) withMatch(s *Session, msg protocol.Message, fn func(m *game.Match)) {
	if !s.bound() {
		return
	}
	if id := msg.MatchID(); id != "" && id != s.matchID {
		return
	}
	m := d.registry.Match(s.matchID)
	if m == nil {
		return
	}

	m.Lock()
	defer m.Unlock()
	if m.Closed() {
		return
	}
	fn(m)
}

func (d *Dispatcher) handleMove(s *Session, msg protocol.MoveTank) {
	d.withMatch(s, msg, func(m *game.Match) {
		idx, err := m.MoveTank(s.playerID, msg.NewX)
		if err != nil {
			return
		}
		d.broadcaster.Broadcast(m, protocol.NewTankMoved(idx, msg.NewX), "")
	})
}

func (d *Dispatcher) handleFire(s *Session, msg protocol.FireProjectile) {
	d.withMatch(s, msg, func(m *game.Match) {
		seq, err := m.Fire(s.playerID, msg.Projectile)
		if err != nil {
			return
		}
		d.broadcaster.Broadcast(m, protocol.NewProjectileFired(msg.Projectile), "")
		m.ScheduleShot(d.opts.ShotDelay, func() { d.resolveShot(m, seq) })
	})
}

// resolveShot is the delayed continuation of a fire. It no-ops if the match
// was removed or reset while the shot was in flight.
func (d *Dispatcher) resolveShot(m *game.Match, seq uint64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic resolving shot in %s: %v\n%s", m.ID, r, debug.Stack())
		}
	}()

	res, players, ok := d.applyShot(m, seq)
	if !ok {
		log.Printf("🗑️ Stale shot %d in %s ignored", seq, m.ID)
		return
	}

	if res.Hit {
		log.Printf("💥 %s: tank %d hit for %d (health %d)", m.ID, res.TankIndex, res.Damage, res.NewHealth)
	}
	if res.GameOver() {
		// The destroyed tank loses, even when its owner fired the shot.
		winner := (res.TankIndex + 1) % players
		log.Printf("🏁 %s: player %d wins", m.ID, winner)
		d.record(m.ID, winner, res)
	}
}

func (d *Dispatcher) applyShot(m *game.Match, seq uint64) (game.Resolution, int, bool) {
	m.Lock()
	defer m.Unlock()

	res, ok := m.ResolveShot(seq)
	if ok {
		d.broadcaster.Broadcast(m, protocol.NewShotResolved(res), "")
	}
	return res, m.Config().MaxPlayers, ok
}

func (d *Dispatcher) record(matchID string, winner int, res game.Resolution) {
	if d.opts.History == nil {
		return
	}
	result := storage.Result{
		MatchID:    matchID,
		Winner:     winner,
		Loser:      res.TankIndex,
		Weapon:     res.Weapon,
		Damage:     res.Damage,
		Shots:      res.Shots,
		FinishedAt: time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.opts.History.Record(ctx, result); err != nil {
		log.Printf("❌ Failed to record result for %s: %v", matchID, err)
	}
}

func (d *Dispatcher) handleWeapon(s *Session, msg protocol.ChangeWeapon) {
	d.withMatch(s, msg, func(m *game.Match) {
		if err := m.ChangeWeapon(s.playerID, msg.WeaponIndex); err != nil {
			return
		}
		d.broadcaster.Broadcast(m, protocol.NewWeaponChanged(msg.WeaponIndex), "")
	})
}

func (d *Dispatcher) handleReset(s *Session, msg protocol.ResetGame) {
	d.withMatch(s, msg, func(m *game.Match) {
		if err := m.Reset(s.playerID); err != nil {
			return
		}
		d.broadcaster.Broadcast(m, protocol.NewGameReset(m.Snapshot()), "")
	})
}

// Disconnect ends conn's session and removes its player. The remaining
// participant, if any, is told.
func (d *Dispatcher) Disconnect(conn transport.Conn) {
	d.mu.Lock()
	s := d.sessions[conn.ID()]
	delete(d.sessions, conn.ID())
	d.mu.Unlock()

	log.Printf("❎ Client disconnected: %s", conn.ID())
	if s == nil || !s.bound() {
		return
	}

	m, remaining := d.registry.RemovePlayer(s.playerID, s.matchID)
	if m == nil {
		return
	}
	if remaining == 0 {
		log.Printf("🗑️ Game %s removed (no players)", s.matchID)
		return
	}

	m.Lock()
	defer m.Unlock()
	if m.Closed() {
		return
	}
	d.broadcaster.Broadcast(m, protocol.NewPlayerDisconnected(s.playerID), "")
	log.Printf("👋 Player %s disconnected from game %s", s.playerID, s.matchID)
}

// send delivers a reply to one connection, logging failures.
func send(conn transport.Conn, frame protocol.Frame) {
	data, err := protocol.Encode(frame)
	if err != nil {
		log.Printf("❌ Encode %s failed: %v", frame.FrameType(), err)
		return
	}
	if err := conn.Send(data); err != nil {
		log.Printf("⚠️ [%s] send %s failed: %v", conn.ID(), frame.FrameType(), err)
	}
}
