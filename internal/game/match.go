package game

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/brunoga/deep/v2"
)

// Match is one authoritative duel. Every method except Lock and Unlock expects
// the caller to hold the match lock, so a mutation and the frames describing it
// can be produced in one critical section.
type Match struct {
	ID string

	mu     sync.Mutex
	config Config
	rng    *rand.Rand

	players       []string
	currentPlayer int
	phase         Phase
	projectile    *Projectile
	terrain       Terrain
	tanks         []Tank
	weaponIndex   int
	shots         int

	shotSeq   uint64
	shotTimer *time.Timer
	closed    bool
}

// Resolution is the applied outcome of a shot.
type Resolution struct {
	ShotResult
	NewHealth     int
	Phase         Phase
	CurrentPlayer int
	Shooter       int
	Weapon        string
	Shots         int
}

// GameOver reports whether the shot ended the match.
func (r Resolution) GameOver() bool {
	return r.Phase == PhaseGameOver
}

// Snapshot is a read-only copy of a match's public state.
type Snapshot struct {
	GameID        string         `json:"gameId"`
	CurrentPlayer int            `json:"currentPlayer"`
	GameState     Phase          `json:"gameState"`
	Projectile    *Projectile    `json:"projectile"`
	Terrain       Terrain        `json:"terrain"`
	Tanks         []Tank         `json:"tanks"`
	WeaponIndex   int            `json:"weaponIndex"`
	Weapons       []string       `json:"weapons"`
	WeaponDamage  map[string]int `json:"weaponDamage"`
}

// NewMatch creates a match with fresh terrain and default tanks.
func NewMatch(id string, config Config) *Match {
	return NewMatchWithRand(id, config, nil)
}

// NewMatchWithRand is NewMatch with an explicit jitter source.
func NewMatchWithRand(id string, config Config, rng *rand.Rand) *Match {
	m := &Match{
		ID:      id,
		config:  config,
		rng:     rng,
		players: make([]string, 0, config.MaxPlayers),
	}
	m.applyDefaults()
	return m
}

// Lock acquires the match lock.
func (m *Match) Lock() { m.mu.Lock() }

// Unlock releases the match lock.
func (m *Match) Unlock() { m.mu.Unlock() }

func (m *Match) applyDefaults() {
	m.tanks = slices.Clone(m.config.Tanks)
	for i := range m.tanks {
		m.tanks[i].Health = m.config.MaxHealth
	}
	m.currentPlayer = 0
	m.phase = PhaseWaiting
	m.projectile = nil
	m.terrain = GenerateTerrain(m.config, m.rng)
	m.weaponIndex = 0
	m.shots = 0
}

// Config returns the match's tunables.
func (m *Match) Config() Config {
	return m.config
}

// AddPlayer appends a participant and returns its slot index.
// The registry enforces the player cap before calling.
func (m *Match) AddPlayer(playerID string) int {
	m.players = append(m.players, playerID)
	return len(m.players) - 1
}

// RemovePlayer drops a participant and returns how many remain.
func (m *Match) RemovePlayer(playerID string) int {
	m.players = slices.DeleteFunc(m.players, func(id string) bool { return id == playerID })
	return len(m.players)
}

// IsFull reports whether every player slot is taken.
func (m *Match) IsFull() bool {
	return len(m.players) >= m.config.MaxPlayers
}

// Players returns the participant ids in join order.
func (m *Match) Players() []string {
	return slices.Clone(m.players)
}

// PlayerCount returns the number of participants.
func (m *Match) PlayerCount() int {
	return len(m.players)
}

// PlayerIndex returns the slot of playerID, or -1 if it is not a participant.
func (m *Match) PlayerIndex(playerID string) int {
	return slices.Index(m.players, playerID)
}

// Phase returns the current phase.
func (m *Match) Phase() Phase {
	return m.phase
}

// CurrentPlayer returns the turn pointer.
func (m *Match) CurrentPlayer() int {
	return m.currentPlayer
}

// Tanks returns a copy of the tanks.
func (m *Match) Tanks() []Tank {
	return slices.Clone(m.tanks)
}

// WeaponIndex returns the selected weapon.
func (m *Match) WeaponIndex() int {
	return m.weaponIndex
}

// Closed reports whether the match has been removed from its registry.
func (m *Match) Closed() bool {
	return m.closed
}

// Close marks the match dead and cancels any pending shot.
func (m *Match) Close() {
	m.closed = true
	m.cancelShot()
}

// currentTurn returns the sender's slot if it is the sender's turn.
func (m *Match) currentTurn(playerID string) (int, error) {
	idx := m.PlayerIndex(playerID)
	if idx < 0 || idx != m.currentPlayer {
		return -1, ErrPreconditionFailed
	}
	return idx, nil
}

// MoveTank sets the sender's tank x. Only the current player may move, and only while waiting.
func (m *Match) MoveTank(playerID string, x float64) (int, error) {
	idx, err := m.currentTurn(playerID)
	if err != nil {
		return -1, err
	}
	if m.phase != PhaseWaiting || idx >= len(m.tanks) {
		return -1, ErrPreconditionFailed
	}
	m.tanks[idx].X = x
	return idx, nil
}

// Fire puts the match into the firing phase and returns the shot's sequence number,
// which ResolveShot must be given back.
func (m *Match) Fire(playerID string, p Projectile) (uint64, error) {
	if _, err := m.currentTurn(playerID); err != nil {
		return 0, err
	}
	if m.phase != PhaseWaiting {
		return 0, ErrPreconditionFailed
	}
	m.phase = PhaseFiring
	m.projectile = &p
	m.shots++
	m.shotSeq++
	return m.shotSeq, nil
}

// ScheduleShot arms fn to run after delay as the continuation of the current shot.
func (m *Match) ScheduleShot(delay time.Duration, fn func()) {
	m.stopTimer()
	m.shotTimer = time.AfterFunc(delay, fn)
}

func (m *Match) stopTimer() {
	if m.shotTimer != nil {
		m.shotTimer.Stop()
		m.shotTimer = nil
	}
}

// cancelShot stops the pending continuation and invalidates its sequence number,
// so a callback that already fired and is waiting on the lock becomes a no-op.
func (m *Match) cancelShot() {
	m.stopTimer()
	m.shotSeq++
}

// ResolveShot simulates the in-flight projectile and applies damage, turn and
// game-over rules. It returns false, without touching state, if the match was
// closed, reset, or is no longer firing shot seq.
func (m *Match) ResolveShot(seq uint64) (Resolution, bool) {
	if m.closed || seq != m.shotSeq || m.phase != PhaseFiring || m.projectile == nil {
		return Resolution{}, false
	}

	shooter := m.currentPlayer
	res := SimulateProjectile(m.config, m.terrain, m.tanks, *m.projectile, m.config.Damage(m.weaponIndex))
	m.projectile = nil
	m.shotTimer = nil

	out := Resolution{
		ShotResult: res,
		Shooter:    shooter,
		Weapon:     m.config.WeaponName(m.weaponIndex),
		Shots:      m.shots,
	}

	if res.Hit {
		tank := &m.tanks[res.TankIndex]
		tank.Health = max(0, tank.Health-res.Damage)
		out.NewHealth = tank.Health
		if tank.Health <= 0 {
			m.phase = PhaseGameOver
		} else {
			m.advanceTurn()
		}
	} else {
		m.advanceTurn()
	}

	out.Phase = m.phase
	out.CurrentPlayer = m.currentPlayer
	return out, true
}

func (m *Match) advanceTurn() {
	m.currentPlayer = (m.currentPlayer + 1) % m.config.MaxPlayers
	m.phase = PhaseWaiting
}

// ChangeWeapon selects a weapon. Only the current player may change it.
func (m *Match) ChangeWeapon(playerID string, weaponIndex int) error {
	if _, err := m.currentTurn(playerID); err != nil {
		return err
	}
	m.weaponIndex = weaponIndex
	return nil
}

// Reset restores default tanks, turn and phase and draws new terrain.
// Any participant may reset; a pending shot is cancelled.
func (m *Match) Reset(playerID string) error {
	if m.PlayerIndex(playerID) < 0 {
		return ErrPreconditionFailed
	}
	m.cancelShot()
	m.applyDefaults()
	return nil
}

// Snapshot copies the public state. The result shares no memory with the match.
func (m *Match) Snapshot() Snapshot {
	weapons := make([]string, len(m.config.Weapons))
	damage := make(map[string]int, len(m.config.Weapons))
	for i, w := range m.config.Weapons {
		weapons[i] = w.Name
		damage[w.Name] = w.Damage
	}

	return Snapshot{
		GameID:        m.ID,
		CurrentPlayer: m.currentPlayer,
		GameState:     m.phase,
		Projectile:    deep.MustCopy(m.projectile),
		Terrain:       deep.MustCopy(m.terrain),
		Tanks:         deep.MustCopy(m.tanks),
		WeaponIndex:   m.weaponIndex,
		Weapons:       weapons,
		WeaponDamage:  damage,
	}
}
