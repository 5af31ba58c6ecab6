package game

import (
	"errors"
	"testing"
	"time"
)

func newTestMatch(t *testing.T) *Match {
	t.Helper()
	m := NewMatch("game_test", flatConfig())
	m.AddPlayer("alice")
	m.AddPlayer("bob")
	return m
}

func TestNewMatchDefaults(t *testing.T) {
	m := NewMatch("game_1", DefaultConfig())

	if m.Phase() != PhaseWaiting {
		t.Errorf("expected phase waiting, got %s", m.Phase())
	}
	if m.CurrentPlayer() != 0 {
		t.Errorf("expected turn 0, got %d", m.CurrentPlayer())
	}
	if m.PlayerCount() != 0 {
		t.Errorf("expected no players, got %d", m.PlayerCount())
	}

	snap := m.Snapshot()
	if len(snap.Terrain) != 1200 {
		t.Errorf("expected 1200 terrain samples, got %d", len(snap.Terrain))
	}
	if len(snap.Tanks) != 2 {
		t.Fatalf("expected 2 tanks, got %d", len(snap.Tanks))
	}
	if snap.Tanks[0].X != 100 || snap.Tanks[1].X != 1100 {
		t.Errorf("unexpected tank positions %.0f, %.0f", snap.Tanks[0].X, snap.Tanks[1].X)
	}
	if snap.Projectile != nil {
		t.Error("expected no projectile")
	}
	if snap.WeaponDamage["Laser"] != 50 {
		t.Errorf("expected Laser damage 50, got %d", snap.WeaponDamage["Laser"])
	}
}

func TestMatchPlayerSlots(t *testing.T) {
	m := NewMatch("game_1", DefaultConfig())

	if idx := m.AddPlayer("a"); idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}
	if m.IsFull() {
		t.Error("match should not be full with one player")
	}
	if idx := m.AddPlayer("b"); idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
	if !m.IsFull() {
		t.Error("match should be full with two players")
	}

	if remaining := m.RemovePlayer("a"); remaining != 1 {
		t.Errorf("expected 1 remaining, got %d", remaining)
	}
	if m.PlayerIndex("b") != 0 {
		t.Errorf("expected b to shift to slot 0, got %d", m.PlayerIndex("b"))
	}
	if m.PlayerIndex("a") != -1 {
		t.Error("expected removed player to have no slot")
	}
}

func TestMatchMoveTank(t *testing.T) {
	m := newTestMatch(t)

	idx, err := m.MoveTank("alice", 250)
	if err != nil {
		t.Fatalf("MoveTank failed: %v", err)
	}
	if idx != 0 || m.Tanks()[0].X != 250 {
		t.Errorf("expected alice's tank at 250, got index %d x %.0f", idx, m.Tanks()[0].X)
	}
}

func TestMatchRejectsOutOfTurnActions(t *testing.T) {
	m := newTestMatch(t)
	before := m.Snapshot()

	if _, err := m.MoveTank("bob", 900); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("move: expected ErrPreconditionFailed, got %v", err)
	}
	if _, err := m.Fire("bob", Projectile{X: 1100, Y: 400}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("fire: expected ErrPreconditionFailed, got %v", err)
	}
	if err := m.ChangeWeapon("bob", 3); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("weapon: expected ErrPreconditionFailed, got %v", err)
	}
	if _, err := m.MoveTank("mallory", 900); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("stranger move: expected ErrPreconditionFailed, got %v", err)
	}
	if err := m.Reset("mallory"); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("stranger reset: expected ErrPreconditionFailed, got %v", err)
	}

	after := m.Snapshot()
	if after.Tanks[1].X != before.Tanks[1].X || after.WeaponIndex != before.WeaponIndex ||
		after.GameState != before.GameState || after.CurrentPlayer != before.CurrentPlayer {
		t.Error("rejected actions changed match state")
	}
}

func TestMatchFireRequiresWaiting(t *testing.T) {
	m := newTestMatch(t)

	if _, err := m.Fire("alice", Projectile{X: 600, Y: 400}); err != nil {
		t.Fatalf("Fire failed: %v", err)
	}
	if m.Phase() != PhaseFiring {
		t.Fatalf("expected firing, got %s", m.Phase())
	}
	if _, err := m.Fire("alice", Projectile{X: 600, Y: 400}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("second fire: expected ErrPreconditionFailed, got %v", err)
	}
	if _, err := m.MoveTank("alice", 120); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("move while firing: expected ErrPreconditionFailed, got %v", err)
	}
	// Weapon changes are only turn-gated.
	if err := m.ChangeWeapon("alice", 2); err != nil {
		t.Errorf("weapon while firing: %v", err)
	}
}

func TestMatchResolveMissAdvancesTurn(t *testing.T) {
	m := newTestMatch(t)

	seq, err := m.Fire("alice", Projectile{X: -10, Y: 300, VX: 0, VY: -50})
	if err != nil {
		t.Fatalf("Fire failed: %v", err)
	}

	res, ok := m.ResolveShot(seq)
	if !ok {
		t.Fatal("expected resolution")
	}
	if res.Hit {
		t.Error("expected miss")
	}
	if res.CurrentPlayer != 1 || m.CurrentPlayer() != 1 {
		t.Errorf("expected turn 1, got %d", m.CurrentPlayer())
	}
	if m.Phase() != PhaseWaiting {
		t.Errorf("expected waiting, got %s", m.Phase())
	}
	if m.Snapshot().Projectile != nil {
		t.Error("projectile should be cleared")
	}
	for i, tank := range m.Tanks() {
		if tank.Health != 100 {
			t.Errorf("tank %d health changed to %d", i, tank.Health)
		}
	}
}

func TestMatchResolveHitAppliesDamage(t *testing.T) {
	m := newTestMatch(t)
	if err := m.ChangeWeapon("alice", 1); err != nil {
		t.Fatalf("ChangeWeapon failed: %v", err)
	}

	seq, _ := m.Fire("alice", Projectile{X: 1110, Y: 400})
	res, ok := m.ResolveShot(seq)
	if !ok || !res.Hit {
		t.Fatalf("expected hit, got ok=%v res=%+v", ok, res)
	}
	if res.TankIndex != 1 || res.Damage != 40 || res.NewHealth != 60 {
		t.Errorf("unexpected resolution %+v", res)
	}
	if res.Weapon != "Missile" || res.Shooter != 0 {
		t.Errorf("unexpected shooter/weapon %d/%s", res.Shooter, res.Weapon)
	}
	if m.CurrentPlayer() != 1 || m.Phase() != PhaseWaiting {
		t.Errorf("expected bob's turn while waiting, got %d/%s", m.CurrentPlayer(), m.Phase())
	}
}

func TestMatchTurnAlternatesAndHealthMonotonic(t *testing.T) {
	m := newTestMatch(t)
	shooters := []string{"alice", "bob"}
	targets := []Projectile{{X: 1110, Y: 400}, {X: 110, Y: 400}}
	lastHealth := []int{100, 100}

	for turn := 0; ; turn++ {
		who := turn % 2
		if m.CurrentPlayer() != who {
			t.Fatalf("turn %d: expected player %d, got %d", turn, who, m.CurrentPlayer())
		}
		seq, err := m.Fire(shooters[who], targets[who])
		if err != nil {
			t.Fatalf("turn %d: Fire failed: %v", turn, err)
		}
		res, ok := m.ResolveShot(seq)
		if !ok {
			t.Fatalf("turn %d: no resolution", turn)
		}

		for i, tank := range m.Tanks() {
			if tank.Health > lastHealth[i] || tank.Health < 0 {
				t.Fatalf("tank %d health went from %d to %d", i, lastHealth[i], tank.Health)
			}
			lastHealth[i] = tank.Health
		}

		if res.GameOver() {
			if m.Phase() != PhaseGameOver || res.NewHealth != 0 {
				t.Fatalf("expected game over at zero health, got %s/%d", m.Phase(), res.NewHealth)
			}
			if m.CurrentPlayer() != who {
				t.Error("turn must not advance on game over")
			}
			break
		}
		if turn > 20 {
			t.Fatal("match never ended")
		}
	}

	// Terminal until reset.
	if _, err := m.Fire(shooters[m.CurrentPlayer()], targets[0]); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("fire after game over: expected ErrPreconditionFailed, got %v", err)
	}
}

func TestMatchResolveStaleShot(t *testing.T) {
	m := newTestMatch(t)

	seq, _ := m.Fire("alice", Projectile{X: 1110, Y: 400})
	if err := m.Reset("bob"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, ok := m.ResolveShot(seq); ok {
		t.Error("shot fired before reset must not resolve")
	}
	if m.Tanks()[1].Health != 100 {
		t.Error("stale shot applied damage")
	}

	seq, _ = m.Fire("alice", Projectile{X: 1110, Y: 400})
	m.Close()
	if _, ok := m.ResolveShot(seq); ok {
		t.Error("shot must not resolve on a closed match")
	}
}

func TestMatchScheduleShotKeepsSequence(t *testing.T) {
	m := newTestMatch(t)
	done := make(chan Resolution, 1)

	m.Lock()
	seq, _ := m.Fire("alice", Projectile{X: -10, Y: 300, VY: -50})
	m.ScheduleShot(5*time.Millisecond, func() {
		m.Lock()
		defer m.Unlock()
		if res, ok := m.ResolveShot(seq); ok {
			done <- res
		}
	})
	m.Unlock()

	select {
	case res := <-done:
		if res.CurrentPlayer != 1 {
			t.Errorf("expected turn 1, got %d", res.CurrentPlayer)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled shot never resolved")
	}
}

func TestMatchCloseCancelsScheduledShot(t *testing.T) {
	m := newTestMatch(t)
	fired := make(chan struct{}, 1)

	m.Lock()
	m.Fire("alice", Projectile{X: -10, Y: 300})
	m.ScheduleShot(20*time.Millisecond, func() { fired <- struct{}{} })
	m.Close()
	m.Unlock()

	select {
	case <-fired:
		t.Error("timer should have been stopped")
	case <-time.After(60 * time.Millisecond):
	}

	m.Lock()
	defer m.Unlock()
	if !m.Closed() {
		t.Error("expected match closed")
	}
}

func TestWeaponChangeInFlightSetsDamage(t *testing.T) {
	m := newTestMatch(t)

	seq, err := m.Fire("alice", Projectile{X: 1110, Y: 400})
	if err != nil {
		t.Fatalf("Fire failed: %v", err)
	}
	// The shooter still owns the turn while the shot flies, so the weapon can change.
	if err := m.ChangeWeapon("alice", 3); err != nil {
		t.Fatalf("ChangeWeapon failed: %v", err)
	}
	if err := m.ChangeWeapon("bob", 1); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("opponent weapon change: expected ErrPreconditionFailed, got %v", err)
	}

	res, ok := m.ResolveShot(seq)
	if !ok || !res.Hit {
		t.Fatalf("expected a hit, got %+v (ok=%v)", res, ok)
	}
	if res.Damage != 50 || res.Weapon != "Laser" || res.NewHealth != 50 {
		t.Errorf("expected Laser damage at resolution, got %d (%s), health %d", res.Damage, res.Weapon, res.NewHealth)
	}
}

func TestMatchReset(t *testing.T) {
	m := NewMatch("game_1", DefaultConfig())
	m.AddPlayer("alice")
	m.AddPlayer("bob")
	original := m.Snapshot()

	m.MoveTank("alice", 300)
	m.ChangeWeapon("alice", 3)
	seq, _ := m.Fire("alice", Projectile{X: 1110, Y: 380})
	m.ResolveShot(seq)

	if err := m.Reset("bob"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	snap := m.Snapshot()
	if snap.GameID != original.GameID {
		t.Error("reset must keep match identity")
	}
	if snap.GameState != PhaseWaiting || snap.CurrentPlayer != 0 || snap.WeaponIndex != 0 {
		t.Errorf("unexpected state after reset: %s turn %d weapon %d", snap.GameState, snap.CurrentPlayer, snap.WeaponIndex)
	}
	for i, tank := range snap.Tanks {
		if tank.Health != 100 || tank.X != DefaultConfig().Tanks[i].X {
			t.Errorf("tank %d not restored: %+v", i, tank)
		}
	}
	if len(snap.Terrain) != len(original.Terrain) {
		t.Errorf("terrain length %d, want %d", len(snap.Terrain), len(original.Terrain))
	}
	if m.PlayerCount() != 2 {
		t.Error("reset must keep participants")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	m := newTestMatch(t)
	snap := m.Snapshot()

	snap.Terrain[0] = -1
	snap.Tanks[0].Health = 1

	again := m.Snapshot()
	if again.Terrain[0] == -1 || again.Tanks[0].Health == 1 {
		t.Error("snapshot aliases live match state")
	}
}
