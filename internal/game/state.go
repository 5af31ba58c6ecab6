// Package game implements the authoritative tank duel: terrain, ballistics and match state.
package game

import "errors"

// ErrPreconditionFailed is returned when an action arrives from the wrong player,
// in the wrong phase, or from someone who is not in the match. Callers drop it silently.
var ErrPreconditionFailed = errors.New("precondition failed")

// Config holds terrain, physics and match tunables.
type Config struct {
	Width      int     // Terrain samples, one per horizontal unit (default: 1200)
	Floor      float64 // Vertical floor; y beyond this is out of bounds (default: 600)
	Baseline   float64 // Mean terrain height (default: 500)
	Amplitude  float64 // Sine amplitude (default: 30)
	Frequency  float64 // Sine frequency per unit (default: 0.01)
	Jitter     float64 // Upper bound of the random term added per sample (default: 5)
	Gravity    float64 // Added to vy every step (default: 0.2)
	MaxSteps   int     // Simulation step cap per shot (default: 200)
	TankWidth  float64 // Hit-box width (default: 40)
	TankHeight float64 // Body height above terrain, also hit-box height (default: 20)
	MaxHealth  int     // Starting health (default: 100)
	MaxPlayers int     // Participants per match (default: 2)

	DefaultDamage int      // Used when the selected weapon is not in the catalog
	Weapons       []Weapon // Ordered catalog
	Tanks         []Tank   // Starting tanks, one per player slot
}

// Weapon is one entry of the weapon catalog.
type Weapon struct {
	Name   string
	Damage int
}

// DefaultConfig returns the classic duel setup.
func DefaultConfig() Config {
	return Config{
		Width:         1200,
		Floor:         600,
		Baseline:      500,
		Amplitude:     30,
		Frequency:     0.01,
		Jitter:        5,
		Gravity:       0.2,
		MaxSteps:      200,
		TankWidth:     40,
		TankHeight:    20,
		MaxHealth:     100,
		MaxPlayers:    2,
		DefaultDamage: 20,
		Weapons: []Weapon{
			{Name: "Cannon", Damage: 25},
			{Name: "Missile", Damage: 40},
			{Name: "Napalm", Damage: 35},
			{Name: "Laser", Damage: 50},
		},
		Tanks: []Tank{
			{X: 100, Y: 550, Color: "blue", IsPlayer: true, Health: 100, Owner: 0},
			{X: 1100, Y: 550, Color: "red", IsPlayer: false, Health: 100, Owner: 1},
		},
	}
}

// Damage returns the catalog damage for a weapon index, or DefaultDamage if
// the index does not name a weapon.
func (c Config) Damage(weaponIndex int) int {
	if weaponIndex < 0 || weaponIndex >= len(c.Weapons) {
		return c.DefaultDamage
	}
	return c.Weapons[weaponIndex].Damage
}

// WeaponName returns the catalog name for a weapon index, or "" if unknown.
func (c Config) WeaponName(weaponIndex int) string {
	if weaponIndex < 0 || weaponIndex >= len(c.Weapons) {
		return ""
	}
	return c.Weapons[weaponIndex].Name
}

// Phase is the match-level state.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseFiring   Phase = "firing"
	PhaseGameOver Phase = "gameOver"
)

// Tank is one player's tank.
type Tank struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	IsPlayer bool    `json:"isPlayer"`
	Health   int     `json:"health"`
	Owner    int     `json:"playerId"`
}

// Projectile is an in-flight shot.
type Projectile struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}
