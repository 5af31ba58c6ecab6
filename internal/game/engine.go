package game

import "math"

// ShotResult is the outcome of one simulated shot.
type ShotResult struct {
	Hit       bool
	X, Y      float64 // Final position
	TankIndex int     // Valid only when Hit
	Damage    int     // Valid only when Hit
	Steps     int
}

// SimulateProjectile integrates p under constant gravity for at most cfg.MaxSteps steps.
// Each step moves the shot, then checks in order: out of bounds, ground impact, tank hit-boxes.
// damage is reported on a hit. It never mutates its inputs.
func SimulateProjectile(cfg Config, terrain Terrain, tanks []Tank, p Projectile, damage int) ShotResult {
	x, y, vx, vy := p.X, p.Y, p.VX, p.VY
	width := float64(cfg.Width)

	for step := 1; step <= cfg.MaxSteps; step++ {
		x += vx
		y += vy
		vy += cfg.Gravity

		if x < 0 || x >= width || y > cfg.Floor {
			return ShotResult{X: x, Y: y, Steps: step}
		}

		if y >= terrain.HeightAt(int(math.Floor(x)), cfg.Floor) {
			return ShotResult{X: x, Y: y, Steps: step}
		}

		for i, tank := range tanks {
			if inHitBox(cfg, terrain, tank, x, y) {
				return ShotResult{
					Hit:       true,
					X:         x,
					Y:         y,
					TankIndex: i,
					Damage:    damage,
					Steps:     step,
				}
			}
		}
	}

	return ShotResult{X: x, Y: y, Steps: cfg.MaxSteps}
}

// inHitBox reports whether (x, y) lies in the tank's rectangle. The rectangle is
// TankWidth wide from the tank's x, and TankHeight tall above the body top, which
// sits TankHeight above the terrain under the tank.
func inHitBox(cfg Config, terrain Terrain, tank Tank, x, y float64) bool {
	top := terrain.HeightAt(int(math.Floor(tank.X)), cfg.Floor) - cfg.TankHeight
	return x >= tank.X &&
		x <= tank.X+cfg.TankWidth &&
		y >= top-cfg.TankHeight &&
		y <= top
}
