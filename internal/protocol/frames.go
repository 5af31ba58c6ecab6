package protocol

import "github.com/LemmyAI/tankduel/internal/game"

// Outbound frame types.
const (
	MsgGameCreated        = "game_created"
	MsgGameJoined         = "game_joined"
	MsgPlayerJoined       = "player_joined"
	MsgError              = "error"
	MsgTankMoved          = "tank_moved"
	MsgProjectileFired    = "projectile_fired"
	MsgTankHit            = "tank_hit"
	MsgProjectileEnded    = "projectile_ended"
	MsgWeaponChanged      = "weapon_changed"
	MsgGameReset          = "game_reset"
	MsgPlayerDisconnected = "player_disconnected"
)

// Frame is any outbound frame.
type Frame interface {
	FrameType() string
}

// Header carries the type discriminator. Embedding it flattens "type" into the frame's JSON.
type Header struct {
	Type string `json:"type"`
}

func (h Header) FrameType() string { return h.Type }

type GameCreated struct {
	Header
	GameID      string        `json:"gameId"`
	PlayerID    string        `json:"playerId"`
	PlayerIndex int           `json:"playerIndex"`
	GameData    game.Snapshot `json:"gameData"`
}

type GameJoined struct {
	Header
	PlayerID    string        `json:"playerId"`
	GameID      string        `json:"gameId"`
	PlayerIndex int           `json:"playerIndex"`
	GameData    game.Snapshot `json:"gameData"`
}

type PlayerJoined struct {
	Header
	PlayerID    string `json:"playerId"`
	PlayerIndex int    `json:"playerIndex"`
}

type Error struct {
	Header
	Message string `json:"message"`
}

type TankMoved struct {
	Header
	PlayerIndex int     `json:"playerIndex"`
	NewX        float64 `json:"newX"`
}

type ProjectileFired struct {
	Header
	Projectile game.Projectile `json:"projectile"`
}

type TankHit struct {
	Header
	TankIndex     int        `json:"tankIndex"`
	Damage        int        `json:"damage"`
	NewHealth     int        `json:"newHealth"`
	GameState     game.Phase `json:"gameState"`
	CurrentPlayer int        `json:"currentPlayer"`
}

type ProjectileEnded struct {
	Header
	CurrentPlayer int `json:"currentPlayer"`
}

type WeaponChanged struct {
	Header
	WeaponIndex int `json:"weaponIndex"`
}

type GameReset struct {
	Header
	GameData game.Snapshot `json:"gameData"`
}

type PlayerDisconnected struct {
	Header
	PlayerID string `json:"playerId"`
}

func NewGameCreated(playerID string, playerIndex int, snap game.Snapshot) GameCreated {
	return GameCreated{Header{MsgGameCreated}, snap.GameID, playerID, playerIndex, snap}
}

func NewGameJoined(playerID string, playerIndex int, snap game.Snapshot) GameJoined {
	return GameJoined{Header{MsgGameJoined}, playerID, snap.GameID, playerIndex, snap}
}

func NewPlayerJoined(playerID string, playerIndex int) PlayerJoined {
	return PlayerJoined{Header{MsgPlayerJoined}, playerID, playerIndex}
}

func NewError(message string) Error {
	return Error{Header{MsgError}, message}
}

func NewTankMoved(playerIndex int, newX float64) TankMoved {
	return TankMoved{Header{MsgTankMoved}, playerIndex, newX}
}

func NewProjectileFired(p game.Projectile) ProjectileFired {
	return ProjectileFired{Header{MsgProjectileFired}, p}
}

// NewShotResolved builds tank_hit or projectile_ended for a resolved shot.
func NewShotResolved(res game.Resolution) Frame {
	if res.Hit {
		return TankHit{
			Header:        Header{MsgTankHit},
			TankIndex:     res.TankIndex,
			Damage:        res.Damage,
			NewHealth:     res.NewHealth,
			GameState:     res.Phase,
			CurrentPlayer: res.CurrentPlayer,
		}
	}
	return ProjectileEnded{Header{MsgProjectileEnded}, res.CurrentPlayer}
}

func NewWeaponChanged(weaponIndex int) WeaponChanged {
	return WeaponChanged{Header{MsgWeaponChanged}, weaponIndex}
}

func NewGameReset(snap game.Snapshot) GameReset {
	return GameReset{Header{MsgGameReset}, snap}
}

func NewPlayerDisconnected(playerID string) PlayerDisconnected {
	return PlayerDisconnected{Header{MsgPlayerDisconnected}, playerID}
}
