// Package protocol defines the JSON frames exchanged with clients.
//
// Every frame is one UTF-8 JSON object with a "type" discriminator. Inbound frames
// decode into a closed set of Message variants; outbound frames are typed structs.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LemmyAI/tankduel/internal/game"
)

// ErrMalformedFrame is returned for frames that cannot be decoded into a known message.
var ErrMalformedFrame = errors.New("malformed frame")

// Inbound message types.
const (
	MsgCreateGame     = "create_game"
	MsgJoinGame       = "join_game"
	MsgMoveTank       = "move_tank"
	MsgFireProjectile = "fire_projectile"
	MsgChangeWeapon   = "change_weapon"
	MsgResetGame      = "reset_game"
)

// Message is an inbound client request. The set of variants is closed.
type Message interface {
	Type() string
	// MatchID returns the gameId the client addressed, or "" if it sent none.
	MatchID() string
	isMessage()
}

// CreateGame asks for a new match with the sender as player 0.
type CreateGame struct{}

// JoinGame asks to join an existing match.
type JoinGame struct {
	GameID string
}

// MoveTank repositions the sender's tank.
type MoveTank struct {
	GameID string
	Tank   *int // Informational; the server always moves the sender's own tank
	NewX   float64
}

// FireProjectile launches a shot.
type FireProjectile struct {
	GameID     string
	Projectile game.Projectile
}

// ChangeWeapon selects a weapon from the catalog.
type ChangeWeapon struct {
	GameID      string
	WeaponIndex int
}

// ResetGame restarts the match.
type ResetGame struct {
	GameID string
}

func (CreateGame) Type() string     { return MsgCreateGame }
func (JoinGame) Type() string       { return MsgJoinGame }
func (MoveTank) Type() string       { return MsgMoveTank }
func (FireProjectile) Type() string { return MsgFireProjectile }
func (ChangeWeapon) Type() string   { return MsgChangeWeapon }
func (ResetGame) Type() string      { return MsgResetGame }

func (CreateGame) MatchID() string       { return "" }
func (m JoinGame) MatchID() string       { return m.GameID }
func (m MoveTank) MatchID() string       { return m.GameID }
func (m FireProjectile) MatchID() string { return m.GameID }
func (m ChangeWeapon) MatchID() string   { return m.GameID }
func (m ResetGame) MatchID() string      { return m.GameID }

func (CreateGame) isMessage()     {}
func (JoinGame) isMessage()       {}
func (MoveTank) isMessage()       {}
func (FireProjectile) isMessage() {}
func (ChangeWeapon) isMessage()   {}
func (ResetGame) isMessage()      {}

// inbound is the union of every inbound payload field. Pointers mark presence.
type inbound struct {
	Type        string           `json:"type"`
	GameID      string           `json:"gameId"`
	Tank        *int             `json:"tank"`
	NewX        *float64         `json:"newX"`
	Projectile  *game.Projectile `json:"projectile"`
	WeaponIndex *int             `json:"weaponIndex"`
}

// Decode parses one inbound frame. Any failure wraps ErrMalformedFrame.
func Decode(data []byte) (Message, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch in.Type {
	case MsgCreateGame:
		return CreateGame{}, nil
	case MsgJoinGame:
		if in.GameID == "" {
			return nil, missing(in.Type, "gameId")
		}
		return JoinGame{GameID: in.GameID}, nil
	case MsgMoveTank:
		if in.NewX == nil {
			return nil, missing(in.Type, "newX")
		}
		return MoveTank{GameID: in.GameID, Tank: in.Tank, NewX: *in.NewX}, nil
	case MsgFireProjectile:
		if in.Projectile == nil {
			return nil, missing(in.Type, "projectile")
		}
		return FireProjectile{GameID: in.GameID, Projectile: *in.Projectile}, nil
	case MsgChangeWeapon:
		if in.WeaponIndex == nil {
			return nil, missing(in.Type, "weaponIndex")
		}
		return ChangeWeapon{GameID: in.GameID, WeaponIndex: *in.WeaponIndex}, nil
	case MsgResetGame:
		return ResetGame{GameID: in.GameID}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, in.Type)
	}
}

func missing(msgType, field string) error {
	return fmt.Errorf("%w: %s without %s", ErrMalformedFrame, msgType, field)
}

// Encode serializes a frame to bytes.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return data, nil
}

// MessageTypeName returns the "type" field of any frame, inbound or outbound.
func MessageTypeName(data []byte) string {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil || h.Type == "" {
		return "Unknown"
	}
	return h.Type
}
