// Command client is a terminal test client for the tank duel server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LemmyAI/tankduel/internal/game"
	"github.com/LemmyAI/tankduel/internal/protocol"
)

// gameID is learned from game_created / game_joined and attached to later commands.
var (
	gameMu sync.Mutex
	gameID string
)

func setGameID(id string) {
	gameMu.Lock()
	gameID = id
	gameMu.Unlock()
}

func currentGameID() string {
	gameMu.Lock()
	defer gameMu.Unlock()
	return gameID
}

func main() {
	serverAddr := flag.String("addr", "ws://localhost:3001/ws", "server WebSocket URL")
	flag.Parse()

	log.Printf("🎮 Connecting to %s...", *serverAddr)
	conn, _, err := websocket.DefaultDialer.Dial(*serverAddr, nil)
	if err != nil {
		log.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			printFrame(data)
		}
	}()

	fmt.Println("\n🎮 Commands:")
	fmt.Println("   create | join <gameId> | move <x> | fire <x> <y> <vx> <vy> | weapon <i> | reset | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			break
		}

		msg, err := buildCommand(fields)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Write error: %v", err)
			break
		}
		log.Printf("📤 Sent %s", fields[0])
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	log.Println("👋 Goodbye!")
}

func buildCommand(fields []string) (map[string]any, error) {
	nums, err := parseFloats(fields[1:])
	if err != nil && fields[0] != "join" {
		return nil, err
	}

	id := currentGameID()
	switch fields[0] {
	case "create":
		return map[string]any{"type": protocol.MsgCreateGame}, nil
	case "join":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: join <gameId>")
		}
		return map[string]any{"type": protocol.MsgJoinGame, "gameId": fields[1]}, nil
	case "move":
		if len(nums) != 1 {
			return nil, fmt.Errorf("usage: move <x>")
		}
		return map[string]any{"type": protocol.MsgMoveTank, "gameId": id, "newX": nums[0]}, nil
	case "fire":
		if len(nums) != 4 {
			return nil, fmt.Errorf("usage: fire <x> <y> <vx> <vy>")
		}
		p := game.Projectile{X: nums[0], Y: nums[1], VX: nums[2], VY: nums[3]}
		return map[string]any{"type": protocol.MsgFireProjectile, "gameId": id, "projectile": p}, nil
	case "weapon":
		if len(nums) != 1 {
			return nil, fmt.Errorf("usage: weapon <index>")
		}
		return map[string]any{"type": protocol.MsgChangeWeapon, "gameId": id, "weaponIndex": int(nums[0])}, nil
	case "reset":
		return map[string]any{"type": protocol.MsgResetGame, "gameId": id}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", a)
		}
		out = append(out, f)
	}
	return out, nil
}

func printFrame(data []byte) {
	switch protocol.MessageTypeName(data) {
	case protocol.MsgGameCreated:
		var f protocol.GameCreated
		if json.Unmarshal(data, &f) == nil {
			setGameID(f.GameID)
			log.Printf("✅ Created %s as player %d (%s)", f.GameID, f.PlayerIndex, f.PlayerID)
			return
		}
	case protocol.MsgGameJoined:
		var f protocol.GameJoined
		if json.Unmarshal(data, &f) == nil {
			setGameID(f.GameID)
			log.Printf("✅ Joined %s as player %d (%s)", f.GameID, f.PlayerIndex, f.PlayerID)
			return
		}
	case protocol.MsgTankHit:
		var f protocol.TankHit
		if json.Unmarshal(data, &f) == nil {
			log.Printf("💥 Tank %d hit for %d, health %d, state %s, turn %d",
				f.TankIndex, f.Damage, f.NewHealth, f.GameState, f.CurrentPlayer)
			return
		}
	case protocol.MsgError:
		var f protocol.Error
		if json.Unmarshal(data, &f) == nil {
			log.Printf("❌ %s", f.Message)
			return
		}
	}
	log.Printf("📥 Received %s: %s", protocol.MessageTypeName(data), truncate(data, 160))
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
