// Command server runs the tank duel WebSocket server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LemmyAI/tankduel/internal/config"
	"github.com/LemmyAI/tankduel/internal/room"
	"github.com/LemmyAI/tankduel/internal/server"
	"github.com/LemmyAI/tankduel/internal/storage"
	"github.com/LemmyAI/tankduel/internal/transport"
)

const recentResults = 20

func main() {
	log.Println("🎮 Tank duel server starting...")

	cfg := config.Load()

	registry := room.NewRegistry(cfg.Game)
	registry.OnMatchRemoved(func(matchID string) {
		log.Printf("🗑️ Game %s removed", matchID)
	})

	opts := server.Options{
		ShotDelay:  cfg.ShotDelay,
		FrameRate:  cfg.FrameRate,
		FrameBurst: cfg.FrameBurst,
	}

	var history *storage.History
	if cfg.HistoryDB != "" {
		h, err := storage.Open(cfg.HistoryDB)
		if err != nil {
			log.Fatalf("Failed to open history %s: %v", cfg.HistoryDB, err)
		}
		history = h
		opts.History = h
		log.Printf("📚 Recording results to %s", cfg.HistoryDB)
	}

	dispatcher := server.NewDispatcher(registry, opts)
	ws := transport.NewWebSocketTransport(cfg.Transport())
	dispatcher.Attach(ws)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{
			"games":   registry.Count(),
			"players": registry.PlayerCount(),
		})
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			http.Error(w, "history disabled", http.StatusNotFound)
			return
		}
		results, err := history.Recent(r.Context(), recentResults)
		if err != nil {
			log.Printf("❌ history query failed: %v", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, results)
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: mux,
	}

	go func() {
		log.Printf("✅ WebSocket server running on %s (ws://localhost%s/ws)", cfg.Addr(), cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to listen: %v", err)
		}
	}()

	// Stats
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.StatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Printf("📊 Active games: %d, Active players: %d", registry.Count(), registry.PlayerCount())
			case <-stop:
				return
			}
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutting down...")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	}
	if err := ws.Close(); err != nil {
		log.Printf("Error closing sockets: %v", err)
	}
	registry.Close()
	if history != nil {
		if err := history.Close(); err != nil {
			log.Printf("Error closing history: %v", err)
		}
	}
	log.Println("👋 Bye!")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ write response: %v", err)
	}
}
