package main

import (
	"context"
	"log"
	"math"
	"time"

	"gdrelay/internal/room"
)

// botAccountID is a reserved account id outside any real auth provider's
// range, used so a synthetic bot can never collide with a logged-in player.
const botAccountID int32 = -1

// RunTestBot drops a synthetic player into the global room and oscillates
// its position on a fixed level, exercising the same PlayerData bookkeeping
// and LevelData fan-out real players drive, without needing a live socket.
// Useful for load-testing the broadcast engine in isolation.
func RunTestBot(ctx context.Context, rooms *room.Manager, name string) {
	const levelID int32 = 1
	g := rooms.Global()
	rooms.EnterGlobal(botAccountID)
	log.Printf("[testbot] %q joined the global room as account %d", name, botAccountID)

	defer func() {
		rooms.Leave(botAccountID)
		log.Printf("[testbot] %q disconnected", name)
	}()

	ticker := time.NewTicker(33 * time.Millisecond) // ~30 TPS
	defer ticker.Stop()

	var tick float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		tick += 0.1
		g.SetPlayerData(botAccountID, room.PlayerData{
			LevelID:  levelID,
			X:        float32(200 + 100*math.Sin(tick)),
			Y:        float32(150 + 50*math.Cos(tick)),
			Rotation: float32(math.Mod(tick*10, 360)),
		})
	}
}
