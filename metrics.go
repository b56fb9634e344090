package main

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"gdrelay/internal/room"
)

// totalBytesBroadcast accumulates the wire bytes written by every send
// path (TCP and UDP) across all connected clients. The send loops in
// server.go add to this on every successful write; it backs the
// bytes_broadcast_human field in the /metrics HTTP endpoint (§6) and the
// periodic log line below.
var totalBytesBroadcast atomic.Int64

// RunMetrics logs room stats every interval until ctx is canceled.
func RunMetrics(ctx context.Context, rooms *room.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastBytes int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			players, roomCount := rooms.Stats()
			bytes := totalBytesBroadcast.Load()
			delta := bytes - lastBytes
			lastBytes = bytes
			if players > 0 || roomCount > 0 {
				log.Printf("[metrics] players=%d rooms=%d bytes_total=%d (%.1f KB/s)",
					players, roomCount, bytes,
					float64(delta)/interval.Seconds()/1024)
			}
		}
	}
}
