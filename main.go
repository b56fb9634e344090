package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"gdrelay/internal/bridge"
	"gdrelay/internal/config"
	"gdrelay/internal/room"
	"gdrelay/internal/store"
)

func main() {
	// Check for CLI subcommands before parsing flags.
	if len(os.Args) > 1 {
		cliDB := "gdrelay.db"
		if RunCLI(os.Args[1:], cliDB) {
			return
		}
	}

	tcpAddr := flag.String("tcp-addr", ":4200", "TCP listen address for the game transport")
	udpAddr := flag.String("udp-addr", ":4200", "UDP listen address for the game transport")
	apiAddr := flag.String("api-addr", ":8080", "operator REST API listen address (empty to disable)")
	apiTLS := flag.Bool("api-tls", false, "serve the operator API over a self-signed TLS certificate")
	configPath := flag.String("config", "gdrelay.json", "relay config file path")
	dbPath := flag.String("db", "gdrelay.db", "SQLite moderation cache path")
	testBot := flag.String("test-bot", "", "account name for a synthetic load-test bot (empty to disable)")
	flag.Parse()

	// GDRELAY_CONFIG overrides the default config path; an explicit -config wins.
	if env := os.Getenv("GDRELAY_CONFIG"); env != "" {
		explicit := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "config" {
				explicit = true
			}
		})
		if !explicit {
			*configPath = env
		}
	}

	watch, err := config.NewWatcher(*configPath)
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	cfg := watch.Current()

	watch.OnLiveChange(func(lf config.LiveFields) {
		log.Printf("[config] live fields reloaded: maintenance=%v whitelist=%d blacklist=%d roles=%d",
			lf.Maintenance, len(lf.Whitelist), len(lf.Blacklist), len(lf.Roles))
	})

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("[store] %v", err)
	}
	defer db.Close()

	br := bridge.New(bridge.Config{
		BaseURL:   cfg.AuthEndpoint,
		SecretKey: cfg.BridgeSecretKey,
		Timeout:   10 * time.Second,
	})
	defer br.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if boot, berr := br.Boot(ctx, 0); berr != nil {
		log.Printf("[bridge] boot: %v (continuing on cached state)", berr)
	} else {
		log.Printf("[bridge] connected, %d role(s) advertised", len(boot.Roles))
	}

	rooms := room.NewManager()

	srv, err := NewServer(*tcpAddr, *udpAddr, rooms, br, db, watch)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("[server] shutting down...")
		cancel()
	}()

	// Live-reload maintenance/whitelist/blacklist without a restart (§6).
	go watch.Run(2*time.Second, ctx.Done())

	// Start metrics logging.
	go RunMetrics(ctx, rooms, 5*time.Second)

	// Periodically purge expired local punishment cache entries.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := db.ClearExpiredPunishments(); err != nil {
					log.Printf("[store] clear expired punishments: %v", err)
				} else if n > 0 {
					log.Printf("[store] cleared %d expired punishment(s)", n)
				}
			}
		}
	}()

	// Periodically optimize SQLite's query planner.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.Optimize(); err != nil {
					log.Printf("[store] optimize: %v", err)
				}
			}
		}
	}()

	// Start synthetic load-test bot if configured.
	if *testBot != "" {
		go RunTestBot(ctx, rooms, *testBot)
	}

	// Start the operator REST API if an address is configured.
	if *apiAddr != "" {
		api := NewAPIServer(rooms, db)
		if *apiTLS {
			tlsConfig, fingerprint, err := generateTLSConfig(24*time.Hour, "")
			if err != nil {
				log.Fatalf("[api] tls: %v", err)
			}
			log.Printf("[api] TLS certificate fingerprint: %s", fingerprint)
			go api.RunTLS(ctx, *apiAddr, tlsConfig)
		} else {
			go api.Run(ctx, *apiAddr)
		}
		log.Printf("[api] listening on %s", *apiAddr)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("[server] %v", err)
	}
}
