package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"gdrelay/internal/store"
)

// Version is the relay's release string, reported by `version` and `status`.
const Version = "0.1.0"

// RunCLI handles subcommand execution. Returns true if a subcommand was handled.
func RunCLI(args []string, dbPath string) bool {
	if len(args) == 0 {
		return false
	}

	subcmd := args[0]
	switch subcmd {
	case "version":
		fmt.Printf("gdrelay %s\n", Version)
		return true
	case "status":
		return cliStatus(dbPath)
	case "settings":
		return cliSettings(args[1:], dbPath)
	case "bans":
		return cliBans(dbPath)
	case "rooms":
		return cliRooms(args[1:])
	case "audit":
		return cliAudit(args[1:], dbPath)
	case "backup":
		return cliBackup(args[1:], dbPath)
	default:
		return false
	}
}

func cliStatus(dbPath string) bool {
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	bans, _ := st.ListBannedAccounts()
	fmt.Printf("Database: %s\n", dbPath)
	fmt.Printf("Active bans: %d\n", len(bans))
	fmt.Printf("Version: %s\n", Version)
	return true
}

func cliSettings(args []string, dbPath string) bool {
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if len(args) == 0 || args[0] == "list" {
		settings, err := st.GetAllSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(settings, "", "  ")
		fmt.Println(string(out))
		return true
	}

	if args[0] == "set" && len(args) > 2 {
		key, value := args[1], args[2]
		if err := st.SetSetting(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return true
	}

	fmt.Fprintf(os.Stderr, "Usage: gdrelay settings [list|set <key> <value>]\n")
	os.Exit(1)
	return true
}

// cliRooms queries a running relay's operator API for the live room
// listing, since rooms exist only in server memory (§9: no persistence of
// in-level state) and have no row in the local database.
func cliRooms(args []string) bool {
	apiAddr := "http://127.0.0.1:8080"
	if len(args) > 0 {
		apiAddr = args[0]
	}
	resp, err := http.Get(apiAddr + "/api/rooms")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error contacting %s: %v\n", apiAddr, err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading response: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "server returned %s: %s\n", resp.Status, body)
		os.Exit(1)
	}
	var rooms []RoomSummary
	if err := json.Unmarshal(body, &rooms); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing response: %v\n", err)
		os.Exit(1)
	}
	if len(rooms) == 0 {
		fmt.Println("No rooms open.")
		return true
	}
	for _, r := range rooms {
		fmt.Printf("  [%d] %q owner=%d players=%d hidden=%v\n", r.ID, r.Name, r.Owner, r.PlayerCount, r.Hidden)
	}
	return true
}

func cliBans(dbPath string) bool {
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	bans, err := st.ListBannedAccounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(bans) == 0 {
		fmt.Println("No active bans.")
		return true
	}
	for _, b := range bans {
		expiry := "permanent"
		if b.ExpiresAt != 0 {
			expiry = fmt.Sprintf("expires %d", b.ExpiresAt)
		}
		fmt.Printf("  [%d] %s (%s, by %d)\n", b.AccountID, b.Reason, expiry, b.PunishedBy)
	}
	return true
}

func cliAudit(args []string, dbPath string) bool {
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	action := ""
	if len(args) > 0 {
		action = args[0]
	}
	entries, err := st.GetAuditLog(action, 50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No audit log entries found.")
		return true
	}
	for _, e := range entries {
		fmt.Printf("  [%d] %s by %s (%d) on %d: %s\n", e.ID, e.Action, e.AdminName, e.AdminID, e.TargetID, e.DetailsJSON)
	}
	return true
}

func cliBackup(args []string, dbPath string) bool {
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	outPath := "gdrelay-backup.db"
	if len(args) > 0 {
		outPath = args[0]
	}

	if err := st.Backup(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Database backed up to %s\n", outPath)
	return true
}
