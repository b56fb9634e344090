package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "relay.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSettingRoundTrip(t *testing.T) {
	st := openTestStore(t)

	if _, ok, err := st.GetSetting("maintenance"); err != nil || ok {
		t.Fatalf("GetSetting on unset key = (%v, %v), want (_, false)", ok, err)
	}

	if err := st.SetSetting("maintenance", "true"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	val, ok, err := st.GetSetting("maintenance")
	if err != nil || !ok || val != "true" {
		t.Fatalf("GetSetting after set = (%q, %v, %v), want (true, true, nil)", val, ok, err)
	}

	// Upsert overwrites.
	if err := st.SetSetting("maintenance", "false"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	val, _, _ = st.GetSetting("maintenance")
	if val != "false" {
		t.Fatalf("GetSetting after overwrite = %q, want false", val)
	}
}

func TestRoleRoundTrip(t *testing.T) {
	st := openTestStore(t)

	if _, ok, err := st.GetRole(42); err != nil || ok {
		t.Fatalf("GetRole on unknown account = (_, %v, %v), want (_, false, nil)", ok, err)
	}

	in := CachedRole{AccountID: 42, RolePriority: 3, Permissions: 0b1011}
	if err := st.PutRole(in); err != nil {
		t.Fatalf("PutRole: %v", err)
	}
	got, ok, err := st.GetRole(42)
	if err != nil || !ok {
		t.Fatalf("GetRole: ok=%v err=%v", ok, err)
	}
	if got.RolePriority != in.RolePriority || got.Permissions != in.Permissions {
		t.Fatalf("GetRole = %+v, want role_priority=%d permissions=%b", got, in.RolePriority, in.Permissions)
	}

	// Upsert updates in place rather than duplicating.
	in.RolePriority = 5
	if err := st.PutRole(in); err != nil {
		t.Fatalf("PutRole update: %v", err)
	}
	got, _, _ = st.GetRole(42)
	if got.RolePriority != 5 {
		t.Fatalf("RolePriority after update = %d, want 5", got.RolePriority)
	}
}

func TestPunishmentRoundTripAndExpiry(t *testing.T) {
	st := openTestStore(t)

	if _, ok, err := st.GetPunishment(7); err != nil || ok {
		t.Fatalf("GetPunishment on clean account = (_, %v, %v), want (_, false, nil)", ok, err)
	}

	if err := st.PutPunishment(CachedPunishment{
		AccountID: 7,
		IsBanned:  true,
		Reason:    "cheating",
		ExpiresAt: 0, // permanent
	}); err != nil {
		t.Fatalf("PutPunishment: %v", err)
	}

	got, ok, err := st.GetPunishment(7)
	if err != nil || !ok {
		t.Fatalf("GetPunishment: ok=%v err=%v", ok, err)
	}
	if !got.IsBanned || got.Reason != "cheating" {
		t.Fatalf("GetPunishment = %+v, want banned with reason cheating", got)
	}

	banned, err := st.ListBannedAccounts()
	if err != nil {
		t.Fatalf("ListBannedAccounts: %v", err)
	}
	if len(banned) != 1 || banned[0].AccountID != 7 {
		t.Fatalf("ListBannedAccounts = %+v, want one entry for account 7", banned)
	}

	// An already-expired temp punishment is purged by ClearExpiredPunishments
	// and must then read back as absent.
	if err := st.PutPunishment(CachedPunishment{
		AccountID: 8,
		IsMuted:   true,
		ExpiresAt: 1, // unix second 1, long past
	}); err != nil {
		t.Fatalf("PutPunishment temp: %v", err)
	}
	n, err := st.ClearExpiredPunishments()
	if err != nil {
		t.Fatalf("ClearExpiredPunishments: %v", err)
	}
	if n != 1 {
		t.Fatalf("ClearExpiredPunishments purged %d rows, want 1", n)
	}
	if _, ok, _ := st.GetPunishment(8); ok {
		t.Fatal("expired punishment should read back as absent after purge")
	}
}

func TestAuditLogRecordsAndFilters(t *testing.T) {
	st := openTestStore(t)

	if err := st.InsertAuditLog(1, "root", "ban", 99, ""); err != nil {
		t.Fatalf("InsertAuditLog ban: %v", err)
	}
	if err := st.InsertAuditLog(1, "root", "mute", 100, `{"duration":3600}`); err != nil {
		t.Fatalf("InsertAuditLog mute: %v", err)
	}

	all, err := st.GetAuditLog("", 10)
	if err != nil {
		t.Fatalf("GetAuditLog all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAuditLog all = %d entries, want 2", len(all))
	}
	// Most recent first.
	if all[0].Action != "mute" {
		t.Fatalf("GetAuditLog[0].Action = %q, want mute (most recent first)", all[0].Action)
	}

	bans, err := st.GetAuditLog("ban", 10)
	if err != nil {
		t.Fatalf("GetAuditLog filtered: %v", err)
	}
	if len(bans) != 1 || bans[0].TargetID != 99 {
		t.Fatalf("GetAuditLog(ban) = %+v, want one entry targeting 99", bans)
	}
}

func TestGetAllSettings(t *testing.T) {
	st := openTestStore(t)
	if err := st.SetSetting("a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetSetting("b", "2"); err != nil {
		t.Fatal(err)
	}
	all, err := st.GetAllSettings()
	if err != nil {
		t.Fatalf("GetAllSettings: %v", err)
	}
	if all["a"] != "1" || all["b"] != "2" {
		t.Fatalf("GetAllSettings = %v", all)
	}
}
