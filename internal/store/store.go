// Package store persists the relay's local moderation cache in an embedded
// SQLite database (§9 "treat the in-memory user_entry as a cache"). The
// bridge is the source of truth; this package exists so a restart doesn't
// require re-fetching every known account's role/punishment state before
// the relay can safely admit returning players.
//
// SQL statements live in the ordered [migrations] slice, each applied
// exactly once and tracked in schema_migrations. Append new entries; never
// edit or reorder existing ones.
package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// migrations holds the ordered list of DDL/DML statements that bring the
// schema up to date. Index i corresponds to version i+1.
var migrations = []string{
	// v1 — generic key/value settings (maintenance flag, userlist mode, etc.)
	`CREATE TABLE IF NOT EXISTS kv_settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	// v2 — cached roles, keyed by account id
	`CREATE TABLE IF NOT EXISTS cached_roles (
		account_id    INTEGER PRIMARY KEY,
		role_priority INTEGER NOT NULL DEFAULT 0,
		permissions   INTEGER NOT NULL DEFAULT 0,
		updated_at    INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v3 — cached punishments (bans/mutes), keyed by account id
	`CREATE TABLE IF NOT EXISTS cached_punishments (
		account_id    INTEGER PRIMARY KEY,
		is_banned     INTEGER NOT NULL DEFAULT 0,
		is_muted      INTEGER NOT NULL DEFAULT 0,
		reason        TEXT NOT NULL DEFAULT '',
		expires_at    INTEGER NOT NULL DEFAULT 0,
		punished_by   INTEGER NOT NULL DEFAULT 0,
		updated_at    INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v4 — admin action audit log
	`CREATE TABLE IF NOT EXISTS admin_audit_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		admin_id     INTEGER NOT NULL,
		admin_name   TEXT NOT NULL,
		action       TEXT NOT NULL,
		target_id    INTEGER NOT NULL DEFAULT 0,
		details_json TEXT NOT NULL DEFAULT '{}',
		created_at   INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v5, v6 — indexes for the lookups the relay performs on every claim
	`CREATE INDEX IF NOT EXISTS idx_punishments_expiry ON cached_punishments(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON admin_audit_log(created_at)`,
	// v7 — enable WAL mode
	`PRAGMA journal_mode=WAL`,
}

// Store wraps a SQLite database holding the local moderation cache.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies any
// pending migrations. Use ":memory:" for ephemeral in-process storage.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Allow multiple read connections but serialize writes, the way SQLite
	// under WAL mode is meant to be driven.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		log.Printf("[store] WAL mode: %v (non-fatal)", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		log.Printf("[store] busy_timeout: %v (non-fatal)", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations(version) VALUES(?)`, v,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		log.Printf("[store] applied migration v%d", v)
	}
	return nil
}

// --- kv_settings ---

// GetSetting returns the value stored under key. ok is false when the key
// does not exist; an error is only returned for real I/O failures.
func (s *Store) GetSetting(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM kv_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting upserts key -> value in kv_settings.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv_settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// --- cached_roles ---

// CachedRole is the locally cached view of one account's role assignment.
type CachedRole struct {
	AccountID    int32
	RolePriority uint8
	Permissions  uint32
	UpdatedAt    int64
}

// PutRole upserts the cached role for an account.
func (s *Store) PutRole(r CachedRole) error {
	_, err := s.db.Exec(
		`INSERT INTO cached_roles(account_id, role_priority, permissions) VALUES(?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		   role_priority = excluded.role_priority,
		   permissions   = excluded.permissions,
		   updated_at    = unixepoch()`,
		r.AccountID, r.RolePriority, r.Permissions,
	)
	return err
}

// GetRole returns the cached role for accountID. ok is false if no row
// exists (caller should treat this as role priority 0, no permissions).
func (s *Store) GetRole(accountID int32) (role CachedRole, ok bool, err error) {
	role.AccountID = accountID
	err = s.db.QueryRow(
		`SELECT role_priority, permissions, updated_at FROM cached_roles WHERE account_id = ?`,
		accountID,
	).Scan(&role.RolePriority, &role.Permissions, &role.UpdatedAt)
	if err == sql.ErrNoRows {
		return CachedRole{AccountID: accountID}, false, nil
	}
	if err != nil {
		return CachedRole{}, false, err
	}
	return role, true, nil
}

// --- cached_punishments ---

// CachedPunishment is the locally cached view of one account's ban/mute
// state, refreshed whenever the bridge reports a change.
type CachedPunishment struct {
	AccountID  int32
	IsBanned   bool
	IsMuted    bool
	Reason     string
	ExpiresAt  int64 // unix seconds, 0 = permanent
	PunishedBy int32
	UpdatedAt  int64
}

// PutPunishment upserts the cached punishment state for an account.
func (s *Store) PutPunishment(p CachedPunishment) error {
	_, err := s.db.Exec(
		`INSERT INTO cached_punishments(account_id, is_banned, is_muted, reason, expires_at, punished_by)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		   is_banned   = excluded.is_banned,
		   is_muted    = excluded.is_muted,
		   reason      = excluded.reason,
		   expires_at  = excluded.expires_at,
		   punished_by = excluded.punished_by,
		   updated_at  = unixepoch()`,
		p.AccountID, p.IsBanned, p.IsMuted, p.Reason, p.ExpiresAt, p.PunishedBy,
	)
	return err
}

// GetPunishment returns the cached punishment state for accountID, treating
// an expired temporary punishment as if it were absent.
func (s *Store) GetPunishment(accountID int32) (p CachedPunishment, ok bool, err error) {
	p.AccountID = accountID
	var isBanned, isMuted int
	err = s.db.QueryRow(
		`SELECT is_banned, is_muted, reason, expires_at, punished_by, updated_at
		 FROM cached_punishments WHERE account_id = ?
		   AND (expires_at = 0 OR expires_at > unixepoch())`,
		accountID,
	).Scan(&isBanned, &isMuted, &p.Reason, &p.ExpiresAt, &p.PunishedBy, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return CachedPunishment{AccountID: accountID}, false, nil
	}
	if err != nil {
		return CachedPunishment{}, false, err
	}
	p.IsBanned = isBanned != 0
	p.IsMuted = isMuted != 0
	return p, true, nil
}

// ClearExpiredPunishments removes temporary punishments whose expiry has
// passed, so a later GetPunishment naturally reports "not punished".
func (s *Store) ClearExpiredPunishments() (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM cached_punishments WHERE expires_at > 0 AND expires_at <= unixepoch()`,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- admin_audit_log ---

// AuditEntry is one row of admin_audit_log.
type AuditEntry struct {
	ID          int64
	AdminID     int32
	AdminName   string
	Action      string
	TargetID    int32
	DetailsJSON string
	CreatedAt   int64
}

// InsertAuditLog records an admin action. If the table exceeds 10,000 rows
// the oldest entries are purged, mirroring the bounded audit log pattern.
func (s *Store) InsertAuditLog(adminID int32, adminName, action string, targetID int32, detailsJSON string) error {
	if detailsJSON == "" {
		detailsJSON = "{}"
	}
	_, err := s.db.Exec(
		`INSERT INTO admin_audit_log(admin_id, admin_name, action, target_id, details_json)
		 VALUES(?, ?, ?, ?, ?)`,
		adminID, adminName, action, targetID, detailsJSON,
	)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM admin_audit_log WHERE id NOT IN (SELECT id FROM admin_audit_log ORDER BY id DESC LIMIT 10000)`)
	return err
}

// GetAuditLog returns audit log entries, most recent first, optionally
// filtered by action. Pass action="" for every action.
func (s *Store) GetAuditLog(action string, limit int) ([]AuditEntry, error) {
	var rows *sql.Rows
	var err error
	if action != "" {
		rows, err = s.db.Query(
			`SELECT id, admin_id, admin_name, action, target_id, details_json, created_at
			 FROM admin_audit_log WHERE action = ? ORDER BY id DESC LIMIT ?`,
			action, limit,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT id, admin_id, admin_name, action, target_id, details_json, created_at
			 FROM admin_audit_log ORDER BY id DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.AdminID, &e.AdminName, &e.Action, &e.TargetID, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- CLI / ops helpers ---

// GetAllSettings returns every key/value pair in kv_settings.
func (s *Store) GetAllSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM kv_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// ListBannedAccounts returns every account currently flagged as banned and
// not expired, most recently updated first.
func (s *Store) ListBannedAccounts() ([]CachedPunishment, error) {
	rows, err := s.db.Query(
		`SELECT account_id, is_banned, is_muted, reason, expires_at, punished_by, updated_at
		 FROM cached_punishments
		 WHERE is_banned = 1 AND (expires_at = 0 OR expires_at > unixepoch())
		 ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CachedPunishment
	for rows.Next() {
		var p CachedPunishment
		var isBanned, isMuted int
		if err := rows.Scan(&p.AccountID, &isBanned, &isMuted, &p.Reason, &p.ExpiresAt, &p.PunishedBy, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.IsBanned = isBanned != 0
		p.IsMuted = isMuted != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// Backup copies the database to destPath via SQLite's VACUUM INTO.
func (s *Store) Backup(destPath string) error {
	_, err := s.db.Exec(`VACUUM INTO ?`, destPath)
	return err
}

// Optimize runs PRAGMA optimize to refresh the query planner's statistics.
func (s *Store) Optimize() error {
	_, err := s.db.Exec(`PRAGMA optimize`)
	return err
}
