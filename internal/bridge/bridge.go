// Package bridge is the HTTP client for the external auth/central service
// (§4.J). The bridge is the source of truth for accounts, roles, and
// punishments; everything this relay caches locally in internal/store is a
// read-mostly mirror of what bridge calls return.
package bridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrKind distinguishes the bridge error categories §4.J requires
// callers to be able to branch on.
type ErrKind int

const (
	ErrRequestError ErrKind = iota
	ErrCentralError
	ErrInvalidMagic
	ErrMalformedData
	ErrProtocolMismatch
	ErrOther
)

func (k ErrKind) String() string {
	switch k {
	case ErrRequestError:
		return "RequestError"
	case ErrCentralError:
		return "CentralError"
	case ErrInvalidMagic:
		return "InvalidMagic"
	case ErrMalformedData:
		return "MalformedData"
	case ErrProtocolMismatch:
		return "ProtocolMismatch"
	default:
		return "Other"
	}
}

// BridgeError is the uniform error type every bridge call returns.
type BridgeError struct {
	Kind    ErrKind
	Status  int // HTTP status, only meaningful for ErrCentralError
	Message string
	Err     error
}

func (e *BridgeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("bridge: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("bridge: %s: %s", e.Kind, e.Message)
}

func (e *BridgeError) Unwrap() error { return e.Err }

func wrapErr(kind ErrKind, msg string, err error) *BridgeError {
	return &BridgeError{Kind: kind, Message: msg, Err: err}
}

// bridgeMagic is the leading byte sequence every bridge response must carry;
// it guards against pointing the relay at an endpoint that happens to return
// well-formed JSON for some unrelated service.
var bridgeMagic = []byte("GDR1")

// Verdict is the token-validation outcome (§4.J validate_token).
type Verdict struct {
	Kind     string // "Strong", "Weak", "Invalid"
	Username string // populated for Weak
	Reason   string // populated for Invalid
}

// BootInfo is what boot() returns: the live configuration the bridge hands
// down at startup and on periodic refresh.
type BootInfo struct {
	Protocol            uint16        `json:"protocol"`
	TPS                 int           `json:"tps"`
	Maintenance         bool          `json:"maintenance"`
	SecretKey2          uint32        `json:"secret_key2"`
	TokenExpiry         time.Duration `json:"token_expiry_secs"`
	StatusPrintInterval time.Duration `json:"status_print_interval_secs"`
	AdminKey            string        `json:"admin_key"`
	Whitelist           []int32       `json:"whitelist"`
	AdminWebhookURL     string        `json:"admin_webhook_url"`
	Roles               []RoleInfo    `json:"roles"`
}

// RoleInfo is one entry of the role table the bridge manages.
type RoleInfo struct {
	ID          string `json:"id"`
	Priority    uint8  `json:"priority"`
	Badge       string `json:"badge"`
	NameColor   string `json:"name_color"`
	Permissions uint32 `json:"permissions"`
}

// UserEntry is the bridge's canonical account/moderation record.
type UserEntry struct {
	AccountID    int32  `json:"account_id"`
	UserID       int32  `json:"user_id"`
	Name         string `json:"name"`
	IsBanned     bool   `json:"is_banned"`
	IsMuted      bool   `json:"is_muted"`
	ViolationExp int64  `json:"violation_expiry"`
	Whitelisted  bool   `json:"whitelisted"`
	RolePriority uint8  `json:"role_priority"`
	Permissions  uint32 `json:"permissions"`
}

// PunishAction describes a punish_user request.
type PunishAction struct {
	AccountID int32  `json:"account_id"`
	IsBan     bool   `json:"is_ban"` // false = mute
	Reason    string `json:"reason"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds, 0 = permanent
	ActorID   int32  `json:"actor_id"`
}

// PunishmentRecord is one entry of a punishment history.
type PunishmentRecord struct {
	ID        int64  `json:"id"`
	AccountID int32  `json:"account_id"`
	IsBan     bool   `json:"is_ban"`
	Reason    string `json:"reason"`
	ExpiresAt int64  `json:"expires_at"`
	ActorID   int32  `json:"actor_id"`
	CreatedAt int64  `json:"created_at"`
}

// Client is the HTTP-backed bridge client.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// Config configures the bridge HTTP client.
type Config struct {
	BaseURL         string
	SecretKey       string
	Timeout         time.Duration
	AllowInvalidTLS bool // §6 "allow-invalid-TLS toggle for bridge"
}

// New constructs a bridge client. AllowInvalidTLS is for private/self-signed
// bridge deployments only; the game transport itself never uses TLS, so
// this toggle exists purely for this HTTP client's own connection to the
// bridge, the same self-signed-cert situation tls.go's generator handles
// for the operator API listener.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.AllowInvalidTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) *BridgeError {
	var body io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return wrapErr(ErrMalformedData, "encode request body", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return wrapErr(ErrRequestError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapErr(ErrRequestError, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapErr(ErrRequestError, "read response body", err)
	}

	if resp.StatusCode >= 300 {
		return &BridgeError{Kind: ErrCentralError, Status: resp.StatusCode, Message: string(raw)}
	}

	if !bytes.HasPrefix(raw, bridgeMagic) {
		return &BridgeError{Kind: ErrInvalidMagic, Message: "response missing expected magic prefix"}
	}
	payload := raw[len(bridgeMagic):]

	if respBody != nil {
		if err := json.Unmarshal(payload, respBody); err != nil {
			return wrapErr(ErrMalformedData, "decode response body", err)
		}
	}
	return nil
}

// Boot fetches the live server configuration from the bridge. Failure here
// at startup is unrecoverable (§6 exit codes: "unreachable bridge
// at startup").
func (c *Client) Boot(ctx context.Context, clientProtocol uint16) (BootInfo, *BridgeError) {
	var info BootInfo
	if err := c.do(ctx, http.MethodGet, "/boot", nil, &info); err != nil {
		return BootInfo{}, err
	}
	if info.Protocol != clientProtocol {
		return BootInfo{}, &BridgeError{Kind: ErrProtocolMismatch, Message: fmt.Sprintf("bridge protocol %d != relay protocol %d", info.Protocol, clientProtocol)}
	}
	return info, nil
}

// ValidateToken checks an account's login token against the bridge.
func (c *Client) ValidateToken(ctx context.Context, accountID, userID int32, token string) (Verdict, *BridgeError) {
	req := struct {
		AccountID int32  `json:"account_id"`
		UserID    int32  `json:"user_id"`
		Token     string `json:"token"`
	}{accountID, userID, token}

	var resp Verdict
	if err := c.do(ctx, http.MethodPost, "/validate_token", req, &resp); err != nil {
		return Verdict{}, err
	}
	return resp, nil
}

// GetUser fetches the canonical user record by account id.
func (c *Client) GetUser(ctx context.Context, accountID int32) (UserEntry, *BridgeError) {
	var u UserEntry
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", accountID), nil, &u); err != nil {
		return UserEntry{}, err
	}
	return u, nil
}

// UpdateUser writes back a modified user record (e.g. after a role edit).
func (c *Client) UpdateUser(ctx context.Context, entry UserEntry) *BridgeError {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", entry.AccountID), entry, nil)
}

// PunishUser issues a ban or mute.
func (c *Client) PunishUser(ctx context.Context, action PunishAction) *BridgeError {
	return c.do(ctx, http.MethodPost, "/punishments", action, nil)
}

// UnpunishUser lifts a ban (isBan=true) or mute (isBan=false).
func (c *Client) UnpunishUser(ctx context.Context, accountID int32, isBan bool) *BridgeError {
	req := struct {
		IsBan bool `json:"is_ban"`
	}{isBan}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/unpunish", accountID), req, nil)
}

// EditPunishment modifies an existing punishment record in place.
func (c *Client) EditPunishment(ctx context.Context, id int64, reason string, expiresAt int64) *BridgeError {
	req := struct {
		Reason    string `json:"reason"`
		ExpiresAt int64  `json:"expires_at"`
	}{reason, expiresAt}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/punishments/%d", id), req, nil)
}

// GetPunishmentHistory returns every punishment ever issued to an account.
func (c *Client) GetPunishmentHistory(ctx context.Context, accountID int32) ([]PunishmentRecord, *BridgeError) {
	var records []PunishmentRecord
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/punishments", accountID), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetManyNames resolves a batch of account ids to display names in one
// round trip, for admin UIs that need to label a list of ids.
func (c *Client) GetManyNames(ctx context.Context, ids []int32) (map[int32]string, *BridgeError) {
	req := struct {
		IDs []int32 `json:"ids"`
	}{ids}
	var resp map[int32]string
	if err := c.do(ctx, http.MethodPost, "/names", req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendWebhook posts a best-effort notification to an admin webhook channel
// (§9 supplement, matching globed2's bridge.rs send_webhook_messages). A
// failure here is logged, never fatal and never surfaced to the caller as
// an error the rest of the system must react to.
func (c *Client) SendWebhook(ctx context.Context, channelURL string, messages []string) {
	if channelURL == "" || len(messages) == 0 {
		return
	}
	payload := struct {
		Content string `json:"content"`
	}{Message(messages)}

	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[bridge] webhook encode: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channelURL, bytes.NewReader(encoded))
	if err != nil {
		log.Printf("[bridge] webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[bridge] webhook send: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[bridge] webhook rejected: status %d", resp.StatusCode)
	}
}

// Message joins a batch of webhook lines into one payload body.
func Message(lines []string) string {
	var buf bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(l)
	}
	return buf.String()
}

// Close releases any idle connections held by the underlying transport.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
