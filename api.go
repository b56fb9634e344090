package main

import (
	"context"
	"crypto/tls"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gdrelay/internal/room"
	"gdrelay/internal/store"
)

// APIServer is the small operator-facing HTTP surface (§6, distinct from the
// in-protocol admin plane §4.I): health, metrics, room listing, and banned
// account listing for dashboards and uptime checks.
type APIServer struct {
	rooms *room.Manager
	store *store.Store
	echo  *echo.Echo

	startedAt  time.Time
	instanceID string
}

// NewAPIServer constructs an APIServer and registers all routes.
func NewAPIServer(rooms *room.Manager, st *store.Store) *APIServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[api] %s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = jsonErrorHandler

	s := &APIServer{rooms: rooms, store: st, echo: e, startedAt: time.Now(), instanceID: uuid.New().String()}
	s.registerRoutes()
	return s
}

func (s *APIServer) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", s.handleMetrics)
	s.echo.GET("/api/rooms", s.handleRooms)
	s.echo.GET("/api/rooms/:id", s.handleRoomByID)
	s.echo.GET("/api/bans", s.handleBans)
}

// Run starts the Echo HTTP server on addr and blocks until ctx is cancelled.
func (s *APIServer) Run(ctx context.Context, addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
	s.waitShutdown(ctx)
}

// RunTLS is Run's counterpart for -api-tls: the operator dashboard served
// over a self-signed certificate instead of plaintext HTTP. It listens
// directly rather than going through Echo's file-based StartTLS, since the
// certificate here only ever exists in memory.
func (s *APIServer) RunTLS(ctx context.Context, addr string, tlsConfig *tls.Config) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("[api] tls listen: %v", err)
		return
	}
	go func() {
		if err := s.echo.Server.Serve(tls.NewListener(ln, tlsConfig)); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] tls server error: %v", err)
		}
	}()
	s.waitShutdown(ctx)
}

func (s *APIServer) waitShutdown(ctx context.Context) {
	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutCtx); err != nil {
		log.Printf("[api] shutdown: %v", err)
	}
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	InstanceID string `json:"instance_id"`
}

func (s *APIServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		InstanceID: s.instanceID,
	})
}

// MetricsResponse is the payload for GET /metrics.
type MetricsResponse struct {
	TotalPlayers     int    `json:"total_players"`
	RoomCount        int    `json:"room_count"`
	GlobalPlayers    int    `json:"global_players"`
	BytesBroadcastHR string `json:"bytes_broadcast_human"`
}

func (s *APIServer) handleMetrics(c echo.Context) error {
	total, roomCount := s.rooms.Stats()
	return c.JSON(http.StatusOK, MetricsResponse{
		TotalPlayers:     total,
		RoomCount:        roomCount,
		GlobalPlayers:    s.rooms.Global().PlayerCount(),
		BytesBroadcastHR: humanize.Bytes(uint64(totalBytesBroadcast.Load())),
	})
}

// RoomSummary is one element of GET /api/rooms.
type RoomSummary struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	Owner       int32  `json:"owner"`
	PlayerCount int    `json:"player_count"`
	Hidden      bool   `json:"hidden"`
}

func (s *APIServer) handleRooms(c echo.Context) error {
	summaries := s.rooms.Summaries()
	out := make([]RoomSummary, 0, len(summaries))
	for _, r := range summaries {
		out = append(out, RoomSummary{
			ID:          r.ID,
			Name:        r.Name,
			Owner:       r.Owner,
			PlayerCount: r.PlayerCount,
			Hidden:      r.Settings.Hidden,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *APIServer) handleRoomByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}
	r, ok := s.rooms.Room(uint32(id))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	}
	return c.JSON(http.StatusOK, RoomSummary{
		ID:          r.ID(),
		Name:        r.Name(),
		Owner:       r.Owner(),
		PlayerCount: r.PlayerCount(),
		Hidden:      r.Settings().Hidden,
	})
}

// BanSummary is one element of GET /api/bans.
type BanSummary struct {
	AccountID int32  `json:"account_id"`
	Reason    string `json:"reason"`
	ExpiresAt int64  `json:"expires_at"`
}

func (s *APIServer) handleBans(c echo.Context) error {
	bans, err := s.store.ListBannedAccounts()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]BanSummary, 0, len(bans))
	for _, b := range bans {
		out = append(out, BanSummary{AccountID: b.AccountID, Reason: b.Reason, ExpiresAt: b.ExpiresAt})
	}
	return c.JSON(http.StatusOK, out)
}

// jsonErrorHandler ensures all error responses have a consistent JSON body:
//
//	{"error": "message"}
//
// This replaces Echo's default handler which varies between text and JSON.
func jsonErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			c.NoContent(code) //nolint:errcheck
		} else {
			c.JSON(code, map[string]string{"error": msg}) //nolint:errcheck
		}
	}
}
