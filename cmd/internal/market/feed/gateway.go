package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	wsDefaultSendQueueSize = 64
	wsMinSendQueueSize     = 8

	wsDefaultWriteTimeout = 5 * time.Second

	wsDefaultHeartbeatInterval = 25 * time.Second
	wsDefaultHeartbeatTimeout  = 5 * time.Second
	wsMaxPingFailures          = 3

	// The feed is push-only, so inbound frames are tiny control noise at most.
	wsReadLimitBytes = 1 << 10

	// Security defaults:
	// - Origin is required by default.
	// - Only localhost is allowed by default (secure-by-default for dev).
	wsDefaultOriginRequired = true
	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"
)

// Config carries the gateway's connection policy.
type Config struct {
	// OriginRequired rejects browserless requests that omit the Origin header.
	// Requests that do send an Origin must match AllowedOrigins either way.
	OriginRequired bool

	// AllowedOrigins is the origin allowlist ("*" honored but discouraged).
	AllowedOrigins []string

	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	SendQueueSize     int
}

// ConfigFromEnv builds a Config from GAMESWAP_WS_* variables with secure defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		OriginRequired:    envBool("GAMESWAP_WS_ORIGIN_REQUIRED", wsDefaultOriginRequired),
		AllowedOrigins:    envCSV("GAMESWAP_WS_ALLOWED_ORIGINS", wsDefaultAllowedOrigins),
		WriteTimeout:      envDuration("GAMESWAP_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout),
		HeartbeatInterval: envDuration("GAMESWAP_WS_HEARTBEAT_INTERVAL", wsDefaultHeartbeatInterval),
		HeartbeatTimeout:  envDuration("GAMESWAP_WS_HEARTBEAT_TIMEOUT", wsDefaultHeartbeatTimeout),
		SendQueueSize:     envInt("GAMESWAP_WS_SEND_QUEUE", wsDefaultSendQueueSize),
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = wsDefaultWriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = wsDefaultHeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = wsDefaultHeartbeatTimeout
	}
	if c.SendQueueSize < wsMinSendQueueSize {
		c.SendQueueSize = wsDefaultSendQueueSize
	}
	return c
}

// Gateway is the WebSocket entrypoint for the offer feed.
//
// It enforces origin policy and heartbeats, and streams hub events to the
// client. Inbound data frames close the connection.
type Gateway struct {
	log *slog.Logger
	hub *Hub
	cfg Config

	// Derived for websocket.Accept origin checks. Accept authorizes same-host
	// origins by default; cross-origin requires OriginPatterns.
	originPatterns []string
}

// NewGateway constructs a gateway around hub with the given policy.
func NewGateway(log *slog.Logger, hub *Hub, cfg Config) *Gateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if hub == nil {
		hub = NewHub(log, cfg.SendQueueSize)
	}

	cfg = cfg.withDefaults()

	return &Gateway{
		log:            log,
		hub:            hub,
		cfg:            cfg,
		originPatterns: deriveOriginPatterns(cfg.AllowedOrigins),
	}
}

// ServeHTTP adapter so the gateway can be mounted as http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades an HTTP request to a WebSocket session and streams feed
// events until the client disconnects.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("feed.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Error("feed.accept.fail", "err", err)
		return
	}

	conn.SetReadLimit(wsReadLimitBytes)

	sub := g.hub.Subscribe()
	defer g.hub.Unsubscribe(sub.ID)

	// CloseRead cancels the returned context when the peer disconnects and
	// closes the connection if the peer sends a data frame. That makes the
	// session push-only without a reader goroutine of our own.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(g.cfg.HeartbeatInterval)
	defer ticker.Stop()

	pingFailures := 0
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
			return

		case <-sub.Done():
			_ = conn.Close(websocket.StatusGoingAway, "subscription closed")
			return

		case ev := <-sub.Send:
			if err := writeEvent(ctx, conn, ev, g.cfg.WriteTimeout); err != nil {
				g.log.Info("feed.write.fail", "subscriber_id", sub.ID, "close_status", websocket.CloseStatus(err), "err", err)
				_ = conn.Close(websocket.StatusAbnormalClosure, "write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
			err := conn.Ping(pingCtx)
			cancel()

			if err != nil {
				pingFailures++
				g.log.Info("feed.ping.fail", "subscriber_id", sub.ID, "failures", pingFailures, "err", err)
				if pingFailures >= wsMaxPingFailures {
					_ = conn.Close(websocket.StatusGoingAway, "heartbeat failed")
					return
				}
				continue
			}
			pingFailures = 0
		}
	}
}

func writeEvent(parent context.Context, conn *websocket.Conn, ev Event, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- origin policy ----

func (g *Gateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.cfg.OriginRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.cfg.AllowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)

	for _, a := range g.cfg.AllowedOrigins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" {
			// Strongly discouraged, but honored if explicitly configured.
			return nil
		}

		// Full origin match (scheme + host + optional port).
		if origin == a {
			return nil
		}

		// Host match fallback (ignores port/scheme).
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// URL form.
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		h := strings.TrimSpace(u.Host)
		if h == "" {
			return ""
		}
		if host, _, err := net.SplitHostPort(h); err == nil {
			return strings.ToLower(host)
		}
		return strings.ToLower(h)
	}

	// host[:port] form.
	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

func deriveOriginPatterns(allowed []string) []string {
	// websocket.Accept matches OriginPatterns against the origin host, so only
	// hosts extracted from the allowlist are accepted.
	seen := make(map[string]struct{}, len(allowed))

	for _, a := range allowed {
		h := originHostOnly(a)
		if h == "" || h == "*" {
			continue
		}
		seen[h] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}

	// Stable in-file sort (avoid importing sort just for this).
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}

	return out
}

// ---- env helpers ----

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envCSV(key string, def string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
