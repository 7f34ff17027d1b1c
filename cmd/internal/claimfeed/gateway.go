package claimfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/oklog/ulid/v2"
)

const (
	wsSubprotocol = "fairdrop.claimfeed.v1"

	wsDefaultSendQueueSize = 256
	wsMinSendQueueSize     = 32

	wsDefaultWriteTimeout = 5 * time.Second
	wsCloseGrace          = 1 * time.Second

	wsMaxPingFailures = 3

	wsDefaultHeartbeat        = 30 * time.Second
	wsDefaultHeartbeatTimeout = 10 * time.Second

	// Subscribers never send application frames; a tiny read limit bounds
	// what a misbehaving peer can make us buffer.
	wsReadLimitBytes = 1 << 10

	// Origin is required by default and only localhost is allowed, so a
	// deployment must opt in to its real origins.
	wsDefaultOriginRequired = true
	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"
)

// Gateway upgrades subscribers onto a drop's claim feed.
//
// It enforces origin policy and subprotocol selection, sends an initial
// history snapshot, then relays poller broadcasts until the peer goes away.
type Gateway struct {
	log    *slog.Logger
	hub    *Hub
	poller *Poller

	devInsecure    bool
	originRequired bool
	allowedOrigins []string
	originPatterns []string

	writeTimeout  time.Duration
	sendQueueSize int

	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration
}

// NewGateway constructs a gateway with secure defaults.
func NewGateway(log *slog.Logger, hub *Hub, poller *Poller) *Gateway {
	if log == nil {
		log = slog.Default()
	}

	g := &Gateway{log: log, hub: hub, poller: poller}

	// InsecureSkipVerify is a dev-only knob, not an origin policy.
	g.devInsecure = envBoolWS("FAIRDROP_WS_DEV_INSECURE", false)
	g.originRequired = envBoolWS("FAIRDROP_WS_ORIGIN_REQUIRED", wsDefaultOriginRequired)
	g.allowedOrigins = envCSVWS("FAIRDROP_WS_ALLOWED_ORIGINS", wsDefaultAllowedOrigins)

	// websocket.Accept enforces its own origin policy: same-host is ok,
	// cross-origin requires OriginPatterns. Derive the patterns from the
	// allowlist so the two layers agree.
	g.originPatterns = deriveOriginPatterns(g.allowedOrigins)

	g.writeTimeout = envDurationWS("FAIRDROP_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout)

	g.sendQueueSize = envIntWS("FAIRDROP_WS_SEND_QUEUE", wsDefaultSendQueueSize)
	if g.sendQueueSize < wsMinSendQueueSize {
		g.sendQueueSize = wsMinSendQueueSize
	}

	g.heartbeatEvery = envDurationWS("FAIRDROP_WS_HEARTBEAT_INTERVAL", wsDefaultHeartbeat)
	g.heartbeatTimeout = envDurationWS("FAIRDROP_WS_HEARTBEAT_TIMEOUT", wsDefaultHeartbeatTimeout)

	return g
}

// ServeHTTP adapter so the gateway mounts as an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades the request and streams the drop's claim feed.
// The drop address arrives as the `drop` query parameter.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	drop := strings.TrimSpace(r.URL.Query().Get("drop"))
	if drop == "" {
		http.Error(w, "drop is required", http.StatusBadRequest)
		return
	}

	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("claimfeed.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{wsSubprotocol},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("claimfeed.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != wsSubprotocol {
		g.log.Info("claimfeed.reject.subprotocol", "got", sp, "want", wsSubprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(wsReadLimitBytes)

	sessionID := ulid.Make().String()
	client := NewClient(sessionID, g.sendQueueSize)
	feed := g.hub.GetOrCreateFeed(drop)

	// CloseRead drains inbound frames and cancels the context when the
	// peer closes; subscribers have nothing valid to send.
	ctx := conn.CloseRead(r.Context())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			feed.Leave(sessionID)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	snapshot, err := g.poller.Snapshot(ctx, drop)
	if err != nil {
		g.log.Error("claimfeed.snapshot.fail", "drop", drop, "err", err)
		_ = conn.Close(websocket.StatusInternalError, "snapshot failed")
		return
	}

	if err := g.writeEvent(ctx, conn, Event{
		Type:   EventSnapshot,
		Drop:   drop,
		Claims: snapshot,
		TS:     time.Now().UTC(),
	}); err != nil {
		g.log.Info("claimfeed.snapshot.write.fail", "session_id", sessionID, "err", err)
		return
	}

	feed.Join(client)

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					g.log.Info("claimfeed.ping.fail", "session_id", sessionID, "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

writeLoop:
	for {
		select {
		case <-ctx.Done():
			shutdown(websocket.StatusNormalClosure, "peer gone")
			break writeLoop
		case <-client.Done():
			break writeLoop
		case ev := <-client.Send:
			if err := g.writeEvent(ctx, conn, ev); err != nil {
				g.log.Info("claimfeed.write.fail", "session_id", sessionID, "close_status", websocket.CloseStatus(err), "err", err)
				shutdown(websocket.StatusAbnormalClosure, "write failed")
				break writeLoop
			}
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")

	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
}

func (g *Gateway) writeEvent(parent context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(parent, g.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

// ---- origin policy ----

func (g *Gateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.originRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.allowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)

	for _, a := range g.allowedOrigins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" {
			// Strongly discouraged, but honored if explicitly configured.
			return nil
		}
		if origin == a {
			return nil
		}
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

	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

func deriveOriginPatterns(allowed []string) []string {
	// websocket.Accept matches OriginPatterns against the origin host.
	// Only hosts extracted from the allowlist are accepted.
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

func envBoolWS(key string, def bool) bool {
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

func envIntWS(key string, def int) int {
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

func envDurationWS(key string, def time.Duration) time.Duration {
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

func envCSVWS(key string, def string) []string {
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
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
