// Package main provides a CI-friendly smoke test for the FairDrop claim feed.
//
// It validates:
//   - handshake + subprotocol selection
//   - the snapshot frame arriving first
//   - frame shape (type, drop echo, timestamps)
//   - optional live claim frames while watching
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	subprotocol  = "fairdrop.claimfeed.v1"
	maxReadBytes = 1 << 20 // 1MiB
)

type feedEvent struct {
	Type   string `json:"type"`
	Drop   string `json:"drop"`
	Claims []struct {
		Claimer   string `json:"claimer"`
		ClaimedAt int64  `json:"claimedAt"`
		Amount    string `json:"amount"`
		TxSig     string `json:"txSig,omitempty"`
	} `json:"claims,omitempty"`
	Claim *struct {
		Claimer   string `json:"claimer"`
		ClaimedAt int64  `json:"claimedAt"`
		Amount    string `json:"amount"`
		TxSig     string `json:"txSig,omitempty"`
	} `json:"claim,omitempty"`
	TS time.Time `json:"ts"`
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws/claims", "WebSocket URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		drop    = flag.String("drop", "", "Drop account address to watch (required)")
		watch   = flag.Duration("watch", 0, "After the snapshot, keep watching for live claims this long")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if strings.TrimSpace(*drop) == "" {
		fatalf("-drop is required")
	}
	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	conn := mustConnect(root, *wsURL, *origin, *drop, *timeout)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	snap := mustReadEvent(root, conn, *timeout)
	if snap.Type != "snapshot" {
		fatalf("first frame must be a snapshot, got %q", snap.Type)
	}
	if snap.Drop != *drop {
		fatalf("snapshot drop mismatch: got=%q want=%q", snap.Drop, *drop)
	}
	if snap.TS.IsZero() {
		fatalf("snapshot ts missing/zero")
	}
	if *verbose {
		for _, c := range snap.Claims {
			fmt.Printf("snapshot claim: claimer=%s amount=%s tx=%s\n", c.Claimer, c.Amount, c.TxSig)
		}
	}

	live := 0
	if *watch > 0 {
		deadline := time.Now().Add(*watch)
		for time.Now().Before(deadline) {
			ev, err := readEvent(root, conn, time.Until(deadline))
			if err != nil {
				break
			}
			if ev.Type != "claim" || ev.Claim == nil {
				fatalf("unexpected live frame: type=%q", ev.Type)
			}
			if ev.Drop != *drop {
				fatalf("live frame drop mismatch: got=%q want=%q", ev.Drop, *drop)
			}
			live++
			if *verbose {
				fmt.Printf("live claim: claimer=%s amount=%s\n", ev.Claim.Claimer, ev.Claim.Amount)
			}
		}
	}

	fmt.Printf("OK: drop=%s snapshot_claims=%d live_claims=%d\n", *drop, len(snap.Claims), live)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, wsURL, origin, drop string, stepTimeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	u, err := url.Parse(wsURL)
	if err != nil {
		fatalf("parse url: %v", err)
	}
	q := u.Query()
	q.Set("drop", drop)
	u.RawQuery = q.Encode()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}

	if resp != nil {
		got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
		if got != "" && got != subprotocol {
			fatalf("subprotocol mismatch: got=%q want=%q", got, subprotocol)
		}
	}

	conn.SetReadLimit(maxReadBytes)
	return conn
}

func mustReadEvent(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) feedEvent {
	ev, err := readEvent(parent, conn, stepTimeout)
	if err != nil {
		fatalf("read: %v", err)
	}
	return ev
}

func readEvent(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) (feedEvent, error) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	mt, data, err := conn.Read(ctx)
	if err != nil {
		return feedEvent{}, err
	}
	if mt != websocket.MessageText {
		return feedEvent{}, fmt.Errorf("unsupported message type: %v", mt)
	}

	var ev feedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return feedEvent{}, fmt.Errorf("bad json: %w", err)
	}
	if ev.Type == "" {
		return feedEvent{}, errors.New("frame missing type")
	}
	return ev, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
