package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_PlainOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false)
	log := slog.New(h)

	log.Info("http.request",
		"method", "post",
		"path", "/api/claim-token",
		"status", 200,
		"duration_ms", int64(12),
	)

	line := buf.String()
	for _, want := range []string{
		"lvl=[INFO]",
		"msg=http.request",
		"method=POST",
		"path=/api/claim-token",
		"status=200",
		"duration=12ms",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("output %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("color disabled but output has escapes: %q", line)
	}
}

func TestPrettyHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, nil, false)
	log := slog.New(h).With("component", "feed").WithGroup("claim")

	log.Warn("claimfeed.claim.new", "drop", "So11111111111111111111111111111111111111112")

	line := buf.String()
	if !strings.Contains(line, "component=feed") {
		t.Fatalf("inherited attr missing: %q", line)
	}
	if !strings.Contains(line, "claim.drop=So11111111111111111111111111111111111111112") {
		t.Fatalf("group prefix missing: %q", line)
	}
	if !strings.Contains(line, "lvl=[WARN]") {
		t.Fatalf("level tag missing: %q", line)
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: `""`},
		{in: "plain", want: "plain"},
		{in: "two words", want: `"two words"`},
		{in: `a"b`, want: `"a\"b"`},
		{in: "k=v", want: `"k=v"`},
	}

	for _, tc := range cases {
		if got := quoteIfNeeded(tc.in); got != tc.want {
			t.Fatalf("quoteIfNeeded(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := newPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestValueToString_Kinds(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		v    slog.Value
		want string
	}{
		{v: slog.StringValue("x"), want: "x"},
		{v: slog.IntValue(-7), want: "-7"},
		{v: slog.Uint64Value(7), want: "7"},
		{v: slog.BoolValue(true), want: "true"},
		{v: slog.DurationValue(1500 * time.Millisecond), want: "1.5s"},
		{v: slog.TimeValue(ts), want: "2026-03-04T09:30:00Z"},
	}

	for _, tc := range cases {
		if got := valueToString(tc.v); got != tc.want {
			t.Fatalf("valueToString(%v)=%q want=%q", tc.v, got, tc.want)
		}
	}
}
