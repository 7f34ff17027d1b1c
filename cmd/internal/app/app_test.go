package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"fairdrop/cmd/security/signer"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"FAIRDROP_HTTP_ADDR",
		"FAIRDROP_LOG_LEVEL",
		"FAIRDROP_LOG_FORMAT",
		"FAIRDROP_RPC_URL",
		"FAIRDROP_REDIS_URL",
		"FAIRDROP_DATABASE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("log defaults: level=%q format=%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.RPCURL != "https://api.devnet.solana.com" {
		t.Fatalf("RPCURL=%q", cfg.RPCURL)
	}
	if cfg.ReadTimeout != 15*time.Second || cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("timeouts: read=%v idle=%v", cfg.ReadTimeout, cfg.IdleTimeout)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Fatalf("expected localhost CORS defaults")
	}
}

func TestEnvCSV(t *testing.T) {
	t.Setenv("FAIRDROP_TEST_CSV", " a, ,b ,")

	got := EnvCSV("FAIRDROP_TEST_CSV", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("EnvCSV=%v", got)
	}

	t.Setenv("FAIRDROP_TEST_CSV", "")
	def := []string{"x"}
	if got := EnvCSV("FAIRDROP_TEST_CSV", def); len(got) != 1 || got[0] != "x" {
		t.Fatalf("default not applied: %v", got)
	}
}

func TestNonZeroHelpers(t *testing.T) {
	t.Parallel()

	if got := nonZeroDuration(0, 5*time.Second); got != 5*time.Second {
		t.Fatalf("nonZeroDuration(0)=%v", got)
	}
	if got := nonZeroDuration(time.Second, 5*time.Second); got != time.Second {
		t.Fatalf("nonZeroDuration(1s)=%v", got)
	}
	if got := nonZeroInt(0, 7); got != 7 {
		t.Fatalf("nonZeroInt(0)=%d", got)
	}
	if got := nonZeroInt(3, 7); got != 3 {
		t.Fatalf("nonZeroInt(3)=%d", got)
	}
}

func TestNewSlugStoreDefaultsToMemory(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, lifecycle, pool, dbEnabled, err := newSlugStore(context.Background(), Config{}, log)
	if err != nil {
		t.Fatalf("newSlugStore: %v", err)
	}
	if store == nil {
		t.Fatalf("expected a store")
	}
	if pool != nil || dbEnabled {
		t.Fatalf("memory mode should not report a db: pool=%v enabled=%v", pool, dbEnabled)
	}
	if err := lifecycle.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	key := solana.NewWallet().PrivateKey.String()
	programID := solana.NewWallet().PublicKey().String()

	t.Run("missing keypair", func(t *testing.T) {
		t.Setenv(signer.KeypairEnvKey, "")
		err := ValidateSecurityConfig(Config{ProgramID: programID})
		if err == nil || !strings.Contains(err.Error(), signer.KeypairEnvKey) {
			t.Fatalf("expected keypair error, got %v", err)
		}
	})

	t.Run("invalid keypair", func(t *testing.T) {
		t.Setenv(signer.KeypairEnvKey, "not-base58!!!")
		err := ValidateSecurityConfig(Config{ProgramID: programID})
		if err == nil || !strings.Contains(err.Error(), "ed25519") {
			t.Fatalf("expected invalid keypair error, got %v", err)
		}
	})

	t.Run("missing program id", func(t *testing.T) {
		t.Setenv(signer.KeypairEnvKey, key)
		err := ValidateSecurityConfig(Config{})
		if err == nil || !strings.Contains(err.Error(), "FAIRDROP_PROGRAM_ID") {
			t.Fatalf("expected program id error, got %v", err)
		}
	})

	t.Run("valid", func(t *testing.T) {
		t.Setenv(signer.KeypairEnvKey, key)
		if err := ValidateSecurityConfig(Config{ProgramID: programID}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestOriginAllowed(t *testing.T) {
	t.Parallel()

	allowed := []string{"https://app.fairdrop.example", "http://localhost:*"}

	cases := []struct {
		origin string
		want   bool
	}{
		{origin: "https://app.fairdrop.example", want: true},
		{origin: "http://localhost:3000", want: true},
		{origin: "http://localhost", want: true},
		{origin: "https://app.fairdrop.example.evil.com", want: false},
		{origin: "http://localhost.evil.com", want: false},
		{origin: "https://evil.example.com", want: false},
	}

	for _, tc := range cases {
		if got := originAllowed(tc.origin, allowed); got != tc.want {
			t.Fatalf("originAllowed(%q)=%v want=%v", tc.origin, got, tc.want)
		}
	}
}
