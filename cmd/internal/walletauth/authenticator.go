package walletauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"fairdrop/cmd/security/siws"
)

// State is the authenticator's position in the sign-in lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateUnauthenticated
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// MessageSigner produces a detached signature over a sign-in message. This is
// the wallet boundary; it may block on user interaction.
type MessageSigner interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

const nonceBytes = 12

func generateNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Authenticator drives sign-in for one wallet connection at a time.
//
// A cached session suppresses duplicate signing: reconnecting the same wallet
// reuses the stored proof until the server reports it expired. Signatures
// that finish after the active wallet changed are discarded, not cached.
type Authenticator struct {
	domain string
	signer MessageSigner
	cache  SessionCache
	bus    *ExpiryBus
	now    func() time.Time
	nonce  func() (string, error)

	mu         sync.Mutex
	wallet     string
	state      State
	session    Session
	hasSession bool
	lastErr    error
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithCache replaces the default in-memory session cache.
func WithCache(c SessionCache) Option {
	return func(a *Authenticator) {
		if a == nil || c == nil {
			return
		}
		a.cache = c
	}
}

// WithExpiryBus subscribes the authenticator to server-reported expiry
// signals; Run consumes them.
func WithExpiryBus(b *ExpiryBus) Option {
	return func(a *Authenticator) {
		if a == nil || b == nil {
			return
		}
		a.bus = b
	}
}

// WithClock replaces the issuedAt time source. Useful in tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if a == nil || now == nil {
			return
		}
		a.now = now
	}
}

// New constructs an Authenticator for the given sign-in domain.
func New(domain string, signer MessageSigner, opts ...Option) *Authenticator {
	a := &Authenticator{
		domain: domain,
		signer: signer,
		cache:  NewMemoryCache(),
		now:    time.Now,
		nonce:  generateNonce,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// Connect makes walletAddress the active wallet. A cached session
// authenticates immediately without a signing round trip; otherwise a fresh
// nonce is generated and the wallet is asked to sign.
func (a *Authenticator) Connect(ctx context.Context, walletAddress string) (Session, error) {
	a.mu.Lock()
	a.wallet = walletAddress
	a.lastErr = nil

	if cached, ok := a.cache.Get(walletAddress); ok {
		a.session = cached
		a.hasSession = true
		a.state = StateAuthenticated
		a.mu.Unlock()
		return cached, nil
	}

	a.hasSession = false
	return a.signLocked(ctx, walletAddress)
}

// Disconnect drops the active wallet and its cached session.
func (a *Authenticator) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.wallet != "" {
		a.cache.Remove(a.wallet)
	}
	a.wallet = ""
	a.hasSession = false
	a.state = StateDisconnected
	a.lastErr = nil
}

// Reauthenticate discards the cached session for the active wallet and signs
// again.
func (a *Authenticator) Reauthenticate(ctx context.Context) (Session, error) {
	a.mu.Lock()
	wallet := a.wallet
	if wallet == "" {
		a.mu.Unlock()
		return Session{}, ErrNoWallet
	}
	a.cache.Remove(wallet)
	a.hasSession = false
	a.state = StateUnauthenticated
	return a.signLocked(ctx, wallet)
}

// State reports the current lifecycle position.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// CurrentSession returns the active wallet's proof, if authenticated.
func (a *Authenticator) CurrentSession() (Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, a.hasSession
}

// Err returns the most recent signing failure, if any.
func (a *Authenticator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Run consumes expiry signals until ctx is canceled. An expiry for the
// active wallet purges the cache and immediately re-triggers signing; one
// for any other wallet only purges its cached proof.
func (a *Authenticator) Run(ctx context.Context) error {
	if a.bus == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	events, cancel := a.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case wallet := <-events:
			a.cache.Remove(wallet)

			a.mu.Lock()
			if a.wallet != wallet {
				a.mu.Unlock()
				continue
			}
			a.hasSession = false
			a.state = StateUnauthenticated
			// signLocked releases the mutex around the wallet round trip.
			_, _ = a.signLocked(ctx, wallet)
		}
	}
}

// signLocked performs one signing round trip. The mutex must be held on
// entry; it is released while the wallet signs and re-taken afterwards. The
// result is discarded when the active wallet changed mid-flight.
func (a *Authenticator) signLocked(ctx context.Context, walletAddress string) (Session, error) {
	a.state = StateAuthenticating

	nonce, err := a.nonce()
	if err != nil {
		a.state = StateUnauthenticated
		a.lastErr = err
		a.mu.Unlock()
		return Session{}, err
	}
	issuedAt := a.now().UTC().Format(time.RFC3339)
	message := siws.BuildMessage(a.domain, walletAddress, nonce, issuedAt)

	a.mu.Unlock()
	sig, signErr := a.signer.SignMessage(ctx, []byte(message))
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.wallet != walletAddress {
		// The active wallet moved on; its own connect owns the state now.
		return Session{}, ErrWalletChanged
	}

	if signErr != nil {
		a.state = StateUnauthenticated
		a.lastErr = signErr
		return Session{}, signErr
	}

	s := Session{
		Signature: base64.StdEncoding.EncodeToString(sig),
		Nonce:     nonce,
		IssuedAt:  issuedAt,
	}
	a.cache.Put(walletAddress, s)
	a.session = s
	a.hasSession = true
	a.state = StateAuthenticated
	a.lastErr = nil
	return s, nil
}
