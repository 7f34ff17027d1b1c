package claimapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"fairdrop/cmd/chain/ledger"
	"fairdrop/cmd/internal/ratelimit"
	"fairdrop/cmd/internal/slug"
	"fairdrop/cmd/security/siws"
)

const (
	defaultTokenInfoURL = "https://explorer.solana.com/api/token-info"
	tokenInfoTimeout    = 5 * time.Second
)

// Handler wires the FairDrop HTTP routes to the chain read model, the slug
// directory, the score provider, and the token signer.
type Handler struct {
	log *slog.Logger
	cfg Config

	chain   ChainReader
	slugs   SlugDirectory
	scores  ScoreProvider
	issuer  TokenIssuer
	siws    *siws.Verifier
	limiter *ratelimit.Limiter

	tokenInfoURL string
	httpClient   *http.Client
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithTokenInfoURL overrides the explorer token-metadata endpoint.
func WithTokenInfoURL(u string) HandlerOption {
	return func(h *Handler) {
		if h == nil || strings.TrimSpace(u) == "" {
			return
		}
		h.tokenInfoURL = u
	}
}

// WithHTTPClient overrides the outbound HTTP client used by the token-info proxy.
func WithHTTPClient(c *http.Client) HandlerOption {
	return func(h *Handler) {
		if h == nil || c == nil {
			return
		}
		h.httpClient = c
	}
}

// NewHandler constructs the API handler. The score provider may be nil:
// reputation-gated drops then refuse issuance and ungated drops degrade to a
// zero score.
func NewHandler(log *slog.Logger, cfg Config, chain ChainReader, slugs SlugDirectory, scores ScoreProvider, issuer TokenIssuer, verifier *siws.Verifier, limiter *ratelimit.Limiter, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if chain == nil {
		return nil, errors.New("claimapi: nil chain reader")
	}
	if slugs == nil {
		return nil, errors.New("claimapi: nil slug directory")
	}
	if issuer == nil {
		return nil, errors.New("claimapi: nil token issuer")
	}
	if verifier == nil {
		return nil, errors.New("claimapi: nil siws verifier")
	}
	if limiter == nil {
		return nil, errors.New("claimapi: nil rate limiter")
	}

	h := &Handler{
		log:          log,
		cfg:          cfg,
		chain:        chain,
		slugs:        slugs,
		scores:       scores,
		issuer:       issuer,
		siws:         verifier,
		limiter:      limiter,
		tokenInfoURL: defaultTokenInfoURL,
		httpClient:   &http.Client{Timeout: tokenInfoTimeout},
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	return h, nil
}

// Register wires API routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/claim-token", h.handleClaimToken)
	mux.HandleFunc("/api/create-slug", h.handleCreateSlug)
	mux.HandleFunc("/api/my-slugs", h.handleMySlugs)
	mux.HandleFunc("/api/drop/", h.handleDrop)
	mux.HandleFunc("/api/token-info", h.handleTokenInfo)
}

// ---- handlers ----

// handleClaimToken is the issuance gate. Check order is load-bearing: the
// cheap global and per-IP limits run before the body is even read, the slug
// binding runs before any chain or reputation lookup, and the per-wallet
// limit runs before the drop fetch so a single wallet cannot farm RPC reads.
func (h *Handler) handleClaimToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)

	if res := h.limiter.Check("global", h.cfg.GlobalLimit, h.cfg.RateWindow); !res.Allowed {
		claimTokensDenied.WithLabelValues("global_rate_limited").Inc()
		writeRateLimited(w, res.RetryAfter(now), "server is busy, please try again later")
		return
	}
	if res := h.limiter.Check("ip:"+ip, h.cfg.IPLimit, h.cfg.RateWindow); !res.Allowed {
		claimTokensDenied.WithLabelValues("ip_rate_limited").Inc()
		writeRateLimited(w, res.RetryAfter(now), "too many requests from your IP, please wait a moment")
		return
	}

	var req claimTokenRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		claimTokensDenied.WithLabelValues("invalid_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.DropAddress) == "" || strings.TrimSpace(req.Claimer) == "" || strings.TrimSpace(req.Slug) == "" {
		claimTokensDenied.WithLabelValues("invalid_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid_request", "dropAddress, claimer and slug are required")
		return
	}

	ok, err := h.slugs.Verify(ctx, req.Slug, req.DropAddress)
	if err != nil {
		h.log.Error("api.claim_token.slug.fail", "err", err)
		claimTokensDenied.WithLabelValues("server_error").Inc()
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	if !ok {
		claimTokensDenied.WithLabelValues("invalid_claim_link").Inc()
		writeError(w, http.StatusForbidden, "invalid_claim_link", "invalid claim link")
		return
	}

	claimer, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.Claimer))
	if err != nil {
		claimTokensDenied.WithLabelValues("invalid_claimer").Inc()
		writeError(w, http.StatusBadRequest, "invalid_claimer", "invalid claimer address")
		return
	}

	if res := h.limiter.Check("wallet:"+claimer.String(), h.cfg.WalletLimit, h.cfg.RateWindow); !res.Allowed {
		claimTokensDenied.WithLabelValues("wallet_rate_limited").Inc()
		writeRateLimited(w, res.RetryAfter(now), "too many requests from this wallet, please wait a moment")
		return
	}

	drop, err := h.fetchDropByAddress(ctx, req.DropAddress)
	if err != nil {
		h.log.Error("api.claim_token.drop.fail", "err", err)
		claimTokensDenied.WithLabelValues("server_error").Inc()
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	if drop == nil {
		claimTokensDenied.WithLabelValues("drop_not_found").Inc()
		writeError(w, http.StatusNotFound, "drop_not_found", "drop not found")
		return
	}
	if !drop.IsActive() {
		claimTokensDenied.WithLabelValues("drop_inactive").Inc()
		writeError(w, http.StatusBadRequest, "drop_inactive", "drop is no longer active")
		return
	}

	score, denied := h.resolveScore(ctx, w, claimer.String(), drop.MinFairscaleScore)
	if denied {
		return
	}

	token, err := h.issuer.Issue(drop.DropID, claimer, score)
	if err != nil {
		h.log.Error("api.claim_token.sign.fail", "err", err)
		claimTokensDenied.WithLabelValues("server_error").Inc()
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	claimTokensIssued.Inc()
	h.log.Info("api.claim_token.issued",
		"drop", drop.Address.String(),
		"claimer", claimer.String(),
		"score", score,
	)
	writeJSON(w, http.StatusOK, claimTokenResponse{ClaimToken: token})
}

// resolveScore applies the drop's reputation gate. A gated drop refuses
// issuance when the score cannot be fetched; an ungated drop records a zero
// score instead. Reports denied=true after writing the response.
func (h *Handler) resolveScore(ctx context.Context, w http.ResponseWriter, claimer string, minScore uint16) (uint16, bool) {
	if minScore > 0 {
		if h.scores == nil {
			claimTokensDenied.WithLabelValues("score_unavailable").Inc()
			writeError(w, http.StatusBadGateway, "score_unavailable", "reputation lookup unavailable")
			return 0, true
		}
		res, err := h.scores.Score(ctx, claimer)
		if err != nil {
			h.log.Error("api.claim_token.score.fail", "err", err)
			claimTokensDenied.WithLabelValues("score_unavailable").Inc()
			writeError(w, http.StatusBadGateway, "score_unavailable", "reputation lookup failed")
			return 0, true
		}
		if res.Score < minScore {
			claimTokensDenied.WithLabelValues("score_too_low").Inc()
			writeJSON(w, http.StatusForbidden, scoreDeniedResponse{
				Error:    apiError{Code: "score_too_low", Message: "FairScale score too low"},
				Required: minScore,
				Actual:   res.Score,
			})
			return 0, true
		}
		return res.Score, false
	}

	if h.scores == nil {
		return 0, false
	}
	res, err := h.scores.Score(ctx, claimer)
	if err != nil {
		// Ungated drops embed the score for transparency only.
		return 0, false
	}
	return res.Score, false
}

func (h *Handler) handleCreateSlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createSlugRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.DropAddress) == "" || strings.TrimSpace(req.Creator) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "dropAddress and creator are required")
		return
	}

	dropAddr, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.DropAddress))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_address", "invalid address")
		return
	}
	creator, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.Creator))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_address", "invalid address")
		return
	}

	ctx := r.Context()
	drop, err := h.chain.FetchDrop(ctx, dropAddr)
	if err != nil {
		h.log.Error("api.create_slug.drop.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	if drop == nil {
		writeError(w, http.StatusNotFound, "drop_not_found", "drop not found on-chain")
		return
	}
	if !drop.Creator.Equals(creator) {
		writeError(w, http.StatusForbidden, "not_creator", "not the creator of this drop")
		return
	}

	s, err := h.slugs.Create(ctx, dropAddr.String(), creator.String())
	if err != nil {
		if errors.Is(err, slug.ErrGenerateExhausted) {
			h.log.Error("api.create_slug.exhausted", "drop", dropAddr.String())
			writeError(w, http.StatusInternalServerError, "slug_exhausted", "failed to generate unique slug")
			return
		}
		h.log.Error("api.create_slug.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("api.create_slug.created", "drop", dropAddr.String(), "slug", s)
	writeJSON(w, http.StatusOK, createSlugResponse{Slug: s})
}

func (h *Handler) handleMySlugs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req mySlugsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.WalletAddress) == "" || strings.TrimSpace(req.Signature) == "" ||
		strings.TrimSpace(req.Nonce) == "" || req.DropAddresses == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "walletAddress, signature, nonce and dropAddresses are required")
		return
	}

	wallet, err := h.siws.Verify(siws.Input{
		WalletAddress: req.WalletAddress,
		Signature:     req.Signature,
		Nonce:         req.Nonce,
		IssuedAt:      req.IssuedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, siws.ErrInvalidAddress):
			writeError(w, http.StatusBadRequest, "invalid_wallet", "invalid wallet address")
		case errors.Is(err, siws.ErrInvalidIssuedAt):
			writeError(w, http.StatusBadRequest, "invalid_issued_at", "invalid issuedAt timestamp")
		case errors.Is(err, siws.ErrInvalidSignatureFormat):
			writeError(w, http.StatusBadRequest, "invalid_signature_format", "invalid signature format")
		case errors.Is(err, siws.ErrExpired):
			// Distinct code so clients know to re-sign rather than retry.
			writeError(w, http.StatusForbidden, "signature_expired", "signature expired")
		case errors.Is(err, siws.ErrInvalidSignature):
			writeError(w, http.StatusForbidden, "invalid_signature", "invalid signature")
		default:
			h.log.Error("api.my_slugs.verify.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	slugs, err := h.slugs.SlugsByCreator(r.Context(), req.DropAddresses, wallet.String())
	if err != nil {
		h.log.Error("api.my_slugs.lookup.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, mySlugsResponse{Success: true, Slugs: slugs})
}

func (h *Handler) handleDrop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/drop/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "drop_not_found", "drop not found")
		return
	}

	drop, err := h.fetchDropByAddress(r.Context(), id)
	if err != nil {
		h.log.Error("api.drop.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	if drop == nil {
		writeError(w, http.StatusNotFound, "drop_not_found", "drop not found")
		return
	}

	writeJSON(w, http.StatusOK, toDropResponse(*drop))
}

// clusterIDs maps explorer network names to their cluster enum.
var clusterIDs = map[string]int{
	"mainnet-beta": 1,
	"devnet":       2,
	"testnet":      3,
}

func (h *Handler) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	mint := strings.TrimSpace(r.URL.Query().Get("mint"))
	if mint == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "mint is required")
		return
	}
	cluster, ok := clusterIDs[r.URL.Query().Get("network")]
	if !ok {
		cluster = clusterIDs["devnet"]
	}

	ctx, cancel := context.WithTimeout(r.Context(), tokenInfoTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{"address": mint, "cluster": cluster})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	upstreamReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.tokenInfoURL, bytes.NewReader(payload))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	upstreamReq.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(upstreamReq)
	if err != nil {
		h.log.Error("api.token_info.fetch.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "token_info_unavailable", "failed to fetch token info")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusNotFound, "token_not_found", "token not found")
		return
	}

	var upstream struct {
		Content *struct {
			Name     *string `json:"name"`
			Symbol   *string `json:"symbol"`
			Decimals *int    `json:"decimals"`
			LogoURI  *string `json:"logoURI"`
			Verified bool    `json:"verified"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil || upstream.Content == nil {
		writeError(w, http.StatusNotFound, "token_not_found", "token not found")
		return
	}

	writeJSON(w, http.StatusOK, tokenInfoResponse{
		Name:     upstream.Content.Name,
		Symbol:   upstream.Content.Symbol,
		Decimals: upstream.Content.Decimals,
		LogoURI:  upstream.Content.LogoURI,
		Verified: upstream.Content.Verified,
	})
}

// ---- helpers ----

// fetchDropByAddress treats an unparseable address like a missing account.
func (h *Handler) fetchDropByAddress(ctx context.Context, addr string) (*ledger.DropInfo, error) {
	pub, err := solana.PublicKeyFromBase58(strings.TrimSpace(addr))
	if err != nil {
		return nil, nil
	}
	return h.chain.FetchDrop(ctx, pub)
}
