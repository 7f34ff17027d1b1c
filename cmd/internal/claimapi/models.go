package claimapi

import (
	"strconv"

	"fairdrop/cmd/chain/ledger"
	"fairdrop/cmd/security/signer"
)

type claimTokenRequest struct {
	DropAddress string `json:"dropAddress"`
	Claimer     string `json:"claimer"`
	Slug        string `json:"slug"`
}

type claimTokenResponse struct {
	ClaimToken signer.ClaimToken `json:"claimToken"`
}

type createSlugRequest struct {
	DropAddress string `json:"dropAddress"`
	Creator     string `json:"creator"`
}

type createSlugResponse struct {
	Slug string `json:"slug"`
}

type mySlugsRequest struct {
	WalletAddress string   `json:"walletAddress"`
	Signature     string   `json:"signature"`
	Nonce         string   `json:"nonce"`
	IssuedAt      string   `json:"issuedAt"`
	DropAddresses []string `json:"dropAddresses"`
}

type mySlugsResponse struct {
	Success bool              `json:"success"`
	Slugs   map[string]string `json:"slugs"`
}

type dropResponse struct {
	Address           string `json:"address"`
	Creator           string `json:"creator"`
	DropID            []int  `json:"dropId"`
	TokenMint         string `json:"tokenMint"`
	AmountPerClaim    string `json:"amountPerClaim"`
	MaxClaims         uint32 `json:"maxClaims"`
	CurrentClaims     uint32 `json:"currentClaims"`
	RemainingClaims   uint32 `json:"remainingClaims"`
	MinFairscaleScore uint16 `json:"minFairscaleScore"`
	IsNativeSol       bool   `json:"isNativeSol"`
	IsCanceled        bool   `json:"isCanceled"`
	IsActive          bool   `json:"isActive"`
	IsEnded           bool   `json:"isEnded"`
}

func toDropResponse(d ledger.DropInfo) dropResponse {
	id := make([]int, len(d.DropID))
	for i, b := range d.DropID {
		id[i] = int(b)
	}
	return dropResponse{
		Address:           d.Address.String(),
		Creator:           d.Creator.String(),
		DropID:            id,
		TokenMint:         d.TokenMint.String(),
		AmountPerClaim:    strconv.FormatUint(d.AmountPerClaim, 10),
		MaxClaims:         d.MaxClaims,
		CurrentClaims:     d.CurrentClaims,
		RemainingClaims:   d.RemainingClaims(),
		MinFairscaleScore: d.MinFairscaleScore,
		IsNativeSol:       d.IsNativeSol,
		IsCanceled:        d.IsCanceled,
		IsActive:          d.IsActive(),
		IsEnded:           d.IsEnded(),
	}
}

type tokenInfoResponse struct {
	Name     *string `json:"name"`
	Symbol   *string `json:"symbol"`
	Decimals *int    `json:"decimals"`
	LogoURI  *string `json:"logoURI"`
	Verified bool    `json:"verified"`
}
