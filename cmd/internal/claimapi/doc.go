// Package claimapi exposes the FairDrop HTTP API: claim-token issuance with
// layered rate limiting, slug creation and lookup, drop reads, and the
// token-metadata proxy.
//
// The claim-token route is the security boundary of the whole system. It
// refuses to sign unless the request arrives through a known claim link, the
// drop still accepts claims, and the claimer clears the drop's reputation
// threshold.
package claimapi
