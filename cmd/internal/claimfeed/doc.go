// Package claimfeed streams settled claims to WebSocket subscribers.
//
// Browsers watching a drop page subscribe to that drop's feed; a background
// poller reads new claim records from the ledger and fans them out. The feed
// is push-only: subscribers never send application frames.
package claimfeed
