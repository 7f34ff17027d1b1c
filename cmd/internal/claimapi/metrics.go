package claimapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairdrop_claim_tokens_issued_total",
		Help: "Claim tokens signed and returned to clients.",
	})

	claimTokensDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairdrop_claim_tokens_denied_total",
		Help: "Claim token requests refused, by reason.",
	}, []string{"reason"})
)
