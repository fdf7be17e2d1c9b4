// Package fees computes the network and platform fees charged on a tip.
// Every function here is pure: no I/O, no state.
package fees

import (
	"math"

	"github.com/AlexZinkM/walletlink/internal/common"
)

const (
	DefaultFeePerSignature uint64 = 5000 // lamports
	// TipSignatures is the signature count the tip quote budgets for.
	TipSignatures = 5

	platformFlatFee    = 0.003
	platformPercentage = 0.01
)

// Params configures a network fee estimate. Zero fields fall back to defaults.
type Params struct {
	Signatures      uint64
	FeePerSignature uint64
	Multiplier      uint64
}

// Network is a network fee in both lamports and SOL
type Network struct {
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
}

// Quote is the fee breakdown shown before a tip is sent
type Quote struct {
	Tip            float64 `json:"tip"`
	NetworkFee     Network `json:"networkFee"`
	PlatformFee    float64 `json:"platformFee"`
	ArtistShare    float64 `json:"artistShare"`
	ArtistPercent  float64 `json:"artistPercent"`
	ArtistShareUSD *string `json:"artistShareUsd,omitempty"`
}

// NetworkFee returns signatures * feePerSignature * multiplier lamports
func NetworkFee(p Params) Network {
	if p.Signatures == 0 {
		p.Signatures = 1
	}
	if p.FeePerSignature == 0 {
		p.FeePerSignature = DefaultFeePerSignature
	}
	if p.Multiplier == 0 {
		p.Multiplier = 1
	}

	lamports := p.Signatures * p.FeePerSignature * p.Multiplier
	return Network{
		Lamports: lamports,
		SOL:      common.LamportsToSOLFloat(lamports),
	}
}

// PlatformFee returns the flat 0.003 SOL plus 1% of the tip
func PlatformFee(tip float64) float64 {
	if tip < 0 || math.IsNaN(tip) {
		tip = 0
	}
	return common.Round9(platformFlatFee + platformPercentage*tip)
}

// ArtistShare is what is left of the tip after fees, never below zero
func ArtistShare(tip float64, network Network) float64 {
	if tip < 0 || math.IsNaN(tip) {
		return 0
	}
	return common.Round9(math.Max(tip-PlatformFee(tip)-network.SOL, 0))
}

// QuoteTip builds the full breakdown for a tip amount in SOL
func QuoteTip(tip float64) Quote {
	if tip < 0 || math.IsNaN(tip) {
		tip = 0
	}
	network := NetworkFee(Params{Signatures: TipSignatures})
	share := ArtistShare(tip, network)

	var percent float64
	if tip > 0 {
		percent = math.Round(share / tip * 100)
	}

	return Quote{
		Tip:           tip,
		NetworkFee:    network,
		PlatformFee:   PlatformFee(tip),
		ArtistShare:   share,
		ArtistPercent: percent,
	}
}
