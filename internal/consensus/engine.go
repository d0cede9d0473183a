// Package consensus seals blocks with proof of work and checks the seal.
// It sits outside ledger validation: the chain only consults it through
// an optional header check.
package consensus

import (
	"context"

	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// Engine seals new blocks and verifies sealed headers.
type Engine interface {
	VerifyHeader(header *block.Header) error
	Seal(ctx context.Context, blk *block.Block) error
}

// None accepts every header and seals nothing.
type None struct{}

// VerifyHeader implements Engine.
func (None) VerifyHeader(*block.Header) error { return nil }

// Seal implements Engine.
func (None) Seal(ctx context.Context, _ *block.Block) error { return ctx.Err() }

var (
	_ Engine = None{}
	_ Engine = (*PoW)(nil)
)
