package consensus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
)

// PoW errors.
var (
	ErrInsufficientWork = errors.New("hash does not meet difficulty target")
	ErrZeroDifficulty   = errors.New("difficulty must be > 0")
	ErrNonceExhausted   = errors.New("nonce space exhausted")
)

// maxUint256 is 2^256 - 1.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// PoW seals blocks at a fixed difficulty. A header is valid when its hash,
// read as a big-endian integer, is at most MaxUint256 / Difficulty.
type PoW struct {
	Difficulty uint64

	// Threads controls the number of parallel sealing goroutines.
	// 0 or 1 = single-threaded. Each goroutine searches a strided
	// partition of the nonce space.
	Threads int
}

// NewPoW creates a PoW engine with a fixed difficulty.
func NewPoW(difficulty uint64) (*PoW, error) {
	if difficulty == 0 {
		return nil, ErrZeroDifficulty
	}
	return &PoW{Difficulty: difficulty}, nil
}

// target returns MaxUint256 / difficulty as a 256-bit big.Int.
func target(difficulty uint64) *big.Int {
	d := new(big.Int).SetUint64(difficulty)
	return new(big.Int).Div(maxUint256, d)
}

// VerifyHeader checks that the header hash meets the difficulty.
func (p *PoW) VerifyHeader(header *block.Header) error {
	if p.Difficulty == 0 {
		return ErrZeroDifficulty
	}
	hash := header.Hash()
	if new(big.Int).SetBytes(hash[:]).Cmp(target(p.Difficulty)) > 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientWork, hash.Short())
	}
	return nil
}

// Seal iterates the header nonce until the hash meets the target. When ctx
// is cancelled sealing stops and ctx.Err() is returned.
func (p *PoW) Seal(ctx context.Context, blk *block.Block) error {
	if blk == nil || blk.Header == nil {
		return fmt.Errorf("nil block or header")
	}
	if p.Difficulty == 0 {
		return ErrZeroDifficulty
	}
	if p.Threads <= 1 {
		return p.sealSingle(ctx, blk)
	}
	return p.sealParallel(ctx, blk, p.Threads)
}

// signingPrefix returns the header's signing bytes without the trailing
// nonce, so each attempt only rewrites the last 8 bytes.
func signingPrefix(h *block.Header) []byte {
	b := h.SigningBytes()
	return b[:len(b)-8]
}

// sealSingle mines with a single goroutine.
func (p *PoW) sealSingle(ctx context.Context, blk *block.Block) error {
	t := target(p.Difficulty)
	prefix := signingPrefix(blk.Header)
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	hashInt := new(big.Int)

	for nonce := uint64(0); ; nonce++ {
		// Check cancellation every 65536 iterations.
		if nonce&0xFFFF == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		binary.LittleEndian.PutUint64(buf[len(prefix):], nonce)
		hash := crypto.Hash(buf)
		hashInt.SetBytes(hash[:])
		if hashInt.Cmp(t) <= 0 {
			blk.Header.Nonce = nonce
			return nil
		}
		if nonce == ^uint64(0) {
			return ErrNonceExhausted
		}
	}
}

// sealParallel mines with multiple goroutines, each searching a strided
// partition of the nonce space (goroutine i starts at nonce=i, step=threads).
func (p *PoW) sealParallel(ctx context.Context, blk *block.Block, threads int) error {
	t := target(p.Difficulty)
	prefix := signingPrefix(blk.Header)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		nonce uint64
		err   error
	}
	found := make(chan result, 1)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		startNonce := uint64(i)
		stride := uint64(threads)
		go func() {
			defer wg.Done()
			buf := make([]byte, len(prefix)+8)
			copy(buf, prefix)
			hashInt := new(big.Int)

			for nonce := startNonce; ; nonce += stride {
				if (nonce/stride)&0xFFFF == 0 && nonce > 0 {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}

				binary.LittleEndian.PutUint64(buf[len(prefix):], nonce)
				hash := crypto.Hash(buf)
				hashInt.SetBytes(hash[:])
				if hashInt.Cmp(t) <= 0 {
					select {
					case found <- result{nonce: nonce}:
					default:
					}
					cancel()
					return
				}

				// Next step would wrap past max uint64.
				if nonce > ^uint64(0)-stride {
					select {
					case found <- result{err: ErrNonceExhausted}:
					default:
					}
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	// Workers exit on cancellation, which closes found.
	r, ok := <-found
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrNonceExhausted
	}
	if r.err != nil {
		return r.err
	}
	blk.Header.Nonce = r.nonce
	return nil
}
