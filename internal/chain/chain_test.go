package chain

import (
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-ledger/config"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/mempool"
	"github.com/Klingon-tech/klingnet-ledger/internal/metrics"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

func init() {
	klog.SetLogger(zerolog.Nop())
}

func genKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return k
}

func testGenesis(t *testing.T, key *crypto.PrivateKey, value int64) *config.Genesis {
	t.Helper()
	return &config.Genesis{
		ChainName: "test",
		Timestamp: 1700000000,
		Alloc:     map[string]int64{hex.EncodeToString(key.PublicKey()): value},
	}
}

// testChain creates a chain whose genesis pays value to key.
func testChain(t *testing.T, key *crypto.PrivateKey, value int64, opts ...Option) *Chain {
	t.Helper()
	c, err := NewFromGenesis(testGenesis(t, key, value), opts...)
	if err != nil {
		t.Fatalf("NewFromGenesis: %v", err)
	}
	return c
}

// genesisCoin returns the outpoint of the single genesis allocation.
func genesisCoin(c *Chain) types.Outpoint {
	gen, _ := c.Record(c.GenesisHash())
	return gen.Block.Coinbase.OutPoint(0)
}

// makeBlock builds a block on parent whose coinbase pays reward to miner.
// nonce distinguishes otherwise identical siblings.
func makeBlock(parent types.Hash, height uint64, miner []byte, reward int64, nonce uint64, txs ...*tx.Transaction) *block.Block {
	blk := block.New(parent, tx.NewCoinbase(miner, reward, height), txs, 1700000000+height)
	blk.Header.Nonce = nonce
	return blk
}

func spend(t *testing.T, key *crypto.PrivateKey, prev types.Outpoint, outs ...tx.Output) *tx.Transaction {
	t.Helper()
	b := tx.NewBuilder().AddInput(prev)
	for _, o := range outs {
		b.AddOutput(o.Value, o.Owner)
	}
	if err := b.SignAll(key); err != nil {
		t.Fatalf("SignAll: %v", err)
	}
	return b.Build()
}

// extend appends n empty blocks on parent and returns them.
func extend(t *testing.T, c *Chain, parent types.Hash, n int, miner []byte, nonce uint64) []*block.Block {
	t.Helper()
	rec, ok := c.Record(parent)
	if !ok {
		t.Fatalf("extend: parent %s not retained", parent.Short())
	}
	height := rec.Height
	var out []*block.Block
	for i := 0; i < n; i++ {
		height++
		blk := makeBlock(parent, height, miner, 1, nonce)
		if err := c.ProcessBlock(blk); err != nil {
			t.Fatalf("extend height %d: %v", height, err)
		}
		out = append(out, blk)
		parent = blk.Hash()
	}
	return out
}

func TestNew_Genesis(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10)

	if c.Height() != GenesisHeight {
		t.Errorf("Height = %d, want %d", c.Height(), GenesisHeight)
	}
	if c.TipHash() != c.GenesisHash() {
		t.Error("genesis should be the best tip")
	}
	if st := c.State(); !st.IsGenesis() || st.Records != 1 {
		t.Errorf("State = %+v", st)
	}

	ledger := c.BestLedger()
	if ledger.Len() != 1 {
		t.Fatalf("ledger has %d entries, want 1", ledger.Len())
	}
	out, ok := ledger.Get(genesisCoin(c))
	if !ok || out.Value != 10 || string(out.Owner) != string(k1.PublicKey()) {
		t.Errorf("genesis entry = %+v, %v; want 10 to K1", out, ok)
	}
	if !c.Pool().Has(c.BestBlock().Coinbase.Hash()) {
		t.Error("genesis coinbase should be recorded in the pool")
	}
}

func TestNew_GenesisTransactionsAdmittedUnchecked(t *testing.T) {
	k1 := genKey(t)
	// Spends nothing that exists and is unsigned; genesis takes it anyway.
	extra := &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{TxID: types.Hash{0x99}}}},
		Outputs: []tx.Output{{Value: 7, Owner: k1.PublicKey()}},
	}
	gen := block.New(types.Hash{}, tx.NewCoinbase(k1.PublicKey(), 3, GenesisHeight), []*tx.Transaction{extra}, 1)

	c, err := New(gen)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.BestLedger().Len() != 2 {
		t.Errorf("ledger has %d entries, want 2", c.BestLedger().Len())
	}
	if !c.Pool().Has(extra.Hash()) || c.Pool().Count() != 2 {
		t.Error("every genesis transaction should be in the pool")
	}
}

func TestNew_NilGenesis(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilGenesis) {
		t.Errorf("err = %v, want %v", err, ErrNilGenesis)
	}
	if _, err := NewFromGenesis(&config.Genesis{}); err == nil {
		t.Error("invalid genesis config should fail")
	}
}

func TestProcessBlock_SpendOnGenesis(t *testing.T) {
	k1, k2, k3 := genKey(t), genKey(t), genKey(t)
	c := testChain(t, k1, 10)
	coin := genesisCoin(c)

	payment := spend(t, k1, coin,
		tx.Output{Value: 4, Owner: k2.PublicKey()},
		tx.Output{Value: 5, Owner: k3.PublicKey()})
	c.SubmitTx(payment)

	// A coinbase without outputs keeps the ledger to the two payments.
	coinbase := &tx.Transaction{Version: 1, LockTime: 2}
	blk := block.New(c.TipHash(), coinbase, []*tx.Transaction{payment}, 1700000001)

	if !c.AddBlock(blk) {
		t.Fatal("block spending genesis should be accepted")
	}
	if c.Height() != 2 || c.TipHash() != blk.Hash() {
		t.Errorf("tip = %s at %d, want new block at 2", c.TipHash().Short(), c.Height())
	}

	ledger := c.BestLedger()
	want := utxo.New()
	want.Add(payment.OutPoint(0), tx.Output{Value: 4, Owner: k2.PublicKey()})
	want.Add(payment.OutPoint(1), tx.Output{Value: 5, Owner: k3.PublicKey()})
	if !utxo.Equal(ledger, want) {
		t.Errorf("ledger = %v, want exactly the two payments", ledger.Outpoints())
	}
	if ledger.Has(coin) {
		t.Error("genesis output should be spent")
	}

	if c.Pool().Has(payment.Hash()) {
		t.Error("confirmed tx should leave the pool")
	}
	if !c.Pool().Has(coinbase.Hash()) {
		t.Error("block coinbase should enter the pool")
	}

	// Genesis branch still sees its own ledger.
	gen, _ := c.Record(c.GenesisHash())
	if !gen.Ledger().Has(coin) {
		t.Error("parent ledger must be unaffected by child block")
	}
}

func TestProcessBlock_InvalidTxRejectsBlock(t *testing.T) {
	k1, k2, k3 := genKey(t), genKey(t), genKey(t)
	c := testChain(t, k1, 10)
	coin := genesisCoin(c)

	good := spend(t, k1, coin, tx.Output{Value: 4, Owner: k2.PublicKey()})
	over := spend(t, k1, coin,
		tx.Output{Value: 6, Owner: k2.PublicKey()},
		tx.Output{Value: 5, Owner: k3.PublicKey()})
	c.SubmitTx(good)
	c.SubmitTx(over)
	poolBefore := c.Pool().Count()
	before := c.State()

	tests := []struct {
		name string
		txs  []*tx.Transaction
	}{
		{"overspend", []*tx.Transaction{over}},
		{"valid then invalid", []*tx.Transaction{good, over}},
		{"double spend", []*tx.Transaction{good, good}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blk := makeBlock(c.TipHash(), 2, k1.PublicKey(), 1, uint64(i), tt.txs...)
			if err := c.ProcessBlock(blk); !errors.Is(err, ErrInvalidTx) {
				t.Fatalf("err = %v, want %v", err, ErrInvalidTx)
			}
			if c.State() != before {
				t.Error("state changed after rejection")
			}
			if c.Pool().Count() != poolBefore || !c.Pool().Has(good.Hash()) {
				t.Error("pool changed after rejection")
			}
		})
	}
}

func TestProcessBlock_StructuralRejections(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10)
	genesis := c.TipHash()

	valid := makeBlock(genesis, 2, k1.PublicKey(), 1, 0)
	if err := c.ProcessBlock(valid); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}

	tampered := makeBlock(genesis, 2, k1.PublicKey(), 1, 1)
	tampered.Coinbase.Outputs[0].Value = 2

	tests := []struct {
		name string
		blk  *block.Block
		want error
	}{
		{"nil block", nil, ErrNilBlock},
		{"nil header", &block.Block{}, ErrNilBlock},
		{"zero parent", makeBlock(types.Hash{}, 2, k1.PublicKey(), 1, 0), ErrNoParent},
		{"known", valid, ErrBlockKnown},
		{"unknown parent", makeBlock(types.Hash{0xee}, 2, k1.PublicKey(), 1, 0), ErrPrevNotFound},
		{"bad merkle root", tampered, ErrBadBlock},
		{"no coinbase", &block.Block{Header: &block.Header{Version: 1, PrevHash: genesis}}, ErrBadBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := c.State()
			count := c.RecordCount()
			if err := c.ProcessBlock(tt.blk); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if c.AddBlock(tt.blk) {
				t.Error("AddBlock should return false")
			}
			if c.State() != before || c.RecordCount() != count {
				t.Error("registry changed after rejection")
			}
		})
	}
}

func TestProcessBlock_BestTipSelection(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10)
	genesis := c.TipHash()

	a := makeBlock(genesis, 2, k1.PublicKey(), 1, 1)
	if err := c.ProcessBlock(a); err != nil {
		t.Fatal(err)
	}
	if c.TipHash() != a.Hash() {
		t.Fatal("higher block should become tip")
	}

	// Equal height sibling replaces the tip.
	b := makeBlock(genesis, 2, k1.PublicKey(), 1, 2)
	if err := c.ProcessBlock(b); err != nil {
		t.Fatal(err)
	}
	if c.TipHash() != b.Hash() {
		t.Error("equal-height block should replace the tip")
	}

	// Extending the old tip moves the tip back to that branch.
	a2 := makeBlock(a.Hash(), 3, k1.PublicKey(), 1, 1)
	if err := c.ProcessBlock(a2); err != nil {
		t.Fatal(err)
	}
	if c.TipHash() != a2.Hash() || c.Height() != 3 {
		t.Error("longer branch should become tip")
	}

	// A lower fork block is retained but does not move the tip.
	b2 := makeBlock(genesis, 2, k1.PublicKey(), 1, 3)
	if err := c.ProcessBlock(b2); err != nil {
		t.Fatal(err)
	}
	if c.TipHash() != a2.Hash() {
		t.Error("lower block must not become tip")
	}
	if !c.HasBlock(b2.Hash()) {
		t.Error("fork block should be retained")
	}
}

func TestProcessBlock_HeightWindow(t *testing.T) {
	k1 := genKey(t)

	for _, prune := range []bool{true, false} {
		c := testChain(t, k1, 10, WithPruning(prune))
		main := extend(t, c, c.GenesisHash(), 11, k1.PublicKey(), 0)
		best := c.Height()
		if best != 12 {
			t.Fatalf("best = %d, want 12", best)
		}

		// Parent at best-11 gives height best-10: rejected.
		var oldParent types.Hash = c.GenesisHash()
		stale := makeBlock(oldParent, 2, k1.PublicKey(), 1, 99)
		err := c.ProcessBlock(stale)
		if prune && !errors.Is(err, ErrPrevNotFound) {
			t.Errorf("pruned: err = %v, want %v", err, ErrPrevNotFound)
		}
		if !prune && !errors.Is(err, ErrTooOld) {
			t.Errorf("unpruned: err = %v, want %v", err, ErrTooOld)
		}

		// Parent at best-10 gives height best-9: accepted.
		edgeParent := main[0] // height 2
		edge := makeBlock(edgeParent.Hash(), 3, k1.PublicKey(), 1, 99)
		if err := c.ProcessBlock(edge); err != nil {
			t.Errorf("prune=%v: height best-9 rejected: %v", prune, err)
		}
		if c.TipHash() != main[len(main)-1].Hash() {
			t.Error("lagging block must not become tip")
		}
	}
}

func TestProcessBlock_EvictsBelowWindow(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10, WithRetentionWindow(5))
	extend(t, c, c.GenesisHash(), 3, k1.PublicKey(), 1) // side branch
	main := extend(t, c, c.GenesisHash(), 20, k1.PublicKey(), 0)

	// Best is 21; records below 16 are gone.
	if got := c.RecordCount(); got != 6 {
		t.Errorf("RecordCount = %d, want 6", got)
	}
	if c.HasBlock(c.GenesisHash()) {
		t.Error("genesis should have been evicted")
	}
	branch, err := c.Ancestors(main[len(main)-1].Hash())
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(branch) != 6 || branch[0].Height != 16 {
		t.Errorf("branch len=%d first=%d, want 6 from height 16", len(branch), branch[0].Height)
	}
	if err := c.VerifyRecord(c.TipHash()); err != nil {
		t.Errorf("VerifyRecord: %v", err)
	}
}

func TestProcessBlock_CoinbaseLimit(t *testing.T) {
	k1, k2 := genKey(t), genKey(t)
	c := testChain(t, k1, 100, WithMaxCoinbaseValue(50))
	genesis := c.TipHash()

	if err := c.ProcessBlock(makeBlock(genesis, 2, k2.PublicKey(), 51, 0)); !errors.Is(err, ErrCoinbaseTooLarge) {
		t.Errorf("err = %v, want %v", err, ErrCoinbaseTooLarge)
	}

	// Fees raise the limit.
	payment := spend(t, k1, genesisCoin(c), tx.Output{Value: 90, Owner: k2.PublicKey()})
	if err := c.ProcessBlock(makeBlock(genesis, 2, k2.PublicKey(), 60, 0, payment)); err != nil {
		t.Errorf("reward 50 + fee 10: %v", err)
	}
}

func TestProcessBlock_RepeatedCoinbaseOverwrites(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10)

	cb := tx.NewCoinbase(k1.PublicKey(), 5, 7)
	first := block.New(c.TipHash(), cb, nil, 1700000002)
	if err := c.ProcessBlock(first); err != nil {
		t.Fatalf("first: %v", err)
	}
	// Child carries a byte-identical coinbase; its outpoint is already unspent.
	dup := block.New(first.Hash(), tx.NewCoinbase(k1.PublicKey(), 5, 7), nil, 1700000003)
	if err := c.ProcessBlock(dup); err != nil {
		t.Fatalf("repeated coinbase: %v", err)
	}
	if c.TipHash() != dup.Hash() || c.Height() != 3 {
		t.Errorf("tip = %s at %d, want child at 3", c.TipHash().Short(), c.Height())
	}

	ledger := c.BestLedger()
	if ledger.Len() != 2 {
		t.Errorf("ledger has %d entries, want genesis coin + one coinbase entry", ledger.Len())
	}
	if out, ok := ledger.Get(cb.OutPoint(0)); !ok || out.Value != 5 {
		t.Errorf("coinbase entry = %+v, %v; want 5", out, ok)
	}
}

func TestProcessBlock_ChainedTxsInBlock(t *testing.T) {
	k1, k2, k3 := genKey(t), genKey(t), genKey(t)
	c := testChain(t, k1, 10)

	parent := spend(t, k1, genesisCoin(c), tx.Output{Value: 9, Owner: k2.PublicKey()})
	child := spend(t, k2, parent.OutPoint(0), tx.Output{Value: 8, Owner: k3.PublicKey()})

	reversed := makeBlock(c.TipHash(), 2, k1.PublicKey(), 1, 0, child, parent)
	if err := c.ProcessBlock(reversed); !errors.Is(err, ErrInvalidTx) {
		t.Errorf("child before parent: err = %v, want %v", err, ErrInvalidTx)
	}

	ordered := makeBlock(c.TipHash(), 2, k1.PublicKey(), 1, 0, parent, child)
	if err := c.ProcessBlock(ordered); err != nil {
		t.Fatalf("parent before child: %v", err)
	}
	if !c.BestLedger().Has(child.OutPoint(0)) || c.BestLedger().Has(parent.OutPoint(0)) {
		t.Error("ledger should hold only the child output from the chain")
	}
}

func TestProcessBlock_ForksHaveIndependentLedgers(t *testing.T) {
	k1, k2, k3 := genKey(t), genKey(t), genKey(t)
	c := testChain(t, k1, 10)
	coin := genesisCoin(c)
	genesis := c.TipHash()

	toK2 := spend(t, k1, coin, tx.Output{Value: 10, Owner: k2.PublicKey()})
	toK3 := spend(t, k1, coin, tx.Output{Value: 10, Owner: k3.PublicKey()})

	a := makeBlock(genesis, 2, k1.PublicKey(), 1, 1, toK2)
	b := makeBlock(genesis, 2, k1.PublicKey(), 1, 2, toK3)
	if err := c.ProcessBlock(a); err != nil {
		t.Fatal(err)
	}
	if err := c.ProcessBlock(b); err != nil {
		t.Fatalf("conflicting spend on a sibling branch: %v", err)
	}

	ra, _ := c.Record(a.Hash())
	rb, _ := c.Record(b.Hash())
	if !ra.Ledger().Has(toK2.OutPoint(0)) || ra.Ledger().Has(toK3.OutPoint(0)) {
		t.Error("branch a sees the wrong spend")
	}
	if !rb.Ledger().Has(toK3.OutPoint(0)) || rb.Ledger().Has(toK2.OutPoint(0)) {
		t.Error("branch b sees the wrong spend")
	}

	fork, err := c.ForkPoint(a.Hash(), b.Hash())
	if err != nil || fork.Hash() != genesis {
		t.Errorf("ForkPoint = %v, %v; want genesis", fork, err)
	}
}

func TestBestLedger_IsACopy(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10)
	ledger := c.BestLedger()
	ledger.Remove(genesisCoin(c))
	if !c.BestLedger().Has(genesisCoin(c)) {
		t.Error("mutating BestLedger result must not affect the chain")
	}
}

func TestWithClock(t *testing.T) {
	k1 := genKey(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := testChain(t, k1, 10, WithClock(func() time.Time { return fixed }))
	blk := makeBlock(c.TipHash(), 2, k1.PublicKey(), 1, 0)
	if err := c.ProcessBlock(blk); err != nil {
		t.Fatal(err)
	}
	rec, _ := c.Record(blk.Hash())
	if !rec.Created.Equal(fixed) {
		t.Errorf("Created = %v, want %v", rec.Created, fixed)
	}
}

func TestWithVerifier(t *testing.T) {
	k1, k2 := genKey(t), genKey(t)
	c := testChain(t, k1, 10, WithVerifier(crypto.VerifierFunc(func(_, _, _ []byte) bool { return true })))

	// Signed by the wrong key; the permissive verifier accepts it.
	forged := spend(t, k2, genesisCoin(c), tx.Output{Value: 10, Owner: k2.PublicKey()})
	if err := c.ProcessBlock(makeBlock(c.TipHash(), 2, k1.PublicKey(), 1, 0, forged)); err != nil {
		t.Errorf("custom verifier not used: %v", err)
	}
}

func TestWithMetrics(t *testing.T) {
	k1 := genKey(t)
	reg := prometheus.NewRegistry()
	c := testChain(t, k1, 10, WithMetrics(metrics.New(reg)))
	extend(t, c, c.GenesisHash(), 2, k1.PublicKey(), 0)
	c.ProcessBlock(makeBlock(types.Hash{0x01}, 2, k1.PublicKey(), 1, 0))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			name := f.GetName()
			for _, l := range m.GetLabel() {
				name += "/" + l.GetValue()
			}
			if m.GetCounter() != nil {
				got[name] = m.GetCounter().GetValue()
			} else if m.GetGauge() != nil {
				got[name] = m.GetGauge().GetValue()
			}
		}
	}
	if got["ledger_best_height"] != 3 {
		t.Errorf("best_height = %v, want 3", got["ledger_best_height"])
	}
	if got["ledger_blocks_rejected_total/unknown_parent"] != 1 {
		t.Errorf("unknown_parent rejections = %v, want 1", got["ledger_blocks_rejected_total/unknown_parent"])
	}
	if got["ledger_pool_size"] != 3 {
		t.Errorf("pool_size = %v, want 3 coinbases", got["ledger_pool_size"])
	}
}

func TestChain_Concurrent(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				tip := c.BestTip()
				blk := makeBlock(tip.Hash(), tip.Height+1, k1.PublicKey(), 1, uint64(w))
				c.ProcessBlock(blk)
				c.SubmitTx(&tx.Transaction{Version: 1, LockTime: uint64(w*100 + i)})
				c.BestLedger().Len()
			}
		}(w)
	}
	wg.Wait()

	if c.Height() < 21 {
		t.Errorf("Height = %d, want at least 21", c.Height())
	}
	if err := c.VerifyRecord(c.TipHash()); err != nil {
		t.Errorf("VerifyRecord: %v", err)
	}
}

type rejectNonce struct{ bad uint64 }

func (r rejectNonce) VerifyHeader(h *block.Header) error {
	if h.Nonce == r.bad {
		return errors.New("bad seal")
	}
	return nil
}

func TestWithHeaderVerifier(t *testing.T) {
	k1 := genKey(t)
	c := testChain(t, k1, 10, WithHeaderVerifier(rejectNonce{bad: 7}))
	if err := c.ProcessBlock(makeBlock(c.TipHash(), 2, k1.PublicKey(), 1, 7)); !errors.Is(err, ErrBadBlock) {
		t.Errorf("err = %v, want %v", err, ErrBadBlock)
	}
	if err := c.ProcessBlock(makeBlock(c.TipHash(), 2, k1.PublicKey(), 1, 8)); err != nil {
		t.Errorf("sealed block rejected: %v", err)
	}
}

func TestSubmitTx_BypassesPoolPolicy(t *testing.T) {
	k1, k2 := genKey(t), genKey(t)
	pool := mempool.New(0)
	pool.SetPolicy(&mempool.Policy{MaxTxSize: 50})
	c := testChain(t, k1, 10, WithPool(pool))

	if !pool.Has(c.BestBlock().Coinbase.Hash()) {
		t.Error("genesis coinbase should be pooled despite the policy")
	}

	// Far above the policy size, and not spendable either.
	wide := tx.NewBuilder().AddInput(types.Outpoint{TxID: types.Hash{0x42}})
	for i := 0; i < 100; i++ {
		wide.AddOutput(1, k2.PublicKey())
	}
	big := wide.Build()
	if err := c.SubmitTx(big); err != nil {
		t.Fatalf("SubmitTx: %v", err)
	}
	if !pool.Has(big.Hash()) {
		t.Error("submitted tx should be pooled without policy checks")
	}
	if err := pool.Accept(big); !errors.Is(err, mempool.ErrPolicy) {
		t.Errorf("Accept err = %v, want %v", err, mempool.ErrPolicy)
	}

	blk := makeBlock(c.TipHash(), 2, k2.PublicKey(), 1, 0)
	if err := c.ProcessBlock(blk); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	if !pool.Has(blk.Coinbase.Hash()) {
		t.Error("block coinbase should be pooled despite the policy")
	}
}
