package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"paylock/core/events"
	"paylock/core/genesis"
	"paylock/core/state"
	"paylock/core/types"
	"paylock/crypto"
	"paylock/native/common"
	"paylock/native/market"
	"paylock/storage"
)

var sequenceKey = []byte("node/sequence")

// Receipt reports the outcome of an admitted transaction. A failed module
// call still consumes the nonce; Err carries the module error.
type Receipt struct {
	TxHash   [32]byte
	Sender   [20]byte
	Type     types.TxType
	Nonce    uint64
	Sequence uint64
	Success  bool
	Err      error
	Result   interface{}
	Events   []*types.Event
}

// Node is the central controller. It admits signed transactions, applies them
// to the market engine one at a time and commits the result.
type Node struct {
	mu     sync.Mutex
	db     storage.Database
	state  *state.Manager
	market *market.Engine
	buffer *events.Recorder
	sinks  events.Emitter
	logger *slog.Logger
	nowFn  func() time.Time

	quota      common.Quota
	quotaUsage map[[20]byte]common.QuotaNow
}

// NewNode opens the state stored in db. When the market has not been
// initialised yet the genesis spec is applied and committed; it is ignored
// otherwise.
func NewNode(db storage.Database, spec *genesis.Spec, logger *slog.Logger) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		db:         db,
		state:      state.NewManager(db),
		market:     market.NewEngine(),
		buffer:     &events.Recorder{},
		sinks:      events.NoopEmitter{},
		logger:     logger.With(slog.String("component", "node")),
		nowFn:      time.Now,
		quotaUsage: make(map[[20]byte]common.QuotaNow),
	}
	n.market.SetState(n.state)
	n.market.SetEmitter(n.buffer)
	n.market.SetNowFunc(func() int64 { return n.nowFn().Unix() })
	n.market.SetTransferObserver(func(to [20]byte, amount *big.Int) {
		n.buffer.Emit(events.Transfer{From: market.VaultAddress, To: to, Amount: amount})
	})

	if _, err := n.market.Params(); err == nil {
		return n, nil
	}
	if spec == nil {
		return nil, ErrNotInitialised
	}
	if err := n.applyGenesis(spec); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) applyGenesis(spec *genesis.Spec) error {
	g, err := spec.Build()
	if err != nil {
		return fmt.Errorf("core: genesis: %w", err)
	}
	if err := n.market.InitGenesis(g.Market); err != nil {
		n.state.Discard()
		return fmt.Errorf("core: genesis: %w", err)
	}
	for _, alloc := range g.Alloc {
		if err := n.state.Credit(alloc.Address[:], alloc.Amount); err != nil {
			n.state.Discard()
			return fmt.Errorf("core: genesis alloc %s: %w", crypto.FormatAddress(alloc.Address), err)
		}
	}
	if err := n.state.Commit(); err != nil {
		return fmt.Errorf("core: commit genesis: %w", err)
	}
	n.buffer.Drain()
	n.logger.Info("genesis applied",
		slog.String("admin", crypto.FormatAddress(g.Market.Admin)),
		slog.Int("allocations", len(g.Alloc)),
		slog.Int("content_types", len(market.BuiltinContentTypes)+len(g.Market.ContentTypes)))
	return nil
}

// SetEmitter registers the sink that receives committed events.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if emitter == nil {
		n.sinks = events.NoopEmitter{}
		return
	}
	n.sinks = emitter
}

// SetNowFunc overrides the clock. Intended for tests.
func (n *Node) SetNowFunc(now func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if now == nil {
		n.nowFn = time.Now
		return
	}
	n.nowFn = now
}

// SetQuota configures the per-sender admission quota.
func (n *Node) SetQuota(q common.Quota) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.quota = q
	n.quotaUsage = make(map[[20]byte]common.QuotaNow)
}

// SubmitTransaction admits, applies and commits one transaction. The
// returned error is non-nil only when the transaction was rejected at
// admission; module failures are reported through the receipt.
func (n *Node) SubmitTransaction(tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrInvalidTransaction
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
	}
	if tx.Value != nil && tx.Value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value", ErrInvalidTransaction)
	}
	if tx.Value != nil && tx.Value.Sign() > 0 && !IsPayable(tx.Type) {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedValue, tx.Type)
	}
	fromBytes, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var sender [20]byte
	copy(sender[:], fromBytes)
	hashBytes, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	var hash [32]byte
	copy(hash[:], hashBytes)

	call, err := n.prepare(tx, sender)
	if err != nil {
		return nil, err
	}

	account, err := n.state.GetAccount(sender[:])
	if err != nil {
		return nil, err
	}
	if tx.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidNonce, account.Nonce, tx.Nonce)
	}
	var usage common.QuotaNow
	if n.quota.Enabled() {
		window := n.quota.Window(n.nowFn().Unix())
		usage, err = common.CheckQuota(n.quota, window, n.quotaUsage[sender], 1, tx.ValueOrZero())
		if err != nil {
			return nil, err
		}
	}

	account.Nonce++
	if err := n.state.PutAccount(sender[:], account); err != nil {
		n.state.Discard()
		return nil, err
	}
	sequence, err := n.nextSequence()
	if err != nil {
		n.state.Discard()
		return nil, err
	}

	n.buffer.Drain()
	result, callErr := call()
	emitted := n.buffer.Drain()
	if callErr != nil {
		emitted = nil
		result = nil
	}

	if err := n.state.Commit(); err != nil {
		n.state.Discard()
		return nil, fmt.Errorf("core: commit: %w", err)
	}
	if n.quota.Enabled() {
		n.quotaUsage[sender] = usage
	}

	receipt := &Receipt{
		TxHash:   hash,
		Sender:   sender,
		Type:     tx.Type,
		Nonce:    tx.Nonce,
		Sequence: sequence,
		Success:  callErr == nil,
		Err:      callErr,
		Result:   result,
	}
	for i, evt := range emitted {
		payload, ok := evt.(events.Payload)
		if !ok {
			continue
		}
		wrapped := events.TxEvent{Sequence: sequence, Index: i, TxHash: hash, Sender: sender, Inner: payload.Event()}
		receipt.Events = append(receipt.Events, wrapped.Event())
		n.sinks.Emit(wrapped)
	}

	attrs := []any{
		slog.String("type", tx.Type.String()),
		slog.String("sender", crypto.FormatAddress(sender)),
		slog.Uint64("nonce", tx.Nonce),
		slog.Uint64("sequence", sequence),
	}
	if callErr != nil {
		attrs = append(attrs, slog.String("class", market.Classify(callErr).String()), slog.Any("error", callErr))
		n.logger.Warn("transaction failed", attrs...)
	} else {
		n.logger.Info("transaction applied", append(attrs, slog.Int("events", len(receipt.Events)))...)
	}
	return receipt, nil
}

func (n *Node) nextSequence() (uint64, error) {
	var seq uint64
	if _, err := n.state.KVGet(sequenceKey, &seq); err != nil {
		return 0, err
	}
	seq++
	if err := n.state.KVPut(sequenceKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// Sequence returns the number of admitted transactions.
func (n *Node) Sequence() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var seq uint64
	if _, err := n.state.KVGet(sequenceKey, &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// Account returns the native account of addr.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr[:])
}

// Market exposes read access to the engine under the node lock.
func (n *Node) Market(fn func(*market.Engine) error) error {
	if fn == nil {
		return errors.New("core: nil market reader")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn(n.market)
}
