package market

import (
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"paylock/core/events"
	"paylock/core/types"
	"paylock/crypto"
	"paylock/native/common"
)

// VaultAddress is the module account that escrows purchase funds and backs
// every accrued balance.
var VaultAddress = crypto.ModuleAddress("market/vault")

type engineState interface {
	MarketParamsGet() (*Params, bool, error)
	MarketParamsPut(params *Params) error
	MarketContentTypeGet(id uint64) (*ContentType, bool, error)
	MarketContentTypePut(contentType *ContentType) error
	MarketContentGet(id uint64) (*Content, bool, error)
	MarketContentPut(content *Content) error
	MarketBuyerGet(contentID uint64, buyer [20]byte) (*BuyerState, bool, error)
	MarketBuyerPut(state *BuyerState) error
	MarketBuyerDelete(contentID uint64, buyer [20]byte) error
	MarketOwnersGet(contentID uint64) ([][20]byte, error)
	MarketOwnersPut(contentID uint64, owners [][20]byte) error
	MarketBuyersGet(contentID uint64) ([][20]byte, error)
	MarketBuyersPut(contentID uint64, buyers [][20]byte) error
	MarketRefundedGet(contentID uint64) ([][20]byte, error)
	MarketRefundedPut(contentID uint64, buyers [][20]byte) error
	MarketUserBalancesGet(addr [20]byte) (*UserBalances, error)
	MarketUserBalancesPut(addr [20]byte, balances *UserBalances) error
	MarketProtocolBalancesGet() (*ProtocolBalances, error)
	MarketProtocolBalancesPut(balances *ProtocolBalances) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// TransferObserver is notified after funds leave the vault. It runs while the
// originating operation still holds the engine.
type TransferObserver func(to [20]byte, amount *big.Int)

// Engine wires the content marketplace business logic with persistence and
// event emission.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	nowFn    func() int64
	observer TransferObserver

	entered atomic.Bool
	pending []*types.Event
}

// NewEngine constructs a market engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetTransferObserver registers a callback invoked after each vault payout.
func (e *Engine) SetTransferObserver(observer TransferObserver) { e.observer = observer }

func (e *Engine) now() uint64 {
	var ts int64
	if e == nil || e.nowFn == nil {
		ts = time.Now().Unix()
	} else {
		ts = e.nowFn()
	}
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) record(evt *types.Event) {
	if evt == nil {
		return
	}
	e.pending = append(e.pending, evt)
}

// execute runs fn as one atomic, non-reentrant operation. State written by fn
// is reverted and its events dropped when fn fails.
func (e *Engine) execute(fn func() error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	defer e.entered.Store(false)

	snapshot := e.state.Snapshot()
	e.pending = nil
	if err := fn(); err != nil {
		e.state.RevertToSnapshot(snapshot)
		e.pending = nil
		return err
	}
	emitted := e.pending
	e.pending = nil
	for _, evt := range emitted {
		if e.emitter != nil {
			e.emitter.Emit(WrapEvent(evt))
		}
	}
	return nil
}

func (e *Engine) read() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) loadParams() (*Params, error) {
	params, ok, err := e.state.MarketParamsGet()
	if err != nil {
		return nil, err
	}
	if !ok || params == nil {
		return nil, fmt.Errorf("market engine: params not initialised")
	}
	if params.MinPrice == nil {
		params.MinPrice = big.NewInt(0)
	}
	return params, nil
}

func (e *Engine) requireActive(params *Params) error {
	view := common.PauseFunc(func(module string) bool {
		return module == common.ModuleMarket && params.Paused
	})
	return common.Guard(view, common.ModuleMarket)
}

func (e *Engine) requireAdmin(params *Params, caller [20]byte) error {
	if isZeroAddress(params.Admin) || caller != params.Admin {
		return ErrNotAdmin
	}
	return nil
}

func (e *Engine) loadContent(id uint64) (*Content, error) {
	content, ok, err := e.state.MarketContentGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || content == nil || !content.Exists {
		return nil, fmt.Errorf("%w: %d", ErrContentNotFound, id)
	}
	return content, nil
}

func (e *Engine) loadBuyer(contentID uint64, buyer [20]byte) (*BuyerState, error) {
	state, ok, err := e.state.MarketBuyerGet(contentID, buyer)
	if err != nil {
		return nil, err
	}
	if !ok || state == nil {
		return &BuyerState{ContentID: contentID, Buyer: buyer, Price: big.NewInt(0)}, nil
	}
	return state, nil
}

// hasKept reports whether addr holds a kept purchase of contentID.
func (e *Engine) hasKept(contentID uint64, addr [20]byte) (bool, error) {
	if isZeroAddress(addr) {
		return false, nil
	}
	state, ok, err := e.state.MarketBuyerGet(contentID, addr)
	if err != nil {
		return false, err
	}
	return ok && state != nil && state.HasKept, nil
}

// qualifiedReferrer returns addr when it is the creator or a keeper of the
// content, and the zero address otherwise.
func (e *Engine) qualifiedReferrer(content *Content, addr [20]byte) ([20]byte, error) {
	if isZeroAddress(addr) {
		return [20]byte{}, nil
	}
	if addr == content.Creator {
		return addr, nil
	}
	kept, err := e.hasKept(content.ID, addr)
	if err != nil {
		return [20]byte{}, err
	}
	if !kept {
		return [20]byte{}, nil
	}
	return addr, nil
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (e *Engine) balanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return cloneBigInt(ensureAccount(acc).Balance), nil
}

// requireFunds checks that caller can cover value before anything is written.
func (e *Engine) requireFunds(caller [20]byte, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	balance, err := e.balanceOf(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(value) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, balance, value)
	}
	return nil
}

func (e *Engine) move(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("market: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromAcc.Balance, amt)
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(to[:], toAcc); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// collect moves the value bound to a call into the vault.
func (e *Engine) collect(caller [20]byte, value *big.Int) error {
	return e.move(caller, VaultAddress, value)
}

// payout moves funds out of the vault. Callers must have finished writing
// their own state before paying out.
func (e *Engine) payout(to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if err := e.move(VaultAddress, to, amt); err != nil {
		return err
	}
	if e.observer != nil {
		e.observer(to, new(big.Int).Set(amt))
	}
	return nil
}

func (e *Engine) creditProtocol(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	balances, err := e.state.MarketProtocolBalancesGet()
	if err != nil {
		return err
	}
	balances = balances.Clone()
	balances.Accumulated.Add(balances.Accumulated, amount)
	return e.state.MarketProtocolBalancesPut(balances)
}

type ledgerKind uint8

const (
	ledgerCreator ledgerKind = iota
	ledgerReferral
	ledgerOwner
)

func (e *Engine) creditUser(addr [20]byte, kind ledgerKind, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	balances, err := e.state.MarketUserBalancesGet(addr)
	if err != nil {
		return err
	}
	balances = balances.Clone()
	switch kind {
	case ledgerCreator:
		balances.Creator.Add(balances.Creator, amount)
	case ledgerReferral:
		balances.Referral.Add(balances.Referral, amount)
	case ledgerOwner:
		balances.Owner.Add(balances.Owner, amount)
	default:
		return fmt.Errorf("market: unknown ledger %d", kind)
	}
	return e.state.MarketUserBalancesPut(addr, balances)
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func removeAddress(list [][20]byte, addr [20]byte) ([][20]byte, bool) {
	for i, entry := range list {
		if entry == addr {
			last := len(list) - 1
			list[i] = list[last]
			return list[:last], true
		}
	}
	return list, false
}
