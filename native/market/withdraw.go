package market

import (
	"fmt"
	"math/big"
)

const (
	withdrawKindProtocol = "protocol"
	withdrawKindUser     = "user"
)

func (e *Engine) requireWithdrawable(amount, available *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if amount.Cmp(available) > 0 {
		return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientAccrued, amount, available)
	}
	vault, err := e.balanceOf(VaultAddress)
	if err != nil {
		return err
	}
	if vault.Cmp(amount) < 0 {
		return fmt.Errorf("%w: vault %s, requested %s", ErrInsufficientBalance, vault, amount)
	}
	return nil
}

// WithdrawProtocolFees pays accrued protocol revenue to the administrator.
func (e *Engine) WithdrawProtocolFees(caller [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	return e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(params, caller); err != nil {
			return err
		}
		balances, err := e.state.MarketProtocolBalancesGet()
		if err != nil {
			return err
		}
		balances = balances.Clone()
		if err := e.requireWithdrawable(amt, balances.Available()); err != nil {
			return err
		}
		balances.Withdrawn.Add(balances.Withdrawn, amt)
		if err := e.state.MarketProtocolBalancesPut(balances); err != nil {
			return err
		}
		if err := e.payout(caller, amt); err != nil {
			return err
		}
		e.record(FeesWithdrawnEvent(caller, withdrawKindProtocol, amt))
		return nil
	})
}

// WithdrawUserFees pays out of the caller's combined creator, referral and
// owner accruals.
func (e *Engine) WithdrawUserFees(caller [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	return e.execute(func() error {
		balances, err := e.state.MarketUserBalancesGet(caller)
		if err != nil {
			return err
		}
		balances = balances.Clone()
		if err := e.requireWithdrawable(amt, balances.Available()); err != nil {
			return err
		}
		balances.Withdrawn.Add(balances.Withdrawn, amt)
		if err := e.state.MarketUserBalancesPut(caller, balances); err != nil {
			return err
		}
		if err := e.payout(caller, amt); err != nil {
			return err
		}
		e.record(FeesWithdrawnEvent(caller, withdrawKindUser, amt))
		return nil
	})
}

// UserBalances returns the accrual ledgers of addr.
func (e *Engine) UserBalances(addr [20]byte) (*UserBalances, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	balances, err := e.state.MarketUserBalancesGet(addr)
	if err != nil {
		return nil, err
	}
	return balances.Clone(), nil
}

// ProtocolBalances returns the protocol revenue ledger.
func (e *Engine) ProtocolBalances() (*ProtocolBalances, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	balances, err := e.state.MarketProtocolBalancesGet()
	if err != nil {
		return nil, err
	}
	return balances.Clone(), nil
}

// VaultBalance returns the funds held by the module.
func (e *Engine) VaultBalance() (*big.Int, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	return e.balanceOf(VaultAddress)
}
