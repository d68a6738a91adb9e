package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"paylock/core/types"
)

type storedAccount struct {
	Nonce   uint64
	Balance *uint256.Int
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return buf
}

// GetAccount returns the account stored under addr. Unknown addresses yield a
// zero account.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("address must not be empty")
	}
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	account := &types.Account{Balance: big.NewInt(0)}
	if !ok {
		return account, nil
	}
	account.Nonce = stored.Nonce
	if stored.Balance != nil {
		account.Balance = stored.Balance.ToBig()
	}
	return account, nil
}

// PutAccount persists the provided account state under the supplied address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("nil account")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("%w: negative balance", ErrAmountOverflow)
	}
	value, overflow := uint256.FromBig(balance)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrAmountOverflow)
	}
	return m.KVPut(accountKey(addr), &storedAccount{Nonce: account.Nonce, Balance: value})
}

// Credit adds amount to the balance of addr. It is used for genesis
// allocations.
func (m *Manager) Credit(addr []byte, amount *big.Int) error {
	if err := checkAmount("credit", amount); err != nil {
		return err
	}
	account, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return m.PutAccount(addr, account)
}
