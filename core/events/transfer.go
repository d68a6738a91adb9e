package events

import (
	"math/big"

	"paylock/core/types"
	"paylock/crypto"
)

const (
	// TypeTransfer is emitted for native balance movements out of a module
	// account.
	TypeTransfer = "transfer.native"
)

type Transfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"from":   crypto.FormatAddress(e.From),
		"to":     crypto.FormatAddress(e.To),
		"amount": amount,
	}}
}
