package core

import (
	"fmt"

	"paylock/core/types"
	"paylock/crypto"
	"paylock/native/market"
)

type marketCall func() (interface{}, error)

// prepare decodes the payload of tx and binds it to the matching engine
// operation. Decoding failures reject the transaction at admission.
func (n *Node) prepare(tx *types.Transaction, sender [20]byte) (marketCall, error) {
	e := n.market
	value := tx.ValueOrZero()
	switch tx.Type {
	case types.TxTypeCreateContent:
		var p CreateContentPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) {
			return e.CreateContent(sender, market.CreateContentParams{
				ContentType:    p.ContentType,
				ContentRef:     p.ContentRef,
				PreviewRef:     p.PreviewRef,
				BasePrice:      p.BasePrice,
				ShareOwnFeeBps: p.ShareOwnFeeBps,
				PriceStepBps:   p.PriceStepBps,
				NSFW:           p.NSFW,
			}, value)
		}, nil
	case types.TxTypeBuyContent:
		var p BuyContentPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		referrer, err := parseOptionalAddress(p.Referrer)
		if err != nil {
			return nil, err
		}
		return func() (interface{}, error) {
			return e.BuyContent(sender, p.ContentID, referrer, p.Price, value)
		}, nil
	case types.TxTypeRefundContent:
		var p ContentPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return e.RefundContent(sender, p.ContentID) }, nil
	case types.TxTypeKeepContent:
		var p ContentPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return e.KeepContent(sender, p.ContentID) }, nil
	case types.TxTypeKeepContentFor:
		var p KeepContentForPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		buyer, err := crypto.ParseAddress(p.Buyer)
		if err != nil {
			return nil, fmt.Errorf("%w: buyer: %v", ErrInvalidPayload, err)
		}
		return func() (interface{}, error) { return e.KeepContentFor(sender, p.ContentID, buyer) }, nil
	case types.TxTypeDeleteContent:
		var p ContentPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return e.DeleteContent(sender, p.ContentID, value) }, nil
	case types.TxTypeChangeNSFW:
		var p ChangeNSFWPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) {
			return nil, e.ChangeNSFWStatus(sender, p.ContentID, p.NSFW)
		}, nil
	case types.TxTypeWithdrawUserFees:
		var p AmountPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return nil, e.WithdrawUserFees(sender, p.Amount) }, nil
	case types.TxTypeWithdrawProtocolFees:
		var p AmountPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return nil, e.WithdrawProtocolFees(sender, p.Amount) }, nil
	case types.TxTypeCreateContentType:
		var p ContentTypePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return e.CreateContentType(sender, p.Name) }, nil
	case types.TxTypeUpdateContentType:
		var p ContentTypePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return e.UpdateContentType(sender, p.ID, p.Name, p.Enabled) }, nil
	case types.TxTypePause:
		return func() (interface{}, error) { return nil, e.Pause(sender) }, nil
	case types.TxTypeUnpause:
		return func() (interface{}, error) { return nil, e.Unpause(sender) }, nil
	case types.TxTypeSetMinPrice:
		var p AmountPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return nil, e.SetMinPrice(sender, p.Amount) }, nil
	case types.TxTypeSetRefundTimeLimit:
		var p RefundTimeLimitPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return func() (interface{}, error) { return nil, e.SetRefundTimeLimit(sender, p.Seconds) }, nil
	case types.TxTypeTransferAdmin:
		var p TransferAdminPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		next, err := crypto.ParseAddress(p.Admin)
		if err != nil {
			return nil, fmt.Errorf("%w: admin: %v", ErrInvalidPayload, err)
		}
		return func() (interface{}, error) { return nil, e.TransferAdmin(sender, next) }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
	}
}
