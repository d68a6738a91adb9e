package market

import (
	"fmt"
	"math/big"
)

// BuyContent opens a purchase at the attached value. price must equal value
// exactly; any amount above the listing price becomes the buyer's settled
// price.
func (e *Engine) BuyContent(caller [20]byte, contentID uint64, referrer [20]byte, price, value *big.Int) (*BuyerState, error) {
	paid := cloneBigInt(value)
	var purchase *BuyerState
	err := e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireActive(params); err != nil {
			return err
		}
		content, err := e.loadContent(contentID)
		if err != nil {
			return err
		}
		existing, err := e.loadBuyer(contentID, caller)
		if err != nil {
			return err
		}
		if existing.HasPurchased {
			return ErrAlreadyPurchased
		}
		if caller == content.Creator {
			return ErrCreatorCannotBuy
		}
		listing := cloneBigInt(content.ActualPrice)
		if paid.Cmp(listing) < 0 {
			return fmt.Errorf("%w: paid %s, listing %s", ErrInsufficientPayment, paid, listing)
		}
		if price == nil || price.Cmp(paid) != 0 {
			return fmt.Errorf("%w: price %s, paid %s", ErrPriceMismatch, cloneBigInt(price), paid)
		}
		if err := e.requireFunds(caller, paid); err != nil {
			return err
		}
		resolved, err := e.qualifiedReferrer(content, referrer)
		if err != nil {
			return err
		}
		if err := e.collect(caller, paid); err != nil {
			return err
		}

		purchase = &BuyerState{
			ContentID:    contentID,
			Buyer:        caller,
			HasPurchased: true,
			Price:        paid,
			PurchaseTime: e.now(),
			Referrer:     resolved,
		}
		if err := e.state.MarketBuyerPut(purchase); err != nil {
			return err
		}
		buyers, err := e.state.MarketBuyersGet(contentID)
		if err != nil {
			return err
		}
		if err := e.state.MarketBuyersPut(contentID, append(buyers, caller)); err != nil {
			return err
		}
		content.Purchases++
		if err := e.state.MarketContentPut(content); err != nil {
			return err
		}
		e.record(ContentPurchasedEvent(contentID, caller, listing, paid, resolved))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase.Clone(), nil
}

// requireOpen checks that state is an unresolved purchase.
func requireOpen(state *BuyerState) error {
	switch {
	case state == nil || !state.HasPurchased:
		return ErrNotPurchased
	case state.HasKept:
		return ErrAlreadyKept
	case state.HasRefunded:
		return ErrAlreadyRefunded
	}
	return nil
}

func refundDeadline(state *BuyerState, limit uint64) uint64 {
	deadline := state.PurchaseTime + limit
	if deadline < state.PurchaseTime {
		return ^uint64(0)
	}
	return deadline
}

// RefundContent reverses an open purchase inside the refund window. The buyer
// receives the price less the protocol fee.
func (e *Engine) RefundContent(caller [20]byte, contentID uint64) (*big.Int, error) {
	var returned *big.Int
	err := e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireActive(params); err != nil {
			return err
		}
		content, err := e.loadContent(contentID)
		if err != nil {
			return err
		}
		state, err := e.loadBuyer(contentID, caller)
		if err != nil {
			return err
		}
		if err := requireOpen(state); err != nil {
			return err
		}
		if e.now() > refundDeadline(state, params.RefundTimeLimit) {
			return ErrRefundPeriodExpired
		}

		var fee *big.Int
		returned, fee = RefundSplit(state.Price)
		state.HasRefunded = true
		if err := e.state.MarketBuyerPut(state); err != nil {
			return err
		}
		buyers, err := e.state.MarketBuyersGet(contentID)
		if err != nil {
			return err
		}
		buyers, _ = removeAddress(buyers, caller)
		if err := e.state.MarketBuyersPut(contentID, buyers); err != nil {
			return err
		}
		refunded, err := e.state.MarketRefundedGet(contentID)
		if err != nil {
			return err
		}
		if err := e.state.MarketRefundedPut(contentID, append(refunded, caller)); err != nil {
			return err
		}
		content.Refunds++
		if err := e.state.MarketContentPut(content); err != nil {
			return err
		}
		if err := e.creditProtocol(fee); err != nil {
			return err
		}
		if err := e.payout(caller, returned); err != nil {
			return err
		}
		e.record(ContentRefundedEvent(contentID, caller, returned, fee))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

// KeepContent confirms the caller's own purchase.
func (e *Engine) KeepContent(caller [20]byte, contentID uint64) (*Settlement, error) {
	return e.KeepContentFor(caller, contentID, caller)
}

// KeepContentFor confirms buyer's purchase. A caller other than the buyer may
// only do so after the buyer's refund window has passed.
func (e *Engine) KeepContentFor(caller [20]byte, contentID uint64, buyer [20]byte) (*Settlement, error) {
	var settlement *Settlement
	err := e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireActive(params); err != nil {
			return err
		}
		content, err := e.loadContent(contentID)
		if err != nil {
			return err
		}
		state, err := e.loadBuyer(contentID, buyer)
		if err != nil {
			return err
		}
		if err := requireOpen(state); err != nil {
			return err
		}
		if caller != buyer && e.now() <= refundDeadline(state, params.RefundTimeLimit) {
			return ErrRefundPeriodNotExpired
		}

		settlement, err = e.settle(content, state)
		if err != nil {
			return err
		}
		content.Keeps++
		content.ActualPrice = settlement.NewActualPrice
		if err := e.state.MarketContentPut(content); err != nil {
			return err
		}
		state.HasKept = true
		if err := e.state.MarketBuyerPut(state); err != nil {
			return err
		}
		owners, err := e.state.MarketOwnersGet(contentID)
		if err != nil {
			return err
		}
		if err := e.state.MarketOwnersPut(contentID, append(owners, buyer)); err != nil {
			return err
		}
		buyers, err := e.state.MarketBuyersGet(contentID)
		if err != nil {
			return err
		}
		buyers, _ = removeAddress(buyers, buyer)
		if err := e.state.MarketBuyersPut(contentID, buyers); err != nil {
			return err
		}
		e.record(ContentKeptEvent(settlement))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Purchase returns the buyer state for (contentID, buyer). Unknown pairs
// report StatusNone.
func (e *Engine) Purchase(contentID uint64, buyer [20]byte) (*BuyerState, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	state, err := e.loadBuyer(contentID, buyer)
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}
