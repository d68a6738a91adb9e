package market

import (
	"fmt"
	"math/big"
)

// settle credits the split of one keep to the pull ledgers. It must run before
// the buyer is marked kept and appended to the owner list.
func (e *Engine) settle(content *Content, state *BuyerState) (*Settlement, error) {
	price := cloneBigInt(state.Price)
	split := SplitPayment(price, content.ShareOwnFeeBps)
	owners, err := e.state.MarketOwnersGet(content.ID)
	if err != nil {
		return nil, err
	}
	settlement := &Settlement{
		ContentID:       content.ID,
		Buyer:           state.Buyer,
		KeepNonce:       uint64(len(owners)),
		Price:           price,
		Split:           split,
		PerOwnerPayment: big.NewInt(0),
		ForfeitedDust:   big.NewInt(0),
		PreviousPrice:   cloneBigInt(content.ActualPrice),
	}

	if err := e.creditProtocol(split.Protocol); err != nil {
		return nil, err
	}

	creatorTotal := new(big.Int).Set(split.Creator)
	referrer, err := e.qualifiedReferrer(content, state.Referrer)
	if err != nil {
		return nil, err
	}
	if isZeroAddress(referrer) {
		settlement.ReferrerRedirect = split.Referrer.Sign() > 0
		creatorTotal.Add(creatorTotal, split.Referrer)
	} else {
		settlement.Referrer = referrer
		if err := e.creditUser(referrer, ledgerReferral, split.Referrer); err != nil {
			return nil, err
		}
	}

	if len(owners) == 0 {
		creatorTotal.Add(creatorTotal, split.Owner)
	} else {
		share, dust := perOwnerShare(split.Owner, uint64(len(owners)))
		settlement.PerOwnerPayment = share
		settlement.ForfeitedDust = dust
		for _, owner := range owners {
			if err := e.creditUser(owner, ledgerOwner, share); err != nil {
				return nil, err
			}
		}
	}

	if err := e.creditUser(content.Creator, ledgerCreator, creatorTotal); err != nil {
		return nil, err
	}
	settlement.CreatorCredited = creatorTotal
	settlement.NewActualPrice = NextPrice(content.ActualPrice, content.PriceStepBps)
	return settlement, nil
}

// DeleteContent buys the content back from every owner at the price they paid,
// refunds every open purchase and tombstones the record. value must cover the
// owner refunds; anything above that accrues to the protocol. Deletion is
// allowed while the module is paused.
func (e *Engine) DeleteContent(caller [20]byte, contentID uint64, value *big.Int) (*Deletion, error) {
	paid := cloneBigInt(value)
	var deletion *Deletion
	err := e.execute(func() error {
		content, err := e.loadContent(contentID)
		if err != nil {
			return err
		}
		if caller != content.Creator {
			return ErrNotCreator
		}
		cost, err := e.deleteCost(contentID)
		if err != nil {
			return err
		}
		if paid.Cmp(cost) < 0 {
			return fmt.Errorf("%w: paid %s, cost %s", ErrInsufficientPayment, paid, cost)
		}
		if err := e.requireFunds(caller, paid); err != nil {
			return err
		}
		if err := e.collect(caller, paid); err != nil {
			return err
		}

		owners, err := e.state.MarketOwnersGet(contentID)
		if err != nil {
			return err
		}
		buyers, err := e.state.MarketBuyersGet(contentID)
		if err != nil {
			return err
		}

		type refund struct {
			to     [20]byte
			amount *big.Int
		}
		refunds := make([]refund, 0, len(owners)+len(buyers))
		deletion = &Deletion{
			ContentID:    contentID,
			OwnerRefunds: big.NewInt(0),
			BuyerRefunds: big.NewInt(0),
			Excess:       new(big.Int).Sub(paid, cost),
		}
		for _, owner := range owners {
			state, ok, err := e.state.MarketBuyerGet(contentID, owner)
			if err != nil {
				return err
			}
			if !ok || state == nil {
				continue
			}
			amount := cloneBigInt(state.Price)
			refunds = append(refunds, refund{to: owner, amount: amount})
			deletion.OwnerRefunds.Add(deletion.OwnerRefunds, amount)
			deletion.OwnersRefunded++
			if err := e.state.MarketBuyerDelete(contentID, owner); err != nil {
				return err
			}
		}
		openTotal := big.NewInt(0)
		for _, buyer := range buyers {
			state, ok, err := e.state.MarketBuyerGet(contentID, buyer)
			if err != nil {
				return err
			}
			if !ok || state == nil {
				continue
			}
			if state.Status() == StatusPurchased {
				amount := cloneBigInt(state.Price)
				refunds = append(refunds, refund{to: buyer, amount: amount})
				openTotal.Add(openTotal, amount)
				deletion.BuyersRefunded++
			}
			if err := e.state.MarketBuyerDelete(contentID, buyer); err != nil {
				return err
			}
		}
		deletion.BuyerRefunds = openTotal

		refunded, err := e.state.MarketRefundedGet(contentID)
		if err != nil {
			return err
		}
		for _, buyer := range refunded {
			if err := e.state.MarketBuyerDelete(contentID, buyer); err != nil {
				return err
			}
		}

		vault, err := e.balanceOf(VaultAddress)
		if err != nil {
			return err
		}
		required := new(big.Int).Add(deletion.OwnerRefunds, openTotal)
		if vault.Cmp(required) < 0 {
			return fmt.Errorf("%w: vault %s, refunds %s", ErrInsufficientBalance, vault, required)
		}

		tombstone := &Content{
			ID:          contentID,
			ContentType: content.ContentType,
			BasePrice:   big.NewInt(0),
			ActualPrice: big.NewInt(0),
			Creator:     content.Creator,
			CreatedAt:   content.CreatedAt,
		}
		if err := e.state.MarketContentPut(tombstone); err != nil {
			return err
		}
		if err := e.state.MarketOwnersPut(contentID, nil); err != nil {
			return err
		}
		if err := e.state.MarketBuyersPut(contentID, nil); err != nil {
			return err
		}
		if err := e.state.MarketRefundedPut(contentID, nil); err != nil {
			return err
		}
		if err := e.creditProtocol(deletion.Excess); err != nil {
			return err
		}

		for _, r := range refunds {
			if err := e.payout(r.to, r.amount); err != nil {
				return err
			}
		}
		e.record(ContentDeletedEvent(deletion))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deletion, nil
}
