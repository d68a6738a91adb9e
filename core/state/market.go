package state

import (
	"fmt"
	"math/big"

	"paylock/native/market"
)

func (m *Manager) MarketParamsGet() (*market.Params, bool, error) {
	params := new(market.Params)
	ok, err := m.KVGet(marketParamsKey, params)
	if err != nil || !ok {
		return nil, ok, err
	}
	if params.MinPrice == nil {
		params.MinPrice = big.NewInt(0)
	}
	return params, true, nil
}

func (m *Manager) MarketParamsPut(params *market.Params) error {
	if params == nil {
		return fmt.Errorf("market: nil params")
	}
	if err := checkAmount("min price", params.MinPrice); err != nil {
		return err
	}
	return m.KVPut(marketParamsKey, params)
}

func (m *Manager) MarketContentTypeGet(id uint64) (*market.ContentType, bool, error) {
	contentType := new(market.ContentType)
	ok, err := m.KVGet(MarketContentTypeKey(id), contentType)
	if err != nil || !ok {
		return nil, ok, err
	}
	return contentType, true, nil
}

func (m *Manager) MarketContentTypePut(contentType *market.ContentType) error {
	if contentType == nil {
		return fmt.Errorf("market: nil content type")
	}
	return m.KVPut(MarketContentTypeKey(contentType.ID), contentType)
}

func (m *Manager) MarketContentGet(id uint64) (*market.Content, bool, error) {
	content := new(market.Content)
	ok, err := m.KVGet(MarketContentKey(id), content)
	if err != nil || !ok {
		return nil, ok, err
	}
	if content.BasePrice == nil {
		content.BasePrice = big.NewInt(0)
	}
	if content.ActualPrice == nil {
		content.ActualPrice = big.NewInt(0)
	}
	return content, true, nil
}

func (m *Manager) MarketContentPut(content *market.Content) error {
	if content == nil {
		return fmt.Errorf("market: nil content")
	}
	if err := checkAmount("base price", content.BasePrice); err != nil {
		return err
	}
	if err := checkAmount("actual price", content.ActualPrice); err != nil {
		return err
	}
	return m.KVPut(MarketContentKey(content.ID), content)
}

func (m *Manager) MarketBuyerGet(contentID uint64, buyer [20]byte) (*market.BuyerState, bool, error) {
	state := new(market.BuyerState)
	ok, err := m.KVGet(MarketBuyerKey(contentID, buyer), state)
	if err != nil || !ok {
		return nil, ok, err
	}
	if state.Price == nil {
		state.Price = big.NewInt(0)
	}
	return state, true, nil
}

func (m *Manager) MarketBuyerPut(state *market.BuyerState) error {
	if state == nil {
		return fmt.Errorf("market: nil buyer state")
	}
	if err := checkAmount("purchase price", state.Price); err != nil {
		return err
	}
	return m.KVPut(MarketBuyerKey(state.ContentID, state.Buyer), state)
}

func (m *Manager) MarketBuyerDelete(contentID uint64, buyer [20]byte) error {
	return m.KVDelete(MarketBuyerKey(contentID, buyer))
}

func (m *Manager) addressList(key []byte) ([][20]byte, error) {
	var list [][20]byte
	if err := m.KVGetList(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) putAddressList(key []byte, list [][20]byte) error {
	if len(list) == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, list)
}

func (m *Manager) MarketOwnersGet(contentID uint64) ([][20]byte, error) {
	return m.addressList(MarketOwnersKey(contentID))
}

func (m *Manager) MarketOwnersPut(contentID uint64, owners [][20]byte) error {
	return m.putAddressList(MarketOwnersKey(contentID), owners)
}

func (m *Manager) MarketBuyersGet(contentID uint64) ([][20]byte, error) {
	return m.addressList(MarketBuyersKey(contentID))
}

func (m *Manager) MarketBuyersPut(contentID uint64, buyers [][20]byte) error {
	return m.putAddressList(MarketBuyersKey(contentID), buyers)
}

func (m *Manager) MarketRefundedGet(contentID uint64) ([][20]byte, error) {
	return m.addressList(MarketRefundedKey(contentID))
}

func (m *Manager) MarketRefundedPut(contentID uint64, buyers [][20]byte) error {
	return m.putAddressList(MarketRefundedKey(contentID), buyers)
}

func (m *Manager) MarketUserBalancesGet(addr [20]byte) (*market.UserBalances, error) {
	balances := new(market.UserBalances)
	ok, err := m.KVGet(MarketBalancesKey(addr), balances)
	if err != nil {
		return nil, err
	}
	if !ok {
		return market.NewUserBalances(), nil
	}
	return balances.Clone(), nil
}

func (m *Manager) MarketUserBalancesPut(addr [20]byte, balances *market.UserBalances) error {
	if balances == nil {
		return fmt.Errorf("market: nil balances")
	}
	normalized := balances.Clone()
	for label, amount := range map[string]*big.Int{
		"creator fees":  normalized.Creator,
		"referral fees": normalized.Referral,
		"owner fees":    normalized.Owner,
		"withdrawn":     normalized.Withdrawn,
	} {
		if err := checkAmount(label, amount); err != nil {
			return err
		}
	}
	return m.KVPut(MarketBalancesKey(addr), normalized)
}

func (m *Manager) MarketProtocolBalancesGet() (*market.ProtocolBalances, error) {
	balances := new(market.ProtocolBalances)
	ok, err := m.KVGet(marketProtocolKey, balances)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (*market.ProtocolBalances)(nil).Clone(), nil
	}
	return balances.Clone(), nil
}

func (m *Manager) MarketProtocolBalancesPut(balances *market.ProtocolBalances) error {
	if balances == nil {
		return fmt.Errorf("market: nil protocol balances")
	}
	normalized := balances.Clone()
	if err := checkAmount("protocol accumulated", normalized.Accumulated); err != nil {
		return err
	}
	if err := checkAmount("protocol withdrawn", normalized.Withdrawn); err != nil {
		return err
	}
	return m.KVPut(marketProtocolKey, normalized)
}
