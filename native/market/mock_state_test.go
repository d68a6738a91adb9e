package market

import (
	"math/big"

	"paylock/core/types"
)

type buyerKey struct {
	content uint64
	buyer   [20]byte
}

type mockSnapshot struct {
	params   *Params
	types    map[uint64]*ContentType
	contents map[uint64]*Content
	buyers   map[buyerKey]*BuyerState
	owners   map[uint64][][20]byte
	open     map[uint64][][20]byte
	refunded map[uint64][][20]byte
	users    map[[20]byte]*UserBalances
	protocol *ProtocolBalances
	accounts map[string]*types.Account
}

type mockState struct {
	mockSnapshot
	snapshots []mockSnapshot
}

func newMockState() *mockState {
	return &mockState{mockSnapshot: mockSnapshot{
		types:    make(map[uint64]*ContentType),
		contents: make(map[uint64]*Content),
		buyers:   make(map[buyerKey]*BuyerState),
		owners:   make(map[uint64][][20]byte),
		open:     make(map[uint64][][20]byte),
		refunded: make(map[uint64][][20]byte),
		users:    make(map[[20]byte]*UserBalances),
		accounts: make(map[string]*types.Account),
	}}
}

func cloneAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return nil
	}
	return acc.Clone()
}

func cloneList(list [][20]byte) [][20]byte {
	if len(list) == 0 {
		return nil
	}
	return append([][20]byte(nil), list...)
}

func (s mockSnapshot) clone() mockSnapshot {
	out := mockSnapshot{
		params:   s.params.Clone(),
		types:    make(map[uint64]*ContentType, len(s.types)),
		contents: make(map[uint64]*Content, len(s.contents)),
		buyers:   make(map[buyerKey]*BuyerState, len(s.buyers)),
		owners:   make(map[uint64][][20]byte, len(s.owners)),
		open:     make(map[uint64][][20]byte, len(s.open)),
		refunded: make(map[uint64][][20]byte, len(s.refunded)),
		users:    make(map[[20]byte]*UserBalances, len(s.users)),
		accounts: make(map[string]*types.Account, len(s.accounts)),
	}
	if s.protocol != nil {
		out.protocol = s.protocol.Clone()
	}
	for k, v := range s.types {
		out.types[k] = v.Clone()
	}
	for k, v := range s.contents {
		out.contents[k] = v.Clone()
	}
	for k, v := range s.buyers {
		out.buyers[k] = v.Clone()
	}
	for k, v := range s.owners {
		out.owners[k] = cloneList(v)
	}
	for k, v := range s.open {
		out.open[k] = cloneList(v)
	}
	for k, v := range s.refunded {
		out.refunded[k] = cloneList(v)
	}
	for k, v := range s.users {
		out.users[k] = v.Clone()
	}
	for k, v := range s.accounts {
		out.accounts[k] = cloneAccount(v)
	}
	return out
}

func (m *mockState) Snapshot() int {
	m.snapshots = append(m.snapshots, m.mockSnapshot.clone())
	return len(m.snapshots) - 1
}

func (m *mockState) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	m.mockSnapshot = m.snapshots[id]
	m.snapshots = m.snapshots[:id]
}

func (m *mockState) MarketParamsGet() (*Params, bool, error) {
	if m.params == nil {
		return nil, false, nil
	}
	return m.params.Clone(), true, nil
}

func (m *mockState) MarketParamsPut(params *Params) error {
	m.params = params.Clone()
	return nil
}

func (m *mockState) MarketContentTypeGet(id uint64) (*ContentType, bool, error) {
	contentType, ok := m.types[id]
	if !ok {
		return nil, false, nil
	}
	return contentType.Clone(), true, nil
}

func (m *mockState) MarketContentTypePut(contentType *ContentType) error {
	m.types[contentType.ID] = contentType.Clone()
	return nil
}

func (m *mockState) MarketContentGet(id uint64) (*Content, bool, error) {
	content, ok := m.contents[id]
	if !ok {
		return nil, false, nil
	}
	return content.Clone(), true, nil
}

func (m *mockState) MarketContentPut(content *Content) error {
	m.contents[content.ID] = content.Clone()
	return nil
}

func (m *mockState) MarketBuyerGet(contentID uint64, buyer [20]byte) (*BuyerState, bool, error) {
	state, ok := m.buyers[buyerKey{contentID, buyer}]
	if !ok {
		return nil, false, nil
	}
	return state.Clone(), true, nil
}

func (m *mockState) MarketBuyerPut(state *BuyerState) error {
	m.buyers[buyerKey{state.ContentID, state.Buyer}] = state.Clone()
	return nil
}

func (m *mockState) MarketBuyerDelete(contentID uint64, buyer [20]byte) error {
	delete(m.buyers, buyerKey{contentID, buyer})
	return nil
}

func (m *mockState) MarketOwnersGet(contentID uint64) ([][20]byte, error) {
	return cloneList(m.owners[contentID]), nil
}

func (m *mockState) MarketOwnersPut(contentID uint64, owners [][20]byte) error {
	if len(owners) == 0 {
		delete(m.owners, contentID)
		return nil
	}
	m.owners[contentID] = cloneList(owners)
	return nil
}

func (m *mockState) MarketBuyersGet(contentID uint64) ([][20]byte, error) {
	return cloneList(m.open[contentID]), nil
}

func (m *mockState) MarketBuyersPut(contentID uint64, buyers [][20]byte) error {
	if len(buyers) == 0 {
		delete(m.open, contentID)
		return nil
	}
	m.open[contentID] = cloneList(buyers)
	return nil
}

func (m *mockState) MarketRefundedGet(contentID uint64) ([][20]byte, error) {
	return cloneList(m.refunded[contentID]), nil
}

func (m *mockState) MarketRefundedPut(contentID uint64, buyers [][20]byte) error {
	if len(buyers) == 0 {
		delete(m.refunded, contentID)
		return nil
	}
	m.refunded[contentID] = cloneList(buyers)
	return nil
}

func (m *mockState) MarketUserBalancesGet(addr [20]byte) (*UserBalances, error) {
	return m.users[addr].Clone(), nil
}

func (m *mockState) MarketUserBalancesPut(addr [20]byte, balances *UserBalances) error {
	m.users[addr] = balances.Clone()
	return nil
}

func (m *mockState) MarketProtocolBalancesGet() (*ProtocolBalances, error) {
	return m.protocol.Clone(), nil
}

func (m *mockState) MarketProtocolBalancesPut(balances *ProtocolBalances) error {
	m.protocol = balances.Clone()
	return nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	if acc, ok := m.accounts[string(addr)]; ok && acc != nil {
		return cloneAccount(acc), nil
	}
	return nil, nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		delete(m.accounts, string(addr))
		return nil
	}
	m.accounts[string(addr)] = cloneAccount(account)
	return nil
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[string(addr[:])] = &types.Account{Balance: big.NewInt(amount)}
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	acc, ok := m.accounts[string(addr[:])]
	if !ok || acc == nil || acc.Balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(acc.Balance)
}
