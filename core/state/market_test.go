package state_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"paylock/core/state"
	"paylock/native/market"
	"paylock/storage"
)

func TestMarketLifecycleOverManager(t *testing.T) {
	db := storage.NewMemDB()
	mgr := state.NewManager(db)
	engine := market.NewEngine()
	engine.SetState(mgr)
	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { return now })

	admin := [20]byte{0x0a}
	creator := [20]byte{0x0c}
	buyer := [20]byte{0x0b}
	require.NoError(t, engine.InitGenesis(market.Genesis{Admin: admin, MinPrice: big.NewInt(10), RefundTimeLimit: 60}))
	require.NoError(t, mgr.Credit(creator[:], big.NewInt(1_000)))
	require.NoError(t, mgr.Credit(buyer[:], big.NewInt(1_000)))
	require.NoError(t, mgr.Commit())

	content, err := engine.CreateContent(creator, market.CreateContentParams{
		ContentType:    1,
		ContentRef:     "ipfs://payload",
		BasePrice:      big.NewInt(100),
		ShareOwnFeeBps: 500,
		PriceStepBps:   100,
	}, big.NewInt(100))
	require.NoError(t, err)
	_, err = engine.BuyContent(buyer, content.ID, [20]byte{}, big.NewInt(100), big.NewInt(100))
	require.NoError(t, err)
	_, err = engine.KeepContent(buyer, content.ID)
	require.NoError(t, err)
	require.NoError(t, mgr.Commit())

	reopened := market.NewEngine()
	reopened.SetState(state.NewManager(db))
	stored, err := reopened.Content(content.ID)
	require.NoError(t, err)
	require.Equal(t, int64(101), stored.ActualPrice.Int64())
	require.Equal(t, uint64(1), stored.Keeps)
	require.Equal(t, "ipfs://payload", stored.ContentRef)
	require.True(t, stored.AutoPreview)

	owners, err := reopened.ContentOwners(content.ID)
	require.NoError(t, err)
	require.Equal(t, [][20]byte{buyer}, owners)

	balances, err := reopened.UserBalances(creator)
	require.NoError(t, err)
	require.Equal(t, int64(95), balances.Accrued().Int64())

	vault, err := reopened.VaultBalance()
	require.NoError(t, err)
	require.Equal(t, int64(200), vault.Int64())
}

func TestMarketFailureRevertsOverlay(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	engine := market.NewEngine()
	engine.SetState(mgr)
	admin := [20]byte{0x0a}
	creator := [20]byte{0x0c}
	require.NoError(t, engine.InitGenesis(market.Genesis{Admin: admin, MinPrice: big.NewInt(1)}))
	require.NoError(t, mgr.Credit(creator[:], big.NewInt(50)))
	require.NoError(t, mgr.Commit())

	_, err := engine.CreateContent(creator, market.CreateContentParams{
		ContentType: 1,
		ContentRef:  "ipfs://payload",
		BasePrice:   big.NewInt(100),
	}, big.NewInt(100))
	require.ErrorIs(t, err, market.ErrInsufficientFunds)
	require.Zero(t, mgr.Pending())

	params, err := engine.Params()
	require.NoError(t, err)
	require.Equal(t, uint64(1), params.NextContentID)
	require.Equal(t, market.DefaultRefundTimeLimit, params.RefundTimeLimit)
}
