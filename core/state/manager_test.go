package state

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"paylock/core/types"
	"paylock/storage"
)

type kvRecord struct {
	Name  string
	Value *big.Int
}

func TestKVOverlayCommitAndDiscard(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	require.NoError(t, mgr.KVPut([]byte("a"), &kvRecord{Name: "first", Value: big.NewInt(7)}))
	require.Equal(t, 0, db.Len(), "writes must stay in the overlay until commit")

	var got kvRecord
	ok, err := mgr.KVGet([]byte("a"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", got.Name)

	require.NoError(t, mgr.Commit())
	require.Equal(t, 1, db.Len())
	require.Zero(t, mgr.Pending())

	require.NoError(t, mgr.KVPut([]byte("b"), &kvRecord{Name: "second"}))
	mgr.Discard()
	ok, err = mgr.KVGet([]byte("b"), nil)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mgr.KVDelete([]byte("a")))
	ok, err = mgr.KVGet([]byte("a"), nil)
	require.NoError(t, err)
	require.False(t, ok, "deleted key must be hidden by the overlay")
	require.NoError(t, mgr.Commit())
	require.Equal(t, 0, db.Len())
}

func TestSnapshotRevert(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	require.NoError(t, mgr.KVPut([]byte("k"), uint64(1)))

	snap := mgr.Snapshot()
	require.NoError(t, mgr.KVPut([]byte("k"), uint64(2)))
	require.NoError(t, mgr.KVPut([]byte("other"), uint64(3)))
	inner := mgr.Snapshot()
	require.NoError(t, mgr.KVDelete([]byte("k")))

	mgr.RevertToSnapshot(inner)
	var v uint64
	ok, err := mgr.KVGet([]byte("k"), &v)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), v)

	mgr.RevertToSnapshot(snap)
	ok, err = mgr.KVGet([]byte("k"), &v)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	ok, err = mgr.KVGet([]byte("other"), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVGetListDefaultsToEmpty(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	var list [][20]byte
	require.NoError(t, mgr.KVGetList([]byte("missing"), &list))
	require.NotNil(t, list)
	require.Empty(t, list)
	require.Error(t, mgr.KVGetList([]byte("missing"), list))
}

func TestAccountsRoundTrip(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	addr := []byte{0x01, 0x02}

	acc, err := mgr.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, acc.Balance.Sign())

	require.NoError(t, mgr.PutAccount(addr, &types.Account{Nonce: 3, Balance: big.NewInt(500)}))
	require.NoError(t, mgr.Credit(addr, big.NewInt(25)))
	acc, err = mgr.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(3), acc.Nonce)
	require.Equal(t, int64(525), acc.Balance.Int64())

	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	require.ErrorIs(t, mgr.PutAccount(addr, &types.Account{Balance: huge}), ErrAmountOverflow)
	require.ErrorIs(t, mgr.PutAccount(addr, &types.Account{Balance: big.NewInt(-1)}), ErrAmountOverflow)
	require.Error(t, mgr.PutAccount(nil, &types.Account{}))
}

func TestCommitSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	open := map[string]func() (storage.Database, error){
		"leveldb": func() (storage.Database, error) { return storage.NewLevelDB(filepath.Join(dir, "level")) },
		"bolt":    func() (storage.Database, error) { return storage.NewBoltDB(filepath.Join(dir, "state.db"), nil) },
	}
	for name, opener := range open {
		t.Run(name, func(t *testing.T) {
			db, err := opener()
			require.NoError(t, err)
			mgr := NewManager(db)
			require.NoError(t, mgr.PutAccount([]byte{0xaa}, &types.Account{Nonce: 9, Balance: big.NewInt(42)}))
			require.NoError(t, mgr.Commit())
			db.Close()

			db, err = opener()
			require.NoError(t, err)
			defer db.Close()
			acc, err := NewManager(db).GetAccount([]byte{0xaa})
			require.NoError(t, err)
			require.Equal(t, uint64(9), acc.Nonce)
			require.Equal(t, int64(42), acc.Balance.Int64())
		})
	}
}
