package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"paylock/core/events"
	"paylock/core/types"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	idx, err := Open(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func txEvent(seq uint64, index int, typ string, attrs map[string]string) events.TxEvent {
	var hash [32]byte
	hash[0] = byte(seq)
	hash[1] = byte(seq >> 8)
	var sender [20]byte
	sender[19] = 0x01
	return events.TxEvent{
		Sequence: seq,
		Index:    index,
		TxHash:   hash,
		Sender:   sender,
		Inner:    &types.Event{Type: typ, Attributes: attrs},
	}
}

func TestStoreIsIdempotent(t *testing.T) {
	idx := newTestIndexer(t)
	ctx := context.Background()

	evt := txEvent(1, 0, "market.content.purchased", map[string]string{"contentId": "7", "buyer": "plk1buyer"})
	require.NoError(t, idx.Store(ctx, evt))
	require.NoError(t, idx.Store(ctx, evt))

	records, err := idx.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint64(7), records[0].ContentID)
	require.Equal(t, "plk1buyer", records[0].Account)
	require.Equal(t, "market.content.purchased", records[0].Type)

	attrs, err := records[0].DecodeAttributes()
	require.NoError(t, err)
	require.Equal(t, "1", attrs["sequence"])
	require.Equal(t, records[0].TxHash, attrs["txHash"])
}

func TestStoreRejectsMalformedContentID(t *testing.T) {
	idx := newTestIndexer(t)
	err := idx.Store(context.Background(), txEvent(1, 0, "market.content.created", map[string]string{"contentId": "abc"}))
	require.Error(t, err)
}

func TestListFilters(t *testing.T) {
	idx := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, idx.Store(ctx, txEvent(1, 0, "market.content.created", map[string]string{"contentId": "1", "creator": "plk1alice"})))
	require.NoError(t, idx.Store(ctx, txEvent(2, 0, "market.content.purchased", map[string]string{"contentId": "1", "buyer": "plk1bob"})))
	require.NoError(t, idx.Store(ctx, txEvent(2, 1, "transfer.native", map[string]string{"to": "plk1bob", "amount": "5"})))
	require.NoError(t, idx.Store(ctx, txEvent(3, 0, "market.content.created", map[string]string{"contentId": "2", "creator": "plk1carol"})))

	byContent, err := idx.List(ctx, Filter{ContentID: 1})
	require.NoError(t, err)
	require.Len(t, byContent, 2)

	byAccount, err := idx.List(ctx, Filter{Account: "plk1bob"})
	require.NoError(t, err)
	require.Len(t, byAccount, 2)
	require.Equal(t, 0, byAccount[0].LogIndex)
	require.Equal(t, 1, byAccount[1].LogIndex)

	byType, err := idx.List(ctx, Filter{Types: []string{"market.content.created"}})
	require.NoError(t, err)
	require.Len(t, byType, 2)

	after, err := idx.List(ctx, Filter{AfterSequence: 2})
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, uint64(3), after[0].Sequence)

	limited, err := idx.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, uint64(1), limited[0].Sequence)
}

type plainEvent struct{}

func (plainEvent) EventType() string { return "plain" }

func TestEmitIgnoresUnboundEvents(t *testing.T) {
	idx := newTestIndexer(t)
	idx.Emit(plainEvent{})
	idx.Emit(txEvent(4, 0, "market.fees.withdrawn", map[string]string{"account": "plk1dave"}))
	idx.Emit(events.TxEvent{Sequence: 5})

	records, err := idx.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "plk1dave", records[0].Account)

	dropped, lastErr := idx.Health()
	require.Equal(t, uint64(1), dropped)
	require.Error(t, lastErr)
}

func TestExportParquetPagesThroughHistory(t *testing.T) {
	idx := newTestIndexer(t)
	ctx := context.Background()

	// One transaction straddles the page boundary.
	for i := 0; i < exportPageSize-1; i++ {
		require.NoError(t, idx.Store(ctx, txEvent(uint64(i+1), 0, "market.content.created", map[string]string{"contentId": "1"})))
	}
	seq := uint64(exportPageSize)
	for j := 0; j < 3; j++ {
		require.NoError(t, idx.Store(ctx, txEvent(seq, j, "market.content.purchased", map[string]string{"contentId": "1"})))
	}

	path := filepath.Join(t.TempDir(), "events.parquet")
	n, err := idx.ExportParquet(ctx, path, Filter{ContentID: 1})
	require.NoError(t, err)
	require.Equal(t, exportPageSize+2, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 8)
	require.Equal(t, "PAR1", string(raw[:4]))
	require.Equal(t, "PAR1", string(raw[len(raw)-4:]))
}

func TestExportParquetRoundTripsColumns(t *testing.T) {
	idx := newTestIndexer(t)
	ctx := context.Background()
	require.NoError(t, idx.Store(ctx, txEvent(1, 0, "market.content.created", map[string]string{"contentId": "3", "creator": "plk1creator"})))
	require.NoError(t, idx.Store(ctx, txEvent(2, 0, "market.content.purchased", map[string]string{"contentId": "3", "buyer": "plk1buyer"})))

	path := filepath.Join(t.TempDir(), "events.parquet")
	n, err := idx.ExportParquet(ctx, path, Filter{})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(parquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.Equal(t, int64(2), pr.GetNumRows())

	rows := make([]parquetRow, 2)
	require.NoError(t, pr.Read(&rows))
	require.Equal(t, int64(1), rows[0].Sequence)
	require.Equal(t, "market.content.created", rows[0].Type)
	require.Equal(t, int64(3), rows[0].ContentID)
	require.Equal(t, "plk1creator", rows[0].Account)
	require.Equal(t, "market.content.purchased", rows[1].Type)
	require.Equal(t, "plk1buyer", rows[1].Account)
	require.Contains(t, rows[1].Attributes, `"buyer":"plk1buyer"`)
}
