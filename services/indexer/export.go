package indexer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const exportPageSize = 500

type parquetRow struct {
	ID         string `parquet:"name=id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Sequence   int64  `parquet:"name=sequence, type=INT64"`
	LogIndex   int32  `parquet:"name=log_index, type=INT32"`
	TxHash     string `parquet:"name=tx_hash, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Sender     string `parquet:"name=sender, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Type       string `parquet:"name=type, type=UTF8, encoding=PLAIN_DICTIONARY"`
	ContentID  int64  `parquet:"name=content_id, type=INT64"`
	Account    string `parquet:"name=account, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Attributes string `parquet:"name=attributes, type=UTF8, encoding=PLAIN_DICTIONARY"`
	CreatedAt  string `parquet:"name=created_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// ExportParquet writes every event matching f to a Parquet file at path and
// returns the number of rows written. f.Limit is ignored; the whole history
// is paged through.
func (i *Indexer) ExportParquet(ctx context.Context, path string, f Filter) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	written := 0
	page := f
	page.Limit = exportPageSize
	var cursor *position
	for {
		records, err := i.list(ctx, page, cursor)
		if err != nil {
			pw.WriteStop()
			file.Close()
			return written, err
		}
		for _, record := range records {
			row := &parquetRow{
				ID:         record.ID.String(),
				Sequence:   int64(record.Sequence),
				LogIndex:   int32(record.LogIndex),
				TxHash:     record.TxHash,
				Sender:     record.Sender,
				Type:       record.Type,
				ContentID:  int64(record.ContentID),
				Account:    record.Account,
				Attributes: record.Attributes,
				CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := pw.Write(row); err != nil {
				pw.WriteStop()
				file.Close()
				return written, fmt.Errorf("indexer: parquet write: %w", err)
			}
			written++
		}
		if len(records) < exportPageSize {
			break
		}
		last := records[len(records)-1]
		cursor = &position{sequence: last.Sequence, logIndex: last.LogIndex}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return written, fmt.Errorf("indexer: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return written, fmt.Errorf("indexer: close parquet file: %w", err)
	}
	return written, nil
}
