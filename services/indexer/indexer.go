package indexer

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"paylock/core/events"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Indexer persists committed events into a relational store so the
// transaction history can be queried without replaying state. It implements
// events.Emitter.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time

	mu      sync.Mutex
	lastErr error
	dropped uint64
}

// Open connects to dsn and migrates the schema. DSNs starting with
// postgres:// or postgresql:// use PostgreSQL; anything else is treated as a
// SQLite path or URI.
func Open(dsn string, log *slog.Logger) (*Indexer, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("indexer: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{db: db, logger: log.With(slog.String("component", "indexer")), nowFn: time.Now}, nil
}

// Close releases the underlying connection pool.
func (i *Indexer) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit implements events.Emitter. Only transaction-bound events are stored;
// a failed write is logged and counted rather than propagated.
func (i *Indexer) Emit(evt events.Event) {
	if i == nil || evt == nil {
		return
	}
	txEvt, ok := evt.(events.TxEvent)
	if !ok {
		return
	}
	if err := i.Store(context.Background(), txEvt); err != nil {
		i.mu.Lock()
		i.lastErr = err
		i.dropped++
		i.mu.Unlock()
		i.logger.Error("index event failed",
			slog.String("type", txEvt.EventType()),
			slog.Uint64("sequence", txEvt.Sequence),
			slog.Any("error", err))
	}
}

// Store writes one event. Writing the same event twice is a no-op.
func (i *Indexer) Store(ctx context.Context, evt events.TxEvent) error {
	record, err := i.recordFrom(evt)
	if err != nil {
		return err
	}
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
		Create(record).Error
}

// Health reports the last write error and how many events were dropped.
func (i *Indexer) Health() (uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dropped, i.lastErr
}

func (i *Indexer) recordFrom(evt events.TxEvent) (*EventRecord, error) {
	if evt.Inner == nil || evt.Inner.Type == "" {
		return nil, errors.New("indexer: empty event")
	}
	full := evt.Event()
	attrs, err := json.Marshal(full.Attributes)
	if err != nil {
		return nil, fmt.Errorf("indexer: encode attributes: %w", err)
	}
	var contentID uint64
	if raw := full.Attributes["contentId"]; raw != "" {
		contentID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("indexer: contentId %q: %w", raw, err)
		}
	}
	return &EventRecord{
		ID:          uuid.New(),
		Fingerprint: fingerprint(evt.TxHash, evt.Index),
		Sequence:    evt.Sequence,
		LogIndex:    evt.Index,
		TxHash:      full.Attributes["txHash"],
		Sender:      full.Attributes["sender"],
		Type:        full.Type,
		ContentID:   contentID,
		Account:     subjectAccount(full.Attributes),
		Attributes:  string(attrs),
		CreatedAt:   i.nowFn().UTC(),
	}, nil
}

// fingerprint identifies an event by the transaction and position that
// produced it.
func fingerprint(txHash [32]byte, index int) string {
	var buf [40]byte
	copy(buf[:32], txHash[:])
	binary.BigEndian.PutUint64(buf[32:], uint64(index))
	sum := blake3.Sum256(buf[:])
	return hex.EncodeToString(sum[:])
}

// subjectAccount picks the account an event is primarily about.
func subjectAccount(attrs map[string]string) string {
	for _, key := range []string{"buyer", "account", "creator", "to", "actor"} {
		if v := strings.TrimSpace(attrs[key]); v != "" {
			return v
		}
	}
	return ""
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	ContentID     uint64
	Account       string
	Types         []string
	AfterSequence uint64
	Limit         int
}

// List returns matching events ordered by sequence and position.
func (i *Indexer) List(ctx context.Context, f Filter) ([]EventRecord, error) {
	return i.list(ctx, f, nil)
}

// position is a (sequence, logIndex) cursor; list returns events strictly
// after it.
type position struct {
	sequence uint64
	logIndex int
}

func (i *Indexer) list(ctx context.Context, f Filter, after *position) ([]EventRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := i.db.WithContext(ctx).Model(&EventRecord{})
	if f.ContentID != 0 {
		query = query.Where("content_id = ?", f.ContentID)
	}
	if account := strings.TrimSpace(f.Account); account != "" {
		query = query.Where("account = ? OR sender = ?", account, account)
	}
	if len(f.Types) > 0 {
		query = query.Where("type IN ?", f.Types)
	}
	if f.AfterSequence > 0 {
		query = query.Where("sequence > ?", f.AfterSequence)
	}
	if after != nil {
		query = query.Where("sequence > ? OR (sequence = ? AND log_index > ?)", after.sequence, after.sequence, after.logIndex)
	}
	var records []EventRecord
	err := query.Order("sequence ASC").Order("log_index ASC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DecodeAttributes returns the stored attribute map of a record.
func (r EventRecord) DecodeAttributes() (map[string]string, error) {
	attrs := map[string]string{}
	if strings.TrimSpace(r.Attributes) == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
