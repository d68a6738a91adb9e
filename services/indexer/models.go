package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRecord is one committed event as stored by the indexer.
type EventRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Fingerprint string    `gorm:"size:64;uniqueIndex"`
	Sequence    uint64    `gorm:"index"`
	LogIndex    int
	TxHash      string `gorm:"size:66;index"`
	Sender      string `gorm:"size:96;index"`
	Type        string `gorm:"size:64;index"`
	ContentID   uint64 `gorm:"index"`
	Account     string `gorm:"size:96;index"`
	Attributes  string
	CreatedAt   time.Time
}

// TableName pins the table name independent of gorm's pluralisation.
func (EventRecord) TableName() string { return "market_events" }

// AutoMigrate creates or updates the indexer schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{})
}
