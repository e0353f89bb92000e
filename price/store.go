package price

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store persists resolved prices across runs. Entries are never overwritten.
type Store interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Put(ctx context.Context, key string, value decimal.Decimal) error
}

// pricePoint is a resolved price or rate for one cache key.
type pricePoint struct {
	CacheKey  string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"not null"`
	CreatedAt time.Time
}

func (pricePoint) TableName() string { return "price_points" }

// SQLStore is a Store in a sqlite database.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore opens, or creates, the sqlite database at dsn.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening price store %q: %w", dsn, err)
	}
	return NewSQLStore(db)
}

// NewSQLStore uses an open database, creating the table when needed.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&pricePoint{}); err != nil {
		return nil, fmt.Errorf("migrating price store: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	var p pricePoint
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	v, err := decimal.NewFromString(p.Value)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupted price %q: %w", key, err)
	}
	return v, true, nil
}

// Put inserts the value unless the key already exists.
func (s *SQLStore) Put(ctx context.Context, key string, value decimal.Decimal) error {
	p := pricePoint{CacheKey: key, Value: value.String()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error
}

// Len returns the number of stored entries.
func (s *SQLStore) Len(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&pricePoint{}).Count(&n).Error
	return n, err
}

// Close closes the database.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
