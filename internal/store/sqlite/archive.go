// Package sqlite persists terminal orders so fills and rejections
// survive a restart and UNKNOWN placements can be reconciled later.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/berinsbackup-web/AITradingBot/internal/execution"
)

// ArchivedOrder is the persisted shape of a terminal order.
type ArchivedOrder struct {
	ID            uint   `gorm:"primaryKey"`
	OrderID       string `gorm:"uniqueIndex;size:64"`
	BrokerOrderID string `gorm:"index;size:64"`
	Symbol        string `gorm:"index;size:32"`
	Side          string `gorm:"size:8"`
	OrderType     string `gorm:"size:8"`
	Status        string `gorm:"index;size:16"`
	Qty           float64
	Price         float64
	FilledQty     float64
	AvgFillPrice  float64
	RejectReason  string
	PlacedAt      time.Time
	LastUpdate    time.Time
	CreatedAt     time.Time
}

func (ArchivedOrder) TableName() string { return "order_archive" }

type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewStoreFromDB(db)
}

func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(&ArchivedOrder{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

// ArchiveOrder upserts one terminal order, keyed by its internal ID so
// a later transition (e.g. UNKNOWN resolved by reconciliation)
// overwrites the earlier row.
func (s *Store) ArchiveOrder(ctx context.Context, o *execution.Order) error {
	row := ArchivedOrder{
		OrderID:       o.ID,
		BrokerOrderID: o.BrokerOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		OrderType:     string(o.Type),
		Status:        string(o.Status),
		Qty:           o.Qty,
		Price:         o.Price,
		FilledQty:     o.FilledQty,
		AvgFillPrice:  o.AvgFillPrice,
		RejectReason:  o.RejectReason,
		PlacedAt:      o.PlacedAt,
		LastUpdate:    o.LastUpdate,
	}
	return s.db.WithContext(ctx).
		Where("order_id = ?", row.OrderID).
		Assign(row).
		FirstOrCreate(&ArchivedOrder{}).Error
}

// Recent returns the latest archived orders, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]ArchivedOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []ArchivedOrder
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Unreconciled lists orders stuck in UNKNOWN.
func (s *Store) Unreconciled(ctx context.Context) ([]ArchivedOrder, error) {
	var rows []ArchivedOrder
	err := s.db.WithContext(ctx).
		Where("status = ?", string(execution.StatusUnknown)).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
