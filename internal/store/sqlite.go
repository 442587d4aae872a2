package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/imamik/kubedash/internal/cluster"
)

// ClusterRecord is the RDB persistence model for cluster.Descriptor.
// Table name: clusters
type ClusterRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	Position  int       `gorm:"not null;index"`
	Host      string    `gorm:"type:text;not null"`
	Port      int       `gorm:"not null"`
	Token     string    `gorm:"type:text;not null"`
	TLSPolicy string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ClusterRecord) TableName() string { return "clusters" }

func descriptorToRecord(d cluster.Descriptor, position int) ClusterRecord {
	return ClusterRecord{
		ID:        d.ID,
		Position:  position,
		Host:      d.Host,
		Port:      d.Port,
		Token:     d.Token,
		TLSPolicy: string(d.TLSPolicy),
		CreatedAt: d.CreatedAt,
	}
}

func recordToDescriptor(r *ClusterRecord) cluster.Descriptor {
	return cluster.Descriptor{
		ID:        r.ID,
		Host:      r.Host,
		Port:      r.Port,
		Token:     r.Token,
		TLSPolicy: cluster.TLSPolicy(r.TLSPolicy),
		CreatedAt: r.CreatedAt,
	}
}

// SQLiteBackend keeps the snapshot in a SQLite table. Each Save replaces all
// rows inside one transaction.
type SQLiteBackend struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at dsn and migrates the schema.
// dsn is a file path or ":memory:".
func OpenSQLite(dsn string) (*SQLiteBackend, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", dsn, err)
	}
	return NewSQLiteBackend(db)
}

// NewSQLiteBackend wraps an open GORM handle and migrates the schema.
func NewSQLiteBackend(db *gorm.DB) (*SQLiteBackend, error) {
	if err := db.AutoMigrate(&ClusterRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate clusters table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) ([]cluster.Descriptor, error) {
	var recs []ClusterRecord
	if err := b.db.WithContext(ctx).Order("position ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to read clusters: %w", err)
	}
	out := make([]cluster.Descriptor, 0, len(recs))
	for i := range recs {
		out = append(out, recordToDescriptor(&recs[i]))
	}
	return out, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, descriptors []cluster.Descriptor) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ClusterRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear clusters: %w", err)
		}
		if len(descriptors) == 0 {
			return nil
		}
		recs := make([]ClusterRecord, 0, len(descriptors))
		for i, d := range descriptors {
			recs = append(recs, descriptorToRecord(d, i))
		}
		if err := tx.Create(&recs).Error; err != nil {
			return fmt.Errorf("failed to write clusters: %w", err)
		}
		return nil
	})
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
