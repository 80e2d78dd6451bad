package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store exposes the snapshot queries the sync pipeline needs. All reads go
// through the shared bounded pool and honor the caller's context.
type Store struct {
	gdb *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{gdb: gdb}
}

// ListDomains returns every domain in the store.
func (s *Store) ListDomains(ctx context.Context) ([]Domain, error) {
	var domains []Domain
	if err := s.gdb.WithContext(ctx).Order("name").Find(&domains).Error; err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return domains, nil
}

// ListRecords returns the records of one domain ordered by (type, name) so
// rendering is deterministic regardless of insertion order. An unknown
// domain yields an empty slice, not an error.
func (s *Store) ListRecords(ctx context.Context, domainID uint) ([]Record, error) {
	var records []Record
	err := s.gdb.WithContext(ctx).
		Where("domain_id = ?", domainID).
		Order("type, name").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list records for domain %d: %w", domainID, err)
	}
	return records, nil
}

// CountChangedSince counts domain and record rows created or updated after
// the watermark. The poll loop only needs liveness, never a diff.
func (s *Store) CountChangedSince(ctx context.Context, since time.Time) (int64, error) {
	var records int64
	err := s.gdb.WithContext(ctx).Model(&Record{}).
		Where("updated_at > ? OR created_at > ?", since, since).
		Count(&records).Error
	if err != nil {
		return 0, fmt.Errorf("count changed records: %w", err)
	}

	var domains int64
	err = s.gdb.WithContext(ctx).Model(&Domain{}).
		Where("updated_at > ? OR created_at > ?", since, since).
		Count(&domains).Error
	if err != nil {
		return 0, fmt.Errorf("count changed domains: %w", err)
	}
	return records + domains, nil
}

// Stats returns total domain and record counts for the startup log line.
func (s *Store) Stats(ctx context.Context) (domains, records int64, err error) {
	if err = s.gdb.WithContext(ctx).Model(&Domain{}).Count(&domains).Error; err != nil {
		return 0, 0, fmt.Errorf("count domains: %w", err)
	}
	if err = s.gdb.WithContext(ctx).Model(&Record{}).Count(&records).Error; err != nil {
		return 0, 0, fmt.Errorf("count records: %w", err)
	}
	return domains, records, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
