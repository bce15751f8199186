package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"headroom-havens-backend/internal/kv"
	"headroom-havens-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	RecordLead(ctx context.Context, lead *model.Lead) error
	FindLead(ctx context.Context, id string) (model.Lead, error)
	SubscriptionsFor(ctx context.Context, form string) ([]model.PushSubscription, error)
	KV(scope string) kv.Store
	DropScope(ctx context.Context, scope string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// RecordLead stores a delivered lead.
func (s *gormStore) RecordLead(ctx context.Context, lead *model.Lead) error {
	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("failed to record lead %s: %w", lead.ID, err)
	}
	return nil
}

// FindLead loads a lead by id.
func (s *gormStore) FindLead(ctx context.Context, id string) (model.Lead, error) {
	var lead model.Lead
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&lead).Error; err != nil {
		return model.Lead{}, fmt.Errorf("failed to load lead %s: %w", id, err)
	}
	return lead, nil
}

// SubscriptionsFor returns operator subscriptions that want alerts for form.
func (s *gormStore) SubscriptionsFor(ctx context.Context, form string) ([]model.PushSubscription, error) {
	var all []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	out := all[:0]
	for _, sub := range all {
		if sub.Wants(form) {
			out = append(out, sub)
		}
	}
	return out, nil
}

// KV returns the key/value storage of one visitor scope.
func (s *gormStore) KV(scope string) kv.Store {
	return &scopedKV{db: s.db, scope: scope}
}

// DropScope deletes every key of a visitor scope.
func (s *gormStore) DropScope(ctx context.Context, scope string) error {
	if err := s.db.WithContext(ctx).Where("scope = ?", scope).Delete(&model.KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to drop scope %s: %w", scope, err)
	}
	return nil
}

// scopedKV is a kv.Store over the kv_entries table.
type scopedKV struct {
	db    *gorm.DB
	scope string
}

func (k *scopedKV) Get(key string) (string, bool, error) {
	var entry model.KVEntry
	err := k.db.Where("scope = ? AND name = ?", k.scope, key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (k *scopedKV) Set(key, value string) error {
	entry := model.KVEntry{Scope: k.scope, Name: key, Value: value}
	err := k.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (k *scopedKV) Remove(key string) error {
	if err := k.db.Where("scope = ? AND name = ?", k.scope, key).Delete(&model.KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}
