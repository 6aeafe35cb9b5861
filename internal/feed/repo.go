package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopwire/shopwire-backend/pkg/db/models"
)

// Repository exposes persistence helpers for the append-only event log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, event *models.FeedEvent) error
	ListSince(ctx context.Context, userID uuid.UUID, sinceSequence int64, limit int) ([]models.FeedEvent, error)
	MaxSequence(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a feed repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Append inserts the event. Sequence is left zero so the database identity
// column assigns it; gorm writes the generated value back into the struct.
func (r *repositoryImpl) Append(ctx context.Context, event *models.FeedEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) ListSince(ctx context.Context, userID uuid.UUID, sinceSequence int64, limit int) ([]models.FeedEvent, error) {
	var events []models.FeedEvent
	err := r.db.WithContext(ctx).
		Model(&models.FeedEvent{}).
		Where("user_id = ? AND sequence > ?", userID, sinceSequence).
		Order("sequence ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repositoryImpl) MaxSequence(ctx context.Context) (int64, error) {
	var max *int64
	err := r.db.WithContext(ctx).
		Model(&models.FeedEvent{}).
		Select("MAX(sequence)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.FeedEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
