package shops

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopwire/shopwire-backend/pkg/db/models"
)

type Repository interface {
	GetByID(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	GetByDomain(ctx context.Context, domain string) (*models.Shop, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetByID(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Where("id = ?", shopID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repositoryImpl) GetByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}
