package shops

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopwire/shopwire-backend/pkg/errors"
)

// Service resolves shops to the single user who receives the shop's feed.
// Every shop has exactly one owner, so shop-scoped events always target
// one recipient.
type Service interface {
	ResolveOwner(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error)
	ResolveOwnerByDomain(ctx context.Context, domain string) (uuid.UUID, error)
}

type serviceImpl struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "shops repository is required")
	}
	return &serviceImpl{repo: repo}, nil
}

func (s *serviceImpl) ResolveOwner(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error) {
	if shopID == uuid.Nil {
		return uuid.Nil, errors.New(errors.CodeValidation, "shop id is required")
	}
	shop, err := s.repo.GetByID(ctx, shopID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, errors.New(errors.CodeNotFound, "shop not found")
		}
		return uuid.Nil, errors.Wrap(errors.CodeDependency, err, "failed to load shop")
	}
	if shop.OwnerUserID == uuid.Nil {
		return uuid.Nil, errors.New(errors.CodeNotFound, "shop has no owner")
	}
	return shop.OwnerUserID, nil
}

func (s *serviceImpl) ResolveOwnerByDomain(ctx context.Context, domain string) (uuid.UUID, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return uuid.Nil, errors.New(errors.CodeValidation, "shop domain is required")
	}
	shop, err := s.repo.GetByDomain(ctx, domain)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, errors.New(errors.CodeNotFound, "shop not found")
		}
		return uuid.Nil, errors.Wrap(errors.CodeDependency, err, "failed to load shop")
	}
	if shop.OwnerUserID == uuid.Nil {
		return uuid.Nil, errors.New(errors.CodeNotFound, "shop has no owner")
	}
	return shop.OwnerUserID, nil
}
