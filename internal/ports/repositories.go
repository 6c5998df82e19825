package ports

import (
	"context"

	"github.com/laundrotech/intel-gateway/internal/domain"
)

type PurchaseRepository interface {
	Save(ctx context.Context, purchase *domain.Purchase) error
	FindByID(ctx context.Context, id string) (*domain.Purchase, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]domain.Purchase, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
}

type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
