package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/observability/telemetry"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

type PurchaseRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPurchaseRepository(db *gorm.DB, log *zap.Logger) ports.PurchaseRepository {
	return &PurchaseRepository{
		db:  db,
		log: log,
	}
}

func (r *PurchaseRepository) Save(ctx context.Context, purchase *domain.Purchase) error {
	defer telemetry.ObserveDatabase(time.Now())

	return r.db.WithContext(ctx).Save(purchase).Error
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	defer telemetry.ObserveDatabase(time.Now())

	var purchase domain.Purchase
	err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *PurchaseRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error) {
	defer telemetry.ObserveDatabase(time.Now())

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var purchases []domain.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&purchases).Error
	return purchases, err
}

func (r *PurchaseRepository) FindBySessionID(ctx context.Context, sessionID string) ([]domain.Purchase, error) {
	defer telemetry.ObserveDatabase(time.Now())

	var purchases []domain.Purchase
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at desc").
		Find(&purchases).Error
	return purchases, err
}

func (r *PurchaseRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	defer telemetry.ObserveDatabase(time.Now())

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
