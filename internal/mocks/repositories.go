package mocks

import (
	"context"
	"sync"

	"github.com/laundrotech/intel-gateway/internal/domain"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	SaveFunc        func(ctx context.Context, user *domain.User) error
	FindByIDFunc    func(ctx context.Context, id string) (*domain.User, error)
	FindByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, nil
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository.
// By default it stores purchases in memory.
type MockPurchaseRepository struct {
	mu        sync.Mutex
	Purchases map[string]*domain.Purchase

	SaveFunc            func(ctx context.Context, purchase *domain.Purchase) error
	FindByIDFunc        func(ctx context.Context, id string) (*domain.Purchase, error)
	FindByUserIDFunc    func(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error)
	FindBySessionIDFunc func(ctx context.Context, sessionID string) ([]domain.Purchase, error)
	CountByUserIDFunc   func(ctx context.Context, userID string) (int64, error)
}

func NewMockPurchaseRepository() *MockPurchaseRepository {
	return &MockPurchaseRepository{
		Purchases: make(map[string]*domain.Purchase),
	}
}

func (m *MockPurchaseRepository) Save(ctx context.Context, purchase *domain.Purchase) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, purchase)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *purchase
	m.Purchases[purchase.ID] = &cp
	return nil
}

func (m *MockPurchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Purchases[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *MockPurchaseRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID, limit, offset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Purchase
	for _, p := range m.Purchases {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MockPurchaseRepository) FindBySessionID(ctx context.Context, sessionID string) ([]domain.Purchase, error) {
	if m.FindBySessionIDFunc != nil {
		return m.FindBySessionIDFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Purchase
	for _, p := range m.Purchases {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MockPurchaseRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	if m.CountByUserIDFunc != nil {
		return m.CountByUserIDFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.Purchases {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}
