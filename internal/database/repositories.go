package database

import (
	"context"

	"github.com/astralume/astral-api/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface allows handlers and workers to take mock
// implementations in tests.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	ListWithBirthData(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EntitlementRepositoryInterface mirrors EntitlementRepository.
type EntitlementRepositoryInterface interface {
	Upsert(ctx context.Context, e *models.Entitlement) error
	Get(ctx context.Context, userID uuid.UUID, product string) (*models.Entitlement, error)
	GetBySubscription(ctx context.Context, subscriptionID string) (*models.Entitlement, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error)
}

// Ensure concrete types implement the interfaces.
var (
	_ UserRepositoryInterface        = (*UserRepository)(nil)
	_ EntitlementRepositoryInterface = (*EntitlementRepository)(nil)
)
