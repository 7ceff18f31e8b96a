package persistence

import (
	"context"
	"strings"

	"github.com/estudiomd/backoffice/internal/domain/identity"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	model, err := first[models.UserModel](r.db.WithContext(ctx), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	model, err := first[models.UserModel](r.db.WithContext(ctx), "email = ?", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, u *identity.User) error {
	model := &models.UserModel{}
	model.FromDomain(u)
	return r.db.WithContext(ctx).Save(model).Error
}

// NamesByIDs resolves display names in one query
func (r *GormUserRepository) NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var userModels []models.UserModel
	if err := r.db.WithContext(ctx).
		Select("id", "email", "full_name").
		Where("id IN ?", ids).
		Find(&userModels).Error; err != nil {
		return nil, err
	}
	for i := range userModels {
		names[userModels[i].ID] = userModels[i].ToDomain().DisplayName()
	}
	return names, nil
}
