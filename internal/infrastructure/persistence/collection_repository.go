package persistence

import (
	"context"
	"strings"

	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCollectionRecordRepository implements finance.CollectionRecordRepository using GORM
type GormCollectionRecordRepository struct {
	db *gorm.DB
}

// NewGormCollectionRecordRepository creates a new GormCollectionRecordRepository
func NewGormCollectionRecordRepository(db *gorm.DB) *GormCollectionRecordRepository {
	return &GormCollectionRecordRepository{db: db}
}

// FindByID finds a collection record of a client
func (r *GormCollectionRecordRepository) FindByID(ctx context.Context, clientID, id uuid.UUID) (*finance.CollectionRecord, error) {
	model, err := first[models.CollectionRecordModel](r.db.WithContext(ctx), "client_id = ? AND id = ?", clientID, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists collection records, most recent contact first by default
func (r *GormCollectionRecordRepository) FindAll(ctx context.Context, filter finance.CollectionFilter) ([]finance.CollectionRecord, error) {
	var recordModels []models.CollectionRecordModel
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.CollectionRecordModel{}), filter)
	query = collectionSorting.apply(query, filter.OrderBy, filter.OrderDir)
	query = applyPage(query, filter.Page, filter.PageSize)

	if err := query.Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]finance.CollectionRecord, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records, nil
}

// Count counts collection records matching the filter
func (r *GormCollectionRecordRepository) Count(ctx context.Context, filter finance.CollectionFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.CollectionRecordModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a collection record
func (r *GormCollectionRecordRepository) Save(ctx context.Context, rec *finance.CollectionRecord) error {
	model := &models.CollectionRecordModel{}
	model.FromDomain(rec)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a collection record of a client
func (r *GormCollectionRecordRepository) Delete(ctx context.Context, clientID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("client_id = ? AND id = ?", clientID, id).
		Delete(&models.CollectionRecordModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormCollectionRecordRepository) applyFilterWithoutPagination(query *gorm.DB, filter finance.CollectionFilter) *gorm.DB {
	if filter.ClientID != uuid.Nil {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(notes) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	return query
}
