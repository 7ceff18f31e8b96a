package persistence

import (
	"context"
	"strings"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClientRepository implements client.ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	model, err := first[models.ClientModel](r.db.WithContext(ctx), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all clients matching the filter
func (r *GormClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]client.Client, error) {
	var clientModels []models.ClientModel
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ClientModel{}), filter)
	query = clientSorting.apply(query, filter.OrderBy, filter.OrderDir)
	query = applyPage(query, filter.Page, filter.PageSize)

	if err := query.Find(&clientModels).Error; err != nil {
		return nil, err
	}

	clients := make([]client.Client, len(clientModels))
	for i, model := range clientModels {
		clients[i] = *model.ToDomain()
	}
	return clients, nil
}

// Count counts clients matching the filter
func (r *GormClientRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ClientModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListRefs returns id and name of every client, newest first
func (r *GormClientRepository) ListRefs(ctx context.Context) ([]client.Ref, error) {
	var rows []struct {
		ID   uuid.UUID
		Name string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Select("id", "name").
		Order("created_at DESC").
		Order("id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	refs := make([]client.Ref, len(rows))
	for i, row := range rows {
		refs[i] = client.Ref{ID: row.ID, Name: row.Name}
	}
	return refs, nil
}

// ExistsByEmail checks for another client with the same email
func (r *GormClientRepository) ExistsByEmail(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ClientModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, c *client.Client) error {
	model := models.ClientModelFromDomain(c)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a client together with its finance, operational and
// collection records
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		financeIDs := tx.Model(&models.ClientFinanceModel{}).Select("id").Where("client_id = ?", id)
		paymentIDs := tx.Model(&models.MonthlyPaymentModel{}).Select("id").Where("finance_id IN (?)", financeIDs)
		controlIDs := tx.Model(&models.OperationalControlModel{}).Select("id").Where("client_id = ?", id)
		declarationIDs := tx.Model(&models.MonthlyDeclarationModel{}).Select("id").Where("control_id IN (?)", controlIDs)

		steps := []func() error{
			func() error {
				return tx.Where("payment_id IN (?)", paymentIDs).Delete(&models.PaymentTransactionModel{}).Error
			},
			func() error {
				return tx.Where("finance_id IN (?)", financeIDs).Delete(&models.MonthlyPaymentModel{}).Error
			},
			func() error { return tx.Where("client_id = ?", id).Delete(&models.ClientFinanceModel{}).Error },
			func() error {
				return tx.Where("declaration_id IN (?)", declarationIDs).Delete(&models.TaxDeclarationModel{}).Error
			},
			func() error {
				return tx.Where("control_id IN (?)", controlIDs).Delete(&models.MonthlyDeclarationModel{}).Error
			},
			func() error {
				return tx.Where("control_id IN (?)", controlIDs).Delete(&models.AdditionalPDTModel{}).Error
			},
			func() error { return tx.Where("client_id = ?", id).Delete(&models.OperationalControlModel{}).Error },
			func() error { return tx.Where("client_id = ?", id).Delete(&models.CollectionRecordModel{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}

		result := tx.Delete(&models.ClientModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// applyFilterWithoutPagination applies search and column filters
func (r *GormClientRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ? OR dni LIKE ? OR company_ruc LIKE ?",
			searchPattern, searchPattern, searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "city":
			query = query.Where("city = ?", value)
		case "state":
			query = query.Where("state = ?", value)
		}
	}

	return query
}
