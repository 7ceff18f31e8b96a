package persistence

import (
	"context"
	"errors"

	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOperationalControlRepository implements operational.OperationalControlRepository using GORM
type GormOperationalControlRepository struct {
	db *gorm.DB
}

// NewGormOperationalControlRepository creates a new GormOperationalControlRepository
func NewGormOperationalControlRepository(db *gorm.DB) *GormOperationalControlRepository {
	return &GormOperationalControlRepository{db: db}
}

func preloadDeclarations(db *gorm.DB) *gorm.DB {
	return db.Preload("Declarations", func(db *gorm.DB) *gorm.DB {
		return db.Order("month ASC")
	}).Preload("Declarations.TaxDeclarations", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Preload("AdditionalPDTs", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC")
	})
}

// FindByClientAndYear loads the control with all children
func (r *GormOperationalControlRepository) FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*operational.OperationalControl, error) {
	return r.findOne(r.db.WithContext(ctx).Where("client_id = ? AND year = ?", clientID, year))
}

// FindByDeclaration loads the control owning a monthly declaration of the client
func (r *GormOperationalControlRepository) FindByDeclaration(ctx context.Context, clientID, declarationID uuid.UUID) (*operational.OperationalControl, error) {
	db := r.db.WithContext(ctx)
	owner := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.MonthlyDeclarationModel{}).
		Select("control_id").
		Where("id = ?", declarationID)
	return r.findOne(db.Where("client_id = ? AND id IN (?)", clientID, owner))
}

// FindByAdditionalPDT loads the control owning an additional PDT of the client
func (r *GormOperationalControlRepository) FindByAdditionalPDT(ctx context.Context, clientID, pdtID uuid.UUID) (*operational.OperationalControl, error) {
	db := r.db.WithContext(ctx)
	owner := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.AdditionalPDTModel{}).
		Select("control_id").
		Where("id = ?", pdtID)
	return r.findOne(db.Where("client_id = ? AND id IN (?)", clientID, owner))
}

func (r *GormOperationalControlRepository) findOne(query *gorm.DB) (*operational.OperationalControl, error) {
	model, err := first[models.OperationalControlModel](query.Scopes(preloadDeclarations))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the control and synchronizes its children in one transaction
func (r *GormOperationalControlRepository) Save(ctx context.Context, c *operational.OperationalControl) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		control := &models.OperationalControlModel{}
		control.FromDomain(c)
		if err := tx.Omit(clauseAssociations...).Save(control).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrAlreadyExists
			}
			return err
		}

		declarationIDs := make([]uuid.UUID, 0, len(c.Declarations))
		var filingIDs []uuid.UUID
		for _, d := range c.Declarations {
			dm := &models.MonthlyDeclarationModel{}
			dm.FromDomain(d)
			if err := tx.Omit("TaxDeclarations").Save(dm).Error; err != nil {
				return err
			}
			declarationIDs = append(declarationIDs, d.ID)

			for _, td := range d.TaxDeclarations {
				tm := &models.TaxDeclarationModel{}
				tm.FromDomain(td)
				if err := tx.Save(tm).Error; err != nil {
					return err
				}
				filingIDs = append(filingIDs, td.ID)
			}
		}

		stale := tx.Where("declaration_id IN ?", declarationIDs)
		if len(filingIDs) > 0 {
			stale = stale.Where("id NOT IN ?", filingIDs)
		}
		if len(declarationIDs) > 0 {
			if err := stale.Delete(&models.TaxDeclarationModel{}).Error; err != nil {
				return err
			}
		}

		pdtIDs := make([]uuid.UUID, 0, len(c.AdditionalPDTs))
		for _, a := range c.AdditionalPDTs {
			am := &models.AdditionalPDTModel{}
			am.FromDomain(a)
			if err := tx.Save(am).Error; err != nil {
				return err
			}
			pdtIDs = append(pdtIDs, a.ID)
		}
		stalePDTs := tx.Where("control_id = ?", c.ID)
		if len(pdtIDs) > 0 {
			stalePDTs = stalePDTs.Where("id NOT IN ?", pdtIDs)
		}
		return stalePDTs.Delete(&models.AdditionalPDTModel{}).Error
	})
}

var clauseAssociations = []string{"Declarations", "AdditionalPDTs"}

// ListYears returns the fiscal years opened for a client, newest first
func (r *GormOperationalControlRepository) ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error) {
	var years []int
	if err := r.db.WithContext(ctx).
		Model(&models.OperationalControlModel{}).
		Where("client_id = ?", clientID).
		Order("year DESC").
		Pluck("year", &years).Error; err != nil {
		return nil, err
	}
	return years, nil
}
