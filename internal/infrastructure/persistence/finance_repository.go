package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientFinanceRepository implements finance.ClientFinanceRepository using GORM
type GormClientFinanceRepository struct {
	db *gorm.DB
}

// NewGormClientFinanceRepository creates a new GormClientFinanceRepository
func NewGormClientFinanceRepository(db *gorm.DB) *GormClientFinanceRepository {
	return &GormClientFinanceRepository{db: db}
}

func preloadPayments(db *gorm.DB) *gorm.DB {
	return db.Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("month ASC")
	}).Preload("Payments.Transactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("payment_date DESC, created_at DESC")
	})
}

// FindByClientAndYear loads a fiscal year with its slots and transactions
func (r *GormClientFinanceRepository) FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*finance.ClientFinance, error) {
	model, err := first[models.ClientFinanceModel](r.db.WithContext(ctx).Scopes(preloadPayments),
		"client_id = ? AND year = ?", clientID, year)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPayment loads the fiscal year owning a payment slot of the client
func (r *GormClientFinanceRepository) FindByPayment(ctx context.Context, clientID, paymentID uuid.UUID) (*finance.ClientFinance, error) {
	db := r.db.WithContext(ctx)
	owner := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.MonthlyPaymentModel{}).
		Select("finance_id").
		Where("id = ?", paymentID)
	model, err := first[models.ClientFinanceModel](db.Scopes(preloadPayments),
		"client_id = ? AND id IN (?)", clientID, owner)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts a new fiscal year with its slots, or persists fee and slot
// changes of an existing one
func (r *GormClientFinanceRepository) Save(ctx context.Context, f *finance.ClientFinance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.ClientFinanceModel{}).Where("id = ?", f.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			model := &models.ClientFinanceModel{}
			model.FromDomain(f)
			if err := tx.Create(model).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.ErrAlreadyExists
				}
				return err
			}
			return r.insertTransactions(tx, f, nil)
		}
		return r.persist(tx, f, nil)
	})
}

// UpdateLocked runs fn on the fiscal year while holding its row lock. The
// version stored must still be the one read under the lock.
func (r *GormClientFinanceRepository) UpdateLocked(ctx context.Context, financeID uuid.UUID, fn func(f *finance.ClientFinance) error) (*finance.ClientFinance, error) {
	var result *finance.ClientFinance
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := first[models.ClientFinanceModel](tx.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", financeID); err != nil {
			return err
		}
		model, err := first[models.ClientFinanceModel](tx.Scopes(preloadPayments), "id = ?", financeID)
		if err != nil {
			return err
		}

		f := model.ToDomain()
		known := make(map[uuid.UUID]bool)
		for _, p := range f.Payments {
			for _, t := range p.Transactions {
				known[t.ID] = true
			}
		}

		if err := fn(f); err != nil {
			return err
		}

		expected := model.Version
		f.Version = expected + 1
		if err := r.persist(tx, f, &expected); err != nil {
			return err
		}
		if err := r.insertTransactions(tx, f, known); err != nil {
			return err
		}
		result = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListYears returns the fiscal years opened for a client, newest first
func (r *GormClientFinanceRepository) ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error) {
	var years []int
	if err := r.db.WithContext(ctx).
		Model(&models.ClientFinanceModel{}).
		Where("client_id = ?", clientID).
		Order("year DESC").
		Pluck("year", &years).Error; err != nil {
		return nil, err
	}
	return years, nil
}

// persist writes fees and every slot. A non-nil expected version turns the
// header update into a compare-and-set.
func (r *GormClientFinanceRepository) persist(tx *gorm.DB, f *finance.ClientFinance, expected *int) error {
	now := time.Now().UTC()
	query := tx.Model(&models.ClientFinanceModel{}).Where("id = ?", f.ID)
	if expected != nil {
		query = query.Where("version = ?", *expected)
	}
	result := query.Updates(map[string]any{
		"annual_fee":  f.AnnualFee,
		"monthly_fee": f.MonthlyFee,
		"version":     f.Version,
		"updated_at":  now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if expected != nil {
			return shared.ErrConcurrencyConflict
		}
		return shared.ErrNotFound
	}

	for _, p := range f.Payments {
		pm := models.MonthlyPaymentModel{}
		pm.FromDomain(p)
		if pm.CreatedAt.IsZero() {
			pm.CreatedAt = now
		}
		pm.UpdatedAt = now
		if err := tx.Omit("Transactions").Save(&pm).Error; err != nil {
			return err
		}
	}
	return nil
}

// insertTransactions appends transactions whose id is not in known
func (r *GormClientFinanceRepository) insertTransactions(tx *gorm.DB, f *finance.ClientFinance, known map[uuid.UUID]bool) error {
	var fresh []*models.PaymentTransactionModel
	for _, p := range f.Payments {
		for _, t := range p.Transactions {
			if !known[t.ID] {
				fresh = append(fresh, models.PaymentTransactionModelFromDomain(t))
			}
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	return tx.Create(&fresh).Error
}
