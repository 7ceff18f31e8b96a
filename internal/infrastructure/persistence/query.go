package persistence

import (
	"errors"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// first loads the first row matching conds, mapping a missing row to
// shared.ErrNotFound
func first[M any](query *gorm.DB, conds ...any) (*M, error) {
	var model M
	if err := query.First(&model, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &model, nil
}
