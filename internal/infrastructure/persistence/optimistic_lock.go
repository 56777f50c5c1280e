package persistence

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate locks the selected rows until the transaction ends. SQLite has
// no row locks and drops the clause.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// guardedUpdate applies updates to the row with the given id only while
// guard still holds. A write that matches no row is reported as not found
// when the row is gone and as a concurrency conflict otherwise.
func guardedUpdate(db *gorm.DB, model any, entity string, id uuid.UUID, guard string, guardArg any, updates map[string]any) error {
	result := db.Model(model).
		Where("id = ? AND "+guard, id, guardArg).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return finance.NewNotFoundError(entity, id)
	}
	return shared.ErrConcurrencyConflict.WithMessage(
		fmt.Sprintf("%s %s was modified by another process", entity, id))
}
