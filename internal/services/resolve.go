// internal/services/resolve.go
package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resolveOrCreate finds the row matching conds or inserts fresh. The insert is
// ON CONFLICT DO NOTHING, so a concurrent first sighting of the same key makes
// it a no-op and the next select returns the other writer's row.
func resolveOrCreate[T any](tx *gorm.DB, attempts int, conds map[string]interface{}, conflict []string, fresh *T) (*T, bool, error) {
	if attempts < 1 {
		attempts = 1
	}

	columns := make([]clause.Column, 0, len(conflict))
	for _, name := range conflict {
		columns = append(columns, clause.Column{Name: name})
	}

	for attempt := 0; attempt < attempts; attempt++ {
		var row T
		res := tx.Where(conds).Limit(1).Find(&row)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected > 0 {
			return &row, false, nil
		}

		res = tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: columns, DoNothing: true}).
			Create(fresh)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected > 0 {
			return fresh, true, nil
		}
	}

	return nil, false, errResolveExhausted
}
