package tasks

import (
	"context"
	"time"

	"bandar/models"

	"gorm.io/gorm"
)

// PruneDeliveries hard-deletes the attempt history of every wager whose
// callback was delivered before now-retention. Wagers that were never
// delivered keep their history.
func PruneDeliveries(ctx context.Context, db *gorm.DB, retention time.Duration, now time.Time) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-retention)

	delivered := db.Model(&models.CallbackDelivery{}).
		Select("wager_code").
		Where("status = ? AND created_at < ?", models.DeliveryDelivered, cutoff)

	result := db.WithContext(ctx).Unscoped().
		Where("wager_code IN (?)", delivered).
		Delete(&models.CallbackDelivery{})
	return result.RowsAffected, result.Error
}
