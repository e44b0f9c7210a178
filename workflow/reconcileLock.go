package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireInstanceReconcileLock serializes reconciliation per checklist instance
// across workers using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the reconcile pass.
func AcquireInstanceReconcileLock(tx *gorm.DB, instanceId int) error {
	lockName := fmt.Sprintf("reconcile:%d", instanceId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire reconcile lock for instance_id=%d", instanceId)
	}
	return nil
}

func ReleaseInstanceReconcileLock(tx *gorm.DB, instanceId int) {
	lockName := fmt.Sprintf("reconcile:%d", instanceId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
