package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReconcileMessageRecord implements the transactional outbox for work-order
// reconciliation: it is written inside the same DB transaction as the response
// mutation but is NOT published there. Publishing happens asynchronously after
// commit, so a response submission never fails because reconciliation can't run.
type ReconcileMessageRecord struct {
	ID                  int    `gorm:"primary_key;index:idx_reconcile_outbox,priority:3" json:"id"`
	CompanyId           string `gorm:"size:64;not null;index;index:idx_reconcile_outbox,priority:1" json:"company_id"`
	ChecklistInstanceId int    `gorm:"index;not null" json:"checklist_instance_id"`
	TemplateId          int    `gorm:"not null" json:"template_id"`
	NewObj              []byte `gorm:"type:blob" json:"new_obj"`
	IsProcessed         bool   `gorm:"index;not null;index:idx_reconcile_outbox,priority:2" json:"is_processed"`
	// Outbox publish metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING'" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	// Processing metadata (consumer/worker)
	LastProcessError *string    `gorm:"type:text" json:"last_process_error"`
	ProcessedAt      *time.Time `gorm:"index" json:"processed_at"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// EnqueueReconcileMessage writes the outbox record on the caller's transaction.
// responses is the instance's full field->answer map after the mutation.
func EnqueueReconcileMessage(ctx context.Context, tx *gorm.DB, companyId string, instanceId int, templateId int, responses map[int]string) error {
	newObj, err := json.Marshal(responses)
	if err != nil {
		return err
	}

	record := ReconcileMessageRecord{
		CompanyId:           companyId,
		ChecklistInstanceId: instanceId,
		TemplateId:          templateId,
		NewObj:              newObj,
		IsProcessed:         false,
		PublishStatus:       OutboxPublishStatusPending,
		CorrelationId:       correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToPubSubMessage(record ReconcileMessageRecord) config.PubSubMessage {
	return config.PubSubMessage{
		ID:                  record.ID,
		CompanyId:           record.CompanyId,
		ChecklistInstanceId: record.ChecklistInstanceId,
		TemplateId:          record.TemplateId,
		NewObj:              record.NewObj,
		CorrelationId:       record.CorrelationId,
		EnqueuedAt:          record.CreatedAt,
	}
}

// MarkReconcileMessageProcessed flags the outbox row done after the worker
// handler commits.
func MarkReconcileMessageProcessed(ctx context.Context, db *gorm.DB, recordId int) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&ReconcileMessageRecord{}).
		Where("id = ?", recordId).
		Updates(map[string]interface{}{
			"is_processed":       true,
			"processed_at":       &now,
			"last_process_error": nil,
		}).Error
}

// MarkReconcileMessagePoisoned retires a message that can never be processed
// (malformed payload). Unlike a normal processed mark, the recorded error
// stays on the row for inspection.
func MarkReconcileMessagePoisoned(ctx context.Context, db *gorm.DB, recordId int, processErr error) error {
	return db.WithContext(ctx).Model(&ReconcileMessageRecord{}).
		Where("id = ?", recordId).
		Updates(poisonedMessageUpdates(processErr, time.Now().UTC())).Error
}

func poisonedMessageUpdates(processErr error, now time.Time) map[string]interface{} {
	msg := ""
	if processErr != nil {
		msg = processErr.Error()
	}
	return map[string]interface{}{
		"is_processed":       true,
		"processed_at":       &now,
		"last_process_error": &msg,
	}
}

func MarkReconcileMessageFailed(ctx context.Context, db *gorm.DB, recordId int, processErr error) error {
	msg := ""
	if processErr != nil {
		msg = processErr.Error()
	}
	return db.WithContext(ctx).Model(&ReconcileMessageRecord{}).
		Where("id = ?", recordId).
		Update("last_process_error", &msg).Error
}
