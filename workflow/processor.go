package workflow

import (
	"context"
	"encoding/json"
	"strconv"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
	"bitbucket.org/mmdatafocus/siteops_backend/models"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const ReconcileHandlerName = "WO_RECONCILE"

// ProcessReconcileMessage is the consumer-side entry point for one outbox
// message, whether it arrived over Pub/Sub push or the in-process direct
// processor. It serializes per instance with an advisory lock, guards against
// redelivery with a durable idempotency key, runs the reconcile pass, then
// marks the outbox row.
//
// The reconcile writes themselves are per-field and idempotent, so a crash
// between them is repaired by the at-least-once redelivery.
func ProcessReconcileMessage(ctx context.Context, logger *logrus.Logger, m config.PubSubMessage) error {
	db := config.GetDB()

	ctx = utils.SetCompanyIdInContext(ctx, m.CompanyId)
	if m.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, m.CorrelationId)
	}

	var responses map[int]string
	if err := json.Unmarshal(m.NewObj, &responses); err != nil {
		// Malformed payload never becomes valid; record it and drop the message.
		config.LogError(logger, "workflow", "ProcessReconcileMessage", "unmarshal payload", string(m.NewObj), err)
		return models.MarkReconcileMessagePoisoned(ctx, db, m.ID, err)
	}

	messageId := strconv.Itoa(m.ID)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireInstanceReconcileLock(tx, m.ChecklistInstanceId); err != nil {
			return err
		}
		defer ReleaseInstanceReconcileLock(tx, m.ChecklistInstanceId)

		skip, err := BeginIdempotency(tx, m.CompanyId, ReconcileHandlerName, messageId)
		if err != nil {
			return err
		}
		if skip {
			logger.WithFields(logrus.Fields{
				"company_id": m.CompanyId,
				"message_id": messageId,
			}).Info("reconcile message already succeeded; skipping")
			return nil
		}

		r := NewReconciler(logger)
		if err := r.Reconcile(ctx, m.CompanyId, m.ChecklistInstanceId, m.TemplateId, responses); err != nil {
			_ = MarkIdempotencyFailed(tx, m.CompanyId, ReconcileHandlerName, messageId, err)
			return err
		}
		return MarkIdempotencySucceeded(tx, m.CompanyId, ReconcileHandlerName, messageId)
	})
	if err != nil {
		_ = models.MarkReconcileMessageFailed(ctx, db, m.ID, err)
		return err
	}
	return models.MarkReconcileMessageProcessed(ctx, db, m.ID)
}
