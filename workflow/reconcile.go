package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
	"bitbucket.org/mmdatafocus/siteops_backend/models"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	"github.com/sirupsen/logrus"
)

// ReconcileStore is the persistence surface the reconciler needs. The gorm
// implementation delegates to the models package; tests swap in a fake.
type ReconcileStore interface {
	GetTemplate(ctx context.Context, templateId int) (*models.ChecklistTemplate, error)
	ActiveWorkOrders(ctx context.Context, instanceId int, fieldId int) ([]models.WorkOrder, error)
	InsertWorkOrder(ctx context.Context, wo *models.WorkOrder) error
	UpdateWorkOrderResult(ctx context.Context, id int, result string) error
	AutoCancelWorkOrder(ctx context.Context, id int) error
}

type gormReconcileStore struct{}

func (gormReconcileStore) GetTemplate(ctx context.Context, templateId int) (*models.ChecklistTemplate, error) {
	return models.GetChecklistTemplate(ctx, templateId)
}

func (gormReconcileStore) ActiveWorkOrders(ctx context.Context, instanceId int, fieldId int) ([]models.WorkOrder, error) {
	return models.GetActiveWorkOrders(ctx, instanceId, fieldId)
}

func (gormReconcileStore) InsertWorkOrder(ctx context.Context, wo *models.WorkOrder) error {
	return models.InsertWorkOrder(ctx, wo)
}

func (gormReconcileStore) UpdateWorkOrderResult(ctx context.Context, id int, result string) error {
	return models.UpdateWorkOrderResult(ctx, id, result)
}

func (gormReconcileStore) AutoCancelWorkOrder(ctx context.Context, id int) error {
	return models.AutoCancelWorkOrder(ctx, id)
}

// Reconciler derives work orders from checklist answers. It is the sole writer
// of answer-triggered work order rows; operator mutations go through the
// lifecycle functions in models.
type Reconciler struct {
	Store  ReconcileStore
	Logger *logrus.Logger
}

func NewReconciler(logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		Store:  gormReconcileStore{},
		Logger: logger,
	}
}

// Reconcile evaluates every trigger-capable field of the instance's template
// against the supplied answers and converges the work order set:
// match+none -> create, match+existing -> refresh result only,
// no-match+open -> auto-cancel, anything else -> leave alone.
//
// A failure on one field never aborts the remaining fields; per-field errors
// are logged and joined into the returned error so the caller can retry the
// whole pass (every step here is idempotent).
func (r *Reconciler) Reconcile(ctx context.Context, companyId string, instanceId int, templateId int, responses map[int]string) error {
	template, err := r.Store.GetTemplate(ctx, templateId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			r.Logger.WithFields(logrus.Fields{
				"company_id":  companyId,
				"instance_id": instanceId,
				"template_id": templateId,
			}).Warn("reconcile skipped: template no longer exists")
			return nil
		}
		return err
	}
	if template.IsActive != nil && !*template.IsActive {
		// Deleting a template deactivates it; instances stay readable but
		// answer edits stop driving work orders.
		r.Logger.WithFields(logrus.Fields{
			"company_id":  companyId,
			"instance_id": instanceId,
			"template_id": templateId,
		}).Warn("reconcile skipped: template deactivated")
		return nil
	}

	var fieldErrs []error
	for _, section := range template.Sections {
		for i := range section.Fields {
			field := &section.Fields[i]
			if !FieldHasTriggerMode(field) {
				continue
			}
			if err := r.reconcileField(ctx, companyId, instanceId, section.Name, field, responses[field.ID]); err != nil {
				config.LogError(r.Logger, "workflow", "Reconcile", fmt.Sprintf("instance %d field %d", instanceId, field.ID), nil, err)
				fieldErrs = append(fieldErrs, fmt.Errorf("field %d: %w", field.ID, err))
			}
		}
	}
	return errors.Join(fieldErrs...)
}

func (r *Reconciler) reconcileField(ctx context.Context, companyId string, instanceId int, sectionName string, field *models.TemplateField, answer string) error {
	verdict := EvaluateTrigger(field, answer)

	existing, err := r.Store.ActiveWorkOrders(ctx, instanceId, field.ID)
	if err != nil {
		return err
	}
	if len(existing) > 1 {
		// At-most-one is enforced by the unique active key; more than one row
		// means data predating the constraint or a bug upstream. First row is
		// canonical.
		r.Logger.WithFields(logrus.Fields{
			"company_id":  companyId,
			"instance_id": instanceId,
			"field_id":    field.ID,
			"count":       len(existing),
		}).Error("multiple active work orders for one field; treating first as canonical")
	}

	if verdict.Matches {
		if len(existing) > 0 {
			return r.Store.UpdateWorkOrderResult(ctx, existing[0].ID, answer)
		}
		return r.createWorkOrder(ctx, companyId, instanceId, sectionName, field, answer)
	}

	if len(existing) > 0 && existing[0].Status == models.WorkOrderStatusOpen {
		return r.Store.AutoCancelWorkOrder(ctx, existing[0].ID)
	}
	return nil
}

func (r *Reconciler) createWorkOrder(ctx context.Context, companyId string, instanceId int, sectionName string, field *models.TemplateField, answer string) error {
	manual := field.ManualTriggerEnabled != nil && *field.ManualTriggerEnabled

	triggerValue := answer
	if manual && field.ManualTriggerValue != nil && *field.ManualTriggerValue != "" {
		triggerValue = *field.ManualTriggerValue
	}

	var details string
	if manual {
		details = fmt.Sprintf("%q reported %q during inspection", field.Name, answer)
	} else {
		details = fmt.Sprintf("auto-detected failure: %q answered %q during inspection", field.Name, answer)
	}

	fieldId := field.ID
	wo := &models.WorkOrder{
		CompanyId:           companyId,
		ChecklistInstanceId: instanceId,
		TemplateFieldId:     field.ID,
		ActiveFieldId:       &fieldId,
		SectionName:         sectionName,
		FieldName:           field.Name,
		TriggerValue:        triggerValue,
		Result:              answer,
		Details:             details,
		WorkOrderType:       InferWorkOrderType(field),
		Priority:            models.WorkOrderPriorityLow,
		Status:              models.WorkOrderStatusOpen,
	}
	err := r.Store.InsertWorkOrder(ctx, wo)
	if err == nil {
		return nil
	}
	if !isDuplicateKeyErr(err) {
		return err
	}

	// A concurrent pass won the insert race on the active unique key; fall
	// through to the update-only path against the surviving row.
	existing, lookupErr := r.Store.ActiveWorkOrders(ctx, instanceId, field.ID)
	if lookupErr != nil {
		return lookupErr
	}
	if len(existing) == 0 {
		return err
	}
	return r.Store.UpdateWorkOrderResult(ctx, existing[0].ID, answer)
}
