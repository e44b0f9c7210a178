package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChecklistInstance is one filled-out occurrence of a template. Its status
// lifecycle (draft -> in_progress -> completed -> signed_off -> cancelled) is
// owned by the checklist module; reconciliation only reads the responses.
type ChecklistInstance struct {
	ID                  int                 `gorm:"primary_key" json:"id"`
	CompanyId           string              `gorm:"size:64;index;not null" json:"company_id"`
	ChecklistTemplateId int                 `gorm:"index;not null" json:"checklist_template_id" binding:"required"`
	Reference           string              `gorm:"size:255" json:"reference"`
	InspectorId         int                 `gorm:"index" json:"inspector_id"`
	Status              ChecklistStatus     `gorm:"type:enum('draft','in_progress','completed','signed_off','cancelled');default:draft" json:"status"`
	Responses           []ChecklistResponse `json:"responses"`
	CreatedAt           time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChecklistResponse holds the inspector's most recent answer for one field.
// At most one row per (instance, field).
type ChecklistResponse struct {
	ID                  int       `gorm:"primary_key" json:"id"`
	ChecklistInstanceId int       `gorm:"not null;index:uniq_instance_field,unique" json:"checklist_instance_id"`
	TemplateFieldId     int       `gorm:"not null;index:uniq_instance_field,unique" json:"template_field_id"`
	Answer              string    `gorm:"size:1024" json:"answer"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewChecklistInstance struct {
	ChecklistTemplateId int    `json:"checklist_template_id" binding:"required"`
	Reference           string `json:"reference"`
}

type ResponseInput struct {
	TemplateFieldId int    `json:"template_field_id" binding:"required"`
	Answer          string `json:"answer"`
}

func CreateChecklistInstance(ctx context.Context, input *NewChecklistInstance) (*ChecklistInstance, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := utils.ValidateResourceId[ChecklistTemplate](ctx, companyId, input.ChecklistTemplateId); err != nil {
		return nil, errors.New("checklist template not found")
	}

	inspectorId, _ := utils.GetUserIdFromContext(ctx)
	instance := ChecklistInstance{
		CompanyId:           companyId,
		ChecklistTemplateId: input.ChecklistTemplateId,
		Reference:           input.Reference,
		InspectorId:         inspectorId,
		Status:              ChecklistStatusDraft,
	}
	if err := db.WithContext(ctx).Create(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

func GetChecklistInstance(ctx context.Context, instanceId int) (*ChecklistInstance, error) {
	db := config.GetDB()

	var instance ChecklistInstance
	err := db.WithContext(ctx).
		Preload("Responses").
		Where("id = ?", instanceId).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &instance, nil
}

// UpdateChecklistResponses persists submitted/edited answers and enqueues a
// reconcile message in the SAME transaction. The response write always commits
// first; work-order derivation is asynchronous and at-least-once, so the
// inspector's submission never fails because reconciliation can't run.
func UpdateChecklistResponses(ctx context.Context, instanceId int, inputs []ResponseInput) (*ChecklistInstance, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	instance, err := GetChecklistInstance(ctx, instanceId)
	if err != nil {
		return nil, err
	}
	if instance.Status == ChecklistStatusCancelled {
		return nil, errors.New("checklist has been cancelled")
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, in := range inputs {
			row := ChecklistResponse{
				ChecklistInstanceId: instanceId,
				TemplateFieldId:     in.TemplateFieldId,
				Answer:              in.Answer,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "checklist_instance_id"}, {Name: "template_field_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}

		responses, err := responsesMapTx(tx, instanceId)
		if err != nil {
			return err
		}
		return EnqueueReconcileMessage(ctx, tx, companyId, instanceId, instance.ChecklistTemplateId, responses)
	})
	if err != nil {
		return nil, err
	}

	return GetChecklistInstance(ctx, instanceId)
}

// ResponsesMap returns the instance's current field->answer map.
func ResponsesMap(ctx context.Context, instanceId int) (map[int]string, error) {
	db := config.GetDB()
	return responsesMapTx(db.WithContext(ctx), instanceId)
}

func responsesMapTx(tx *gorm.DB, instanceId int) (map[int]string, error) {
	var rows []ChecklistResponse
	if err := tx.Where("checklist_instance_id = ?", instanceId).Find(&rows).Error; err != nil {
		return nil, err
	}
	responses := make(map[int]string, len(rows))
	for _, r := range rows {
		responses[r.TemplateFieldId] = r.Answer
	}
	return responses, nil
}
