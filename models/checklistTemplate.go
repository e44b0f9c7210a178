package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	"gorm.io/gorm"
)

// ChecklistTemplate defines the ordered sections/fields an inspection is
// rendered from. Templates are versioned by row; instances keep their
// template id even after the template is deleted.
type ChecklistTemplate struct {
	ID        int               `gorm:"primary_key" json:"id"`
	CompanyId string            `gorm:"size:64;index;not null" json:"company_id"`
	Name      string            `gorm:"size:100;not null" json:"name" binding:"required"`
	IsActive  *bool             `gorm:"not null;default:true" json:"is_active"`
	Sections  []TemplateSection `json:"sections"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type TemplateSection struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	ChecklistTemplateId int             `gorm:"index;not null" json:"checklist_template_id"`
	Name                string          `gorm:"size:100;not null" json:"name" binding:"required"`
	SortOrder           int             `gorm:"not null;default:0" json:"sort_order"`
	Fields              []TemplateField `json:"fields"`
}

type TemplateField struct {
	ID                   int            `gorm:"primary_key" json:"id"`
	TemplateSectionId    int            `gorm:"index;not null" json:"template_section_id"`
	Name                 string         `gorm:"size:255;not null" json:"name" binding:"required"`
	Type                 FieldType      `gorm:"type:enum('pass_fail_flag','yes_no_na','condition_option','text','number','date','select');default:text" json:"type"`
	ManualTriggerEnabled *bool          `gorm:"not null;default:false" json:"manual_trigger_enabled"`
	ManualTriggerValue   *string        `gorm:"size:255;default:null" json:"manual_trigger_value"`
	DefaultWorkOrderType *WorkOrderType `gorm:"type:enum('defect','safety','maintenance','general');default:null" json:"default_work_order_type"`
	SortOrder            int            `gorm:"not null;default:0" json:"sort_order"`
}

type NewChecklistTemplate struct {
	Name     string               `json:"name" binding:"required"`
	Sections []NewTemplateSection `json:"sections" binding:"required,dive"`
}

type NewTemplateSection struct {
	Name   string             `json:"name" binding:"required"`
	Fields []NewTemplateField `json:"fields" binding:"required,dive"`
}

type NewTemplateField struct {
	Name                 string         `json:"name" binding:"required"`
	Type                 FieldType      `json:"type"`
	ManualTriggerEnabled *bool          `json:"manual_trigger_enabled"`
	ManualTriggerValue   *string        `json:"manual_trigger_value"`
	DefaultWorkOrderType *WorkOrderType `json:"default_work_order_type"`
}

func templateCacheKey(companyId string, templateId int) string {
	return fmt.Sprintf("tmpl:%s:%d", companyId, templateId)
}

func CreateChecklistTemplate(ctx context.Context, input *NewChecklistTemplate) (*ChecklistTemplate, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	template := ChecklistTemplate{
		CompanyId: companyId,
		Name:      input.Name,
		IsActive:  utils.NewTrue(),
	}
	for si, s := range input.Sections {
		section := TemplateSection{
			Name:      s.Name,
			SortOrder: si,
		}
		for fi, f := range s.Fields {
			fieldType := f.Type
			if fieldType == "" {
				fieldType = FieldTypeText
			}
			if _, err := ParseFieldType(string(fieldType)); err != nil {
				return nil, err
			}
			section.Fields = append(section.Fields, TemplateField{
				Name:                 f.Name,
				Type:                 fieldType,
				ManualTriggerEnabled: f.ManualTriggerEnabled,
				ManualTriggerValue:   f.ManualTriggerValue,
				DefaultWorkOrderType: f.DefaultWorkOrderType,
				SortOrder:            fi,
			})
		}
		template.Sections = append(template.Sections, section)
	}

	if err := db.WithContext(ctx).Create(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// GetChecklistTemplate loads a template with its ordered sections and fields,
// read-through cached in redis. Returns utils.ErrorRecordNotFound when absent.
func GetChecklistTemplate(ctx context.Context, templateId int) (*ChecklistTemplate, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	var template ChecklistTemplate
	if !config.DisableTemplateCache() {
		exists, err := config.GetRedisObject(templateCacheKey(companyId, templateId), &template)
		if err == nil && exists {
			return &template, nil
		}
	}

	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Sections.Fields", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Where("id = ?", templateId).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	if !config.DisableTemplateCache() {
		_ = config.SetRedisObject(templateCacheKey(companyId, templateId), &template, 10*time.Minute)
	}
	return &template, nil
}

func ListChecklistTemplates(ctx context.Context) ([]*ChecklistTemplate, error) {
	db := config.GetDB()

	var templates []*ChecklistTemplate
	if err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// DeleteChecklistTemplate deactivates a template. Instances created from it
// remain readable; the reconciler treats a missing/inactive template as a no-op.
func DeleteChecklistTemplate(ctx context.Context, templateId int) error {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return errors.New("company id is required")
	}

	result := db.WithContext(ctx).Model(&ChecklistTemplate{}).
		Where("id = ?", templateId).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return config.RemoveRedisKey(templateCacheKey(companyId, templateId))
}
