package workflow

import (
	"strings"

	"bitbucket.org/mmdatafocus/siteops_backend/models"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
)

// autoTriggerFailureValues maps auto-trigger-capable field types to the
// literal answers treated as failures (case-insensitive). Kept as data, not
// conditionals, so supporting a new field type is a single table edit.
var autoTriggerFailureValues = map[models.FieldType][]string{
	models.FieldTypePassFailFlag:    {"fail"},
	models.FieldTypeYesNoNa:         {"no"},
	models.FieldTypeConditionOption: {"poor"},
}

type TriggerVerdict struct {
	Matches bool
}

// FieldHasTriggerMode reports whether a field can ever spawn a work order.
// Fields that are neither manually trigger-enabled nor of an auto-trigger type
// are skipped entirely by the reconciler.
func FieldHasTriggerMode(field *models.TemplateField) bool {
	if field.ManualTriggerEnabled != nil && *field.ManualTriggerEnabled {
		return true
	}
	_, ok := autoTriggerFailureValues[field.Type]
	return ok
}

// EvaluateTrigger decides whether the current answer satisfies the field's
// trigger condition. Pure and total: no I/O, no errors, unknown types simply
// never match.
//
// Manual mode treats any non-empty answer as sufficient when no specific
// trigger value was configured; this permissive default is deliberate.
func EvaluateTrigger(field *models.TemplateField, answer string) TriggerVerdict {
	normalized := utils.NormalizeAnswer(answer)
	if normalized == "" {
		return TriggerVerdict{}
	}

	if field.ManualTriggerEnabled != nil && *field.ManualTriggerEnabled {
		if field.ManualTriggerValue == nil || strings.TrimSpace(*field.ManualTriggerValue) == "" {
			return TriggerVerdict{Matches: true}
		}
		return TriggerVerdict{Matches: normalized == utils.NormalizeAnswer(*field.ManualTriggerValue)}
	}

	for _, failure := range autoTriggerFailureValues[field.Type] {
		if normalized == failure {
			return TriggerVerdict{Matches: true}
		}
	}
	return TriggerVerdict{}
}

// InferWorkOrderType classifies a new work order: an explicit per-field
// override wins, otherwise the field type decides.
func InferWorkOrderType(field *models.TemplateField) models.WorkOrderType {
	if field.DefaultWorkOrderType != nil {
		return *field.DefaultWorkOrderType
	}
	switch field.Type {
	case models.FieldTypePassFailFlag, models.FieldTypeConditionOption:
		return models.WorkOrderTypeDefect
	case models.FieldTypeYesNoNa:
		return models.WorkOrderTypeSafety
	default:
		return models.WorkOrderTypeGeneral
	}
}
