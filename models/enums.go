package models

import "errors"

type FieldType string

const (
	FieldTypePassFailFlag    FieldType = "pass_fail_flag"
	FieldTypeYesNoNa         FieldType = "yes_no_na"
	FieldTypeConditionOption FieldType = "condition_option"
	FieldTypeText            FieldType = "text"
	FieldTypeNumber          FieldType = "number"
	FieldTypeDate            FieldType = "date"
	FieldTypeSelect          FieldType = "select"
)

var fieldTypes = map[string]FieldType{
	"pass_fail_flag":   FieldTypePassFailFlag,
	"yes_no_na":        FieldTypeYesNoNa,
	"condition_option": FieldTypeConditionOption,
	"text":             FieldTypeText,
	"number":           FieldTypeNumber,
	"date":             FieldTypeDate,
	"select":           FieldTypeSelect,
}

func ParseFieldType(s string) (FieldType, error) {
	t, ok := fieldTypes[s]
	if !ok {
		return "", errors.New("invalid field type")
	}
	return t, nil
}

type WorkOrderType string

const (
	WorkOrderTypeDefect      WorkOrderType = "defect"
	WorkOrderTypeSafety      WorkOrderType = "safety"
	WorkOrderTypeMaintenance WorkOrderType = "maintenance"
	WorkOrderTypeGeneral     WorkOrderType = "general"
)

var workOrderTypes = map[string]WorkOrderType{
	"defect":      WorkOrderTypeDefect,
	"safety":      WorkOrderTypeSafety,
	"maintenance": WorkOrderTypeMaintenance,
	"general":     WorkOrderTypeGeneral,
}

func ParseWorkOrderType(s string) (WorkOrderType, error) {
	t, ok := workOrderTypes[s]
	if !ok {
		return "", errors.New("invalid work order type")
	}
	return t, nil
}

type WorkOrderStatus string

const (
	WorkOrderStatusOpen       WorkOrderStatus = "open"
	WorkOrderStatusInProgress WorkOrderStatus = "in_progress"
	WorkOrderStatusResolved   WorkOrderStatus = "resolved"
	WorkOrderStatusClosed     WorkOrderStatus = "closed"
	WorkOrderStatusCancelled  WorkOrderStatus = "cancelled"
)

var workOrderStatuses = map[string]WorkOrderStatus{
	"open":        WorkOrderStatusOpen,
	"in_progress": WorkOrderStatusInProgress,
	"resolved":    WorkOrderStatusResolved,
	"closed":      WorkOrderStatusClosed,
	"cancelled":   WorkOrderStatusCancelled,
}

func ParseWorkOrderStatus(s string) (WorkOrderStatus, error) {
	t, ok := workOrderStatuses[s]
	if !ok {
		return "", errors.New("invalid work order status")
	}
	return t, nil
}

type WorkOrderPriority string

const (
	WorkOrderPriorityLow    WorkOrderPriority = "low"
	WorkOrderPriorityMedium WorkOrderPriority = "medium"
	WorkOrderPriorityHigh   WorkOrderPriority = "high"
	WorkOrderPriorityUrgent WorkOrderPriority = "urgent"
)

var workOrderPriorities = map[string]WorkOrderPriority{
	"low":    WorkOrderPriorityLow,
	"medium": WorkOrderPriorityMedium,
	"high":   WorkOrderPriorityHigh,
	"urgent": WorkOrderPriorityUrgent,
}

func ParseWorkOrderPriority(s string) (WorkOrderPriority, error) {
	t, ok := workOrderPriorities[s]
	if !ok {
		return "", errors.New("invalid work order priority")
	}
	return t, nil
}

// AssignmentFilter narrows work order listings by assignment presence.
type AssignmentFilter string

const (
	AssignmentFilterMine       AssignmentFilter = "mine"
	AssignmentFilterAssigned   AssignmentFilter = "assigned"
	AssignmentFilterUnassigned AssignmentFilter = "unassigned"
)

// ChecklistStatus is the instance lifecycle. It is owned by the checklist
// module; the reconciler never reads or writes it.
type ChecklistStatus string

const (
	ChecklistStatusDraft      ChecklistStatus = "draft"
	ChecklistStatusInProgress ChecklistStatus = "in_progress"
	ChecklistStatusCompleted  ChecklistStatus = "completed"
	ChecklistStatusSignedOff  ChecklistStatus = "signed_off"
	ChecklistStatusCancelled  ChecklistStatus = "cancelled"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
