package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AutoCancelResolutionNote is the fixed system-authored note written when the
// reconciler cancels an open work order because its answer no longer triggers.
const AutoCancelResolutionNote = "Auto-cancelled: response changed to non-trigger value"

// WorkOrder is a corrective-action record derived from a triggering checklist
// answer. Its resolution lifecycle is independent of the checklist's own status.
//
// ActiveFieldId mirrors TemplateFieldId while the work order is non-cancelled
// and is NULLed on cancellation. The unique index over
// (checklist_instance_id, active_field_id) therefore enforces "at most one
// non-cancelled work order per (instance, field)" at the database level; MySQL
// unique indexes ignore NULL, so any number of cancelled rows may accumulate.
type WorkOrder struct {
	ID                  int    `gorm:"primary_key" json:"id"`
	CompanyId           string `gorm:"size:64;index;not null" json:"company_id"`
	ChecklistInstanceId int    `gorm:"index;not null;index:uniq_instance_active_field,unique" json:"checklist_instance_id"`
	TemplateFieldId     int    `gorm:"not null" json:"template_field_id"`
	ActiveFieldId       *int   `gorm:"index:uniq_instance_active_field,unique" json:"-"`

	// Captured at creation time, not re-synced if the template later changes.
	SectionName string `gorm:"size:100" json:"section_name"`
	FieldName   string `gorm:"size:255" json:"field_name"`

	TriggerValue string `gorm:"size:255" json:"trigger_value"`
	Result       string `gorm:"size:1024" json:"result"`
	Details      string `gorm:"type:text" json:"details"`

	WorkOrderType WorkOrderType     `gorm:"type:enum('defect','safety','maintenance','general');default:general" json:"work_order_type"`
	Priority      WorkOrderPriority `gorm:"type:enum('low','medium','high','urgent');default:low" json:"priority"`
	Status        WorkOrderStatus   `gorm:"type:enum('open','in_progress','resolved','closed','cancelled');default:open;index" json:"status"`

	AssignedTo    *int             `gorm:"index" json:"assigned_to"`
	SupplierId    int              `gorm:"index" json:"supplier_id"`
	SupplierName  string           `gorm:"size:100" json:"supplier_name"`
	DueDate       *time.Time       `json:"due_date"`
	EstimatedCost *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"estimated_cost"`

	ResolvedBy      *int       `json:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// workOrderTransitions is the lifecycle state machine:
// open -> in_progress -> resolved -> closed, cancelled reachable from any
// non-terminal state by operator action (and from open by the reconciler).
// closed and cancelled are terminal; a re-triggering answer creates a NEW
// work order rather than reviving a cancelled one.
var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderStatusOpen:       {WorkOrderStatusInProgress, WorkOrderStatusResolved, WorkOrderStatusCancelled},
	WorkOrderStatusInProgress: {WorkOrderStatusOpen, WorkOrderStatusResolved, WorkOrderStatusCancelled},
	WorkOrderStatusResolved:   {WorkOrderStatusInProgress, WorkOrderStatusClosed, WorkOrderStatusCancelled},
	WorkOrderStatusClosed:     {},
	WorkOrderStatusCancelled:  {},
}

func CanTransitionWorkOrder(from, to WorkOrderStatus) bool {
	for _, allowed := range workOrderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func isTerminalWorkOrderStatus(s WorkOrderStatus) bool {
	return s == WorkOrderStatusClosed || s == WorkOrderStatusCancelled
}

func GetWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {
	db := config.GetDB()

	var wo WorkOrder
	if err := db.WithContext(ctx).Where("id = ?", id).First(&wo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &wo, nil
}

// GetActiveWorkOrders returns all non-cancelled work orders for one
// (instance, field), ordered by id. By invariant there is at most one; the
// reconciler treats extra rows as an invariant violation and alerts.
func GetActiveWorkOrders(ctx context.Context, instanceId int, fieldId int) ([]WorkOrder, error) {
	db := config.GetDB()

	var rows []WorkOrder
	err := db.WithContext(ctx).
		Where("checklist_instance_id = ? AND active_field_id = ?", instanceId, fieldId).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func InsertWorkOrder(ctx context.Context, wo *WorkOrder) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(wo).Error
}

// UpdateWorkOrderResult records a recurring failure answer. Only result and
// updated_at move; status, assignment and resolution fields are never touched
// here, so human progress survives repeated trigger matches.
func UpdateWorkOrderResult(ctx context.Context, id int, result string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&WorkOrder{}).
		Where("id = ?", id).
		Update("result", result).Error
}

// AutoCancelWorkOrder cancels an OPEN work order whose answer stopped
// triggering. The status guard is in the WHERE clause so a concurrent operator
// transition can't be clobbered; zero rows affected means the order had
// already left open and is deliberately left alone.
func AutoCancelWorkOrder(ctx context.Context, id int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&WorkOrder{}).
		Where("id = ? AND status = ?", id, WorkOrderStatusOpen).
		Updates(map[string]interface{}{
			"status":           WorkOrderStatusCancelled,
			"resolution_notes": AutoCancelResolutionNote,
			"active_field_id":  nil,
		}).Error
}

type UpdateWorkOrderInput struct {
	Status          *WorkOrderStatus   `json:"status"`
	Priority        *WorkOrderPriority `json:"priority"`
	WorkOrderType   *WorkOrderType     `json:"work_order_type"`
	SupplierId      *int               `json:"supplier_id"`
	DueDate         *time.Time         `json:"due_date"`
	EstimatedCost   *decimal.Decimal   `json:"estimated_cost"`
	Details         *string            `json:"details"`
	ResolutionNotes *string            `json:"resolution_notes"`
}

// UpdateWorkOrder applies operator edits. Classification and scheduling fields
// are freely editable in any non-terminal state; a status change goes through
// the lifecycle state machine via TransitionWorkOrder.
func UpdateWorkOrder(ctx context.Context, id int, input *UpdateWorkOrderInput) (*WorkOrder, error) {
	db := config.GetDB()

	wo, err := GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Priority != nil {
		if _, err := ParseWorkOrderPriority(string(*input.Priority)); err != nil {
			return nil, err
		}
		updates["priority"] = *input.Priority
	}
	if input.WorkOrderType != nil {
		if _, err := ParseWorkOrderType(string(*input.WorkOrderType)); err != nil {
			return nil, err
		}
		updates["work_order_type"] = *input.WorkOrderType
	}
	if input.SupplierId != nil {
		supplier, err := GetSupplier(ctx, *input.SupplierId)
		if err != nil {
			return nil, errors.New("supplier not found")
		}
		updates["supplier_id"] = supplier.ID
		updates["supplier_name"] = supplier.Name
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if input.EstimatedCost != nil {
		updates["estimated_cost"] = *input.EstimatedCost
	}
	if input.Details != nil {
		updates["details"] = *input.Details
	}

	if len(updates) > 0 {
		if isTerminalWorkOrderStatus(wo.Status) {
			return nil, errors.New("work order is " + string(wo.Status) + " and can no longer be edited")
		}
		if err := db.WithContext(ctx).Model(&WorkOrder{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	if input.Status != nil && *input.Status != wo.Status {
		if _, err := TransitionWorkOrder(ctx, id, *input.Status, input.ResolutionNotes); err != nil {
			return nil, err
		}
	} else if input.ResolutionNotes != nil && !isTerminalWorkOrderStatus(wo.Status) {
		if err := db.WithContext(ctx).Model(&WorkOrder{}).Where("id = ?", id).
			Update("resolution_notes", *input.ResolutionNotes).Error; err != nil {
			return nil, err
		}
	}

	return GetWorkOrder(ctx, id)
}

// TransitionWorkOrder moves a work order through its lifecycle on behalf of an
// operator. Transitions into resolved/closed require an actor identity in the
// context and stamp resolved_by/resolved_at. Cancellation releases the active
// unique key so a later re-trigger creates a fresh work order.
func TransitionWorkOrder(ctx context.Context, id int, newStatus WorkOrderStatus, resolutionNotes *string) (*WorkOrder, error) {
	db := config.GetDB()

	if _, err := ParseWorkOrderStatus(string(newStatus)); err != nil {
		return nil, err
	}

	wo, err := GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionWorkOrder(wo.Status, newStatus) {
		return nil, errors.New("cannot transition work order from " + string(wo.Status) + " to " + string(newStatus))
	}

	updates := map[string]interface{}{
		"status": newStatus,
	}
	if resolutionNotes != nil {
		updates["resolution_notes"] = *resolutionNotes
	}

	switch newStatus {
	case WorkOrderStatusResolved, WorkOrderStatusClosed:
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok || userId == 0 {
			return nil, errors.New("an actor identity is required to resolve or close a work order")
		}
		now := time.Now().UTC()
		updates["resolved_by"] = userId
		updates["resolved_at"] = &now
	case WorkOrderStatusCancelled:
		updates["active_field_id"] = nil
	}

	// Status guard in WHERE: a concurrent transition loses cleanly instead of
	// overwriting.
	result := db.WithContext(ctx).Model(&WorkOrder{}).
		Where("id = ? AND status = ?", id, wo.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errors.New("work order status changed concurrently; retry")
	}

	return GetWorkOrder(ctx, id)
}

// AssignWorkOrder sets or clears the assignee. nil unassigns.
func AssignWorkOrder(ctx context.Context, id int, userId *int) (*WorkOrder, error) {
	db := config.GetDB()

	wo, err := GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if isTerminalWorkOrderStatus(wo.Status) {
		return nil, errors.New("work order is " + string(wo.Status) + " and can no longer be edited")
	}
	if userId != nil {
		companyId, _ := utils.GetCompanyIdFromContext(ctx)
		if err := utils.ValidateResourceId[User](ctx, companyId, *userId); err != nil {
			return nil, errors.New("user not found")
		}
	}

	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Where("id = ?", id).
		Update("assigned_to", userId).Error; err != nil {
		return nil, err
	}
	return GetWorkOrder(ctx, id)
}

type WorkOrderFilter struct {
	Status              *WorkOrderStatus   `form:"status" json:"status"`
	WorkOrderType       *WorkOrderType     `form:"type" json:"type"`
	Priority            *WorkOrderPriority `form:"priority" json:"priority"`
	Assignment          *AssignmentFilter  `form:"assignment" json:"assignment"`
	ChecklistInstanceId *int               `form:"checklist_instance_id" json:"checklist_instance_id"`
}

// ListWorkOrders returns the company's work orders, newest first, narrowed by
// the optional filters. Company scoping comes from the tenant guard.
func ListWorkOrders(ctx context.Context, filter *WorkOrderFilter) ([]*WorkOrder, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Model(&WorkOrder{})
	if filter != nil {
		if filter.Status != nil {
			dbCtx = dbCtx.Where("status = ?", *filter.Status)
		}
		if filter.WorkOrderType != nil {
			dbCtx = dbCtx.Where("work_order_type = ?", *filter.WorkOrderType)
		}
		if filter.Priority != nil {
			dbCtx = dbCtx.Where("priority = ?", *filter.Priority)
		}
		if filter.ChecklistInstanceId != nil {
			dbCtx = dbCtx.Where("checklist_instance_id = ?", *filter.ChecklistInstanceId)
		}
		if filter.Assignment != nil {
			switch *filter.Assignment {
			case AssignmentFilterMine:
				userId, ok := utils.GetUserIdFromContext(ctx)
				if !ok {
					return nil, errors.New("user id is required for assignment=mine")
				}
				dbCtx = dbCtx.Where("assigned_to = ?", userId)
			case AssignmentFilterAssigned:
				dbCtx = dbCtx.Where("assigned_to IS NOT NULL")
			case AssignmentFilterUnassigned:
				dbCtx = dbCtx.Where("assigned_to IS NULL")
			default:
				return nil, errors.New("invalid assignment filter")
			}
		}
	}

	var rows []*WorkOrder
	if err := dbCtx.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type WorkOrderStats struct {
	Total      int64                       `json:"total"`
	ByStatus   map[WorkOrderStatus]int64   `json:"by_status"`
	ByPriority map[WorkOrderPriority]int64 `json:"by_priority"`
	ByType     map[WorkOrderType]int64     `json:"by_type"`
	Mine       int64                       `json:"mine"`
	Assigned   int64                       `json:"assigned"`
	Unassigned int64                       `json:"unassigned"`
}

type countRow struct {
	Key   string
	Count int64
}

// GetWorkOrderStats aggregates company-scoped counts for dashboards.
func GetWorkOrderStats(ctx context.Context) (*WorkOrderStats, error) {
	db := config.GetDB()

	stats := &WorkOrderStats{
		ByStatus:   map[WorkOrderStatus]int64{},
		ByPriority: map[WorkOrderPriority]int64{},
		ByType:     map[WorkOrderType]int64{},
	}

	if err := db.WithContext(ctx).Model(&WorkOrder{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var rows []countRow
	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Select("status AS `key`, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByStatus[WorkOrderStatus(r.Key)] = r.Count
	}

	rows = rows[:0]
	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Select("priority AS `key`, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByPriority[WorkOrderPriority(r.Key)] = r.Count
	}

	rows = rows[:0]
	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Select("work_order_type AS `key`, COUNT(*) AS count").
		Group("work_order_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByType[WorkOrderType(r.Key)] = r.Count
	}

	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Where("assigned_to IS NOT NULL").Count(&stats.Assigned).Error; err != nil {
		return nil, err
	}
	stats.Unassigned = stats.Total - stats.Assigned

	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId != 0 {
		if err := db.WithContext(ctx).Model(&WorkOrder{}).
			Where("assigned_to = ?", userId).Count(&stats.Mine).Error; err != nil {
			return nil, err
		}
	}

	return stats, nil
}
