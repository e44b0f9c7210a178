package workflow

import (
	"context"
	"errors"
	"io"
	"testing"

	"bitbucket.org/mmdatafocus/siteops_backend/models"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

type fakeReconcileStore struct {
	template *models.ChecklistTemplate

	nextId     int
	workOrders []*models.WorkOrder

	// Per-fieldId injected failures for ActiveWorkOrders lookups.
	lookupErrs map[int]error
	// When set, the next InsertWorkOrder call behaves as if a concurrent pass
	// inserted this row first: the row becomes visible and 1062 is returned.
	raceWinner *models.WorkOrder

	resultUpdates map[int]string
	cancelledIds  []int
}

func newFakeStore(template *models.ChecklistTemplate) *fakeReconcileStore {
	return &fakeReconcileStore{
		template:      template,
		nextId:        1,
		resultUpdates: map[int]string{},
	}
}

func (f *fakeReconcileStore) GetTemplate(ctx context.Context, templateId int) (*models.ChecklistTemplate, error) {
	if f.template == nil || f.template.ID != templateId {
		return nil, utils.ErrorRecordNotFound
	}
	return f.template, nil
}

func (f *fakeReconcileStore) ActiveWorkOrders(ctx context.Context, instanceId int, fieldId int) ([]models.WorkOrder, error) {
	if err := f.lookupErrs[fieldId]; err != nil {
		return nil, err
	}
	var out []models.WorkOrder
	for _, wo := range f.workOrders {
		if wo.ChecklistInstanceId == instanceId && wo.ActiveFieldId != nil && *wo.ActiveFieldId == fieldId {
			out = append(out, *wo)
		}
	}
	return out, nil
}

func (f *fakeReconcileStore) InsertWorkOrder(ctx context.Context, wo *models.WorkOrder) error {
	if f.raceWinner != nil {
		winner := f.raceWinner
		f.raceWinner = nil
		f.workOrders = append(f.workOrders, winner)
		return &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	// Emulate the unique active key.
	for _, existing := range f.workOrders {
		if existing.ChecklistInstanceId == wo.ChecklistInstanceId &&
			existing.ActiveFieldId != nil && wo.ActiveFieldId != nil &&
			*existing.ActiveFieldId == *wo.ActiveFieldId {
			return &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
		}
	}
	wo.ID = f.nextId
	f.nextId++
	clone := *wo
	f.workOrders = append(f.workOrders, &clone)
	return nil
}

func (f *fakeReconcileStore) UpdateWorkOrderResult(ctx context.Context, id int, result string) error {
	for _, wo := range f.workOrders {
		if wo.ID == id {
			wo.Result = result
			f.resultUpdates[id] = result
			return nil
		}
	}
	return errors.New("work order not found")
}

func (f *fakeReconcileStore) AutoCancelWorkOrder(ctx context.Context, id int) error {
	for _, wo := range f.workOrders {
		if wo.ID == id && wo.Status == models.WorkOrderStatusOpen {
			wo.Status = models.WorkOrderStatusCancelled
			wo.ResolutionNotes = models.AutoCancelResolutionNote
			wo.ActiveFieldId = nil
			f.cancelledIds = append(f.cancelledIds, id)
		}
	}
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testReconciler(store ReconcileStore) *Reconciler {
	return &Reconciler{Store: store, Logger: testLogger()}
}

// inspectionTemplate builds a three-field template:
// field 1: yes_no_na (auto, safety)
// field 2: text with manual trigger on "Damaged"
// field 3: plain text, no trigger mode
func inspectionTemplate() *models.ChecklistTemplate {
	return &models.ChecklistTemplate{
		ID:        10,
		CompanyId: "acme",
		Name:      "Site safety walk",
		Sections: []models.TemplateSection{
			{
				ID:   1,
				Name: "Scaffolding",
				Fields: []models.TemplateField{
					{ID: 1, Name: "Guard rails secure", Type: models.FieldTypeYesNoNa},
					{ID: 2, Name: "Ladder condition", Type: models.FieldTypeText, ManualTriggerEnabled: boolPtr(true), ManualTriggerValue: strPtr("Damaged")},
					{ID: 3, Name: "Notes", Type: models.FieldTypeText},
				},
			},
		},
	}
}

func TestReconcileCreatesWorkOrderOnFailureAnswer(t *testing.T) {
	store := newFakeStore(inspectionTemplate())
	r := testReconciler(store)

	err := r.Reconcile(context.Background(), "acme", 77, 10, map[int]string{1: "No"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(store.workOrders) != 1 {
		t.Fatalf("expected 1 work order, got %d", len(store.workOrders))
	}
	wo := store.workOrders[0]
	if wo.Status != models.WorkOrderStatusOpen {
		t.Errorf("status = %s, want open", wo.Status)
	}
	if wo.WorkOrderType != models.WorkOrderTypeSafety {
		t.Errorf("type = %s, want safety", wo.WorkOrderType)
	}
	if wo.TriggerValue != "No" {
		t.Errorf("trigger value = %q, want the literal answer", wo.TriggerValue)
	}
	if wo.Result != "No" {
		t.Errorf("result = %q, want %q", wo.Result, "No")
	}
	if wo.SectionName != "Scaffolding" || wo.FieldName != "Guard rails secure" {
		t.Errorf("provenance not captured: %q / %q", wo.SectionName, wo.FieldName)
	}
	if wo.ActiveFieldId == nil || *wo.ActiveFieldId != 1 {
		t.Errorf("active field id not mirrored: %v", wo.ActiveFieldId)
	}
	if wo.Details != `auto-detected failure: "Guard rails secure" answered "No" during inspection` {
		t.Errorf("details = %q", wo.Details)
	}
}

func TestReconcileIsIdempotentAndPreservesProgress(t *testing.T) {
	store := newFakeStore(inspectionTemplate())
	r := testReconciler(store)
	ctx := context.Background()

	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{1: "No"}); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	// Operator starts working on it.
	store.workOrders[0].Status = models.WorkOrderStatusInProgress
	assignee := 42
	store.workOrders[0].AssignedTo = &assignee

	// Same failing answer arrives again, different case.
	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{1: "NO"}); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(store.workOrders) != 1 {
		t.Fatalf("second pass must not create another work order, got %d", len(store.workOrders))
	}
	wo := store.workOrders[0]
	if wo.Result != "NO" {
		t.Errorf("result not refreshed: %q", wo.Result)
	}
	if wo.Status != models.WorkOrderStatusInProgress {
		t.Errorf("status clobbered: %s", wo.Status)
	}
	if wo.AssignedTo == nil || *wo.AssignedTo != 42 {
		t.Errorf("assignment clobbered: %v", wo.AssignedTo)
	}
}

func TestReconcileAutoCancelsOpenWorkOrder(t *testing.T) {
	store := newFakeStore(inspectionTemplate())
	r := testReconciler(store)
	ctx := context.Background()

	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{1: "No"}); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{1: "Yes"}); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	wo := store.workOrders[0]
	if wo.Status != models.WorkOrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", wo.Status)
	}
	if wo.ResolutionNotes != "Auto-cancelled: response changed to non-trigger value" {
		t.Errorf("resolution notes = %q", wo.ResolutionNotes)
	}
	if wo.ActiveFieldId != nil {
		t.Errorf("active field id must be released on cancel")
	}
}

func TestReconcileLeavesNonOpenWorkOrdersAlone(t *testing.T) {
	store := newFakeStore(inspectionTemplate())
	r := testReconciler(store)
	ctx := context.Background()

	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{1: "No"}); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	store.workOrders[0].Status = models.WorkOrderStatusInProgress

	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{1: "Yes"}); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if store.workOrders[0].Status != models.WorkOrderStatusInProgress {
		t.Errorf("in_progress work order must survive a non-trigger answer, got %s", store.workOrders[0].Status)
	}
	if len(store.cancelledIds) != 0 {
		t.Errorf("nothing should have been cancelled, got %v", store.cancelledIds)
	}
}

func TestReconcileManualTriggerCycleCreatesNewWorkOrder(t *testing.T) {
	store := newFakeStore(inspectionTemplate())
	r := testReconciler(store)
	ctx := context.Background()

	// Inspector flags the ladder.
	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{2: "damaged"}); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(store.workOrders) != 1 {
		t.Fatalf("expected 1 work order, got %d", len(store.workOrders))
	}
	first := store.workOrders[0]
	if first.TriggerValue != "Damaged" {
		t.Errorf("manual trigger must record the configured value, got %q", first.TriggerValue)
	}
	if first.WorkOrderType != models.WorkOrderTypeGeneral {
		t.Errorf("type = %s, want general for a text field", first.WorkOrderType)
	}
	if first.Details != `"Ladder condition" reported "damaged" during inspection` {
		t.Errorf("details = %q", first.Details)
	}

	// Answer corrected, open order auto-cancels.
	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{2: "ok"}); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if first.Status != models.WorkOrderStatusCancelled {
		t.Fatalf("expected auto-cancel, got %s", first.Status)
	}

	// Ladder flagged again: a cancelled order is never revived.
	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{2: "Damaged"}); err != nil {
		t.Fatalf("third pass: %v", err)
	}
	if len(store.workOrders) != 2 {
		t.Fatalf("re-trigger after cancel must create a new work order, got %d rows", len(store.workOrders))
	}
	if store.workOrders[1].Status != models.WorkOrderStatusOpen {
		t.Errorf("new work order status = %s, want open", store.workOrders[1].Status)
	}
}

func TestReconcileMissingTemplateIsNoOp(t *testing.T) {
	store := newFakeStore(nil)
	r := testReconciler(store)

	if err := r.Reconcile(context.Background(), "acme", 77, 999, map[int]string{1: "No"}); err != nil {
		t.Fatalf("missing template must not be fatal: %v", err)
	}
	if len(store.workOrders) != 0 {
		t.Fatalf("no work orders expected, got %d", len(store.workOrders))
	}
}

func TestReconcileDeactivatedTemplateIsNoOp(t *testing.T) {
	template := inspectionTemplate()
	template.IsActive = boolPtr(false)
	store := newFakeStore(template)
	r := testReconciler(store)

	if err := r.Reconcile(context.Background(), "acme", 77, 10, map[int]string{1: "No"}); err != nil {
		t.Fatalf("deactivated template must not be fatal: %v", err)
	}
	if len(store.workOrders) != 0 {
		t.Fatalf("deleted template must stop driving work orders, got %d", len(store.workOrders))
	}
}

func TestReconcileDuplicateKeyFallsThroughToUpdate(t *testing.T) {
	store := newFakeStore(inspectionTemplate())
	r := testReconciler(store)
	ctx := context.Background()

	// A concurrent pass inserts between our lookup and our insert; the unique
	// active key rejects ours and the pass must converge on the winner's row.
	fieldOne := 1
	store.raceWinner = &models.WorkOrder{
		ID:                  99,
		ChecklistInstanceId: 77,
		TemplateFieldId:     1,
		ActiveFieldId:       &fieldOne,
		Status:              models.WorkOrderStatusOpen,
		Result:              "no",
	}

	if err := r.Reconcile(ctx, "acme", 77, 10, map[int]string{1: "No"}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := store.resultUpdates[99]; got != "No" {
		t.Fatalf("expected fall-through result update on raced row, got %q", got)
	}
	if len(store.workOrders) != 1 {
		t.Fatalf("no second work order may exist, got %d", len(store.workOrders))
	}
}

func TestReconcileIsolatesPerFieldFailures(t *testing.T) {
	template := inspectionTemplate()
	store := newFakeStore(template)
	store.lookupErrs = map[int]error{1: errors.New("store unavailable")}
	r := testReconciler(store)

	err := r.Reconcile(context.Background(), "acme", 77, 10, map[int]string{1: "No", 2: "Damaged"})
	if err == nil {
		t.Fatal("expected the field 1 failure to surface")
	}
	// Field 2 must still have been reconciled.
	if len(store.workOrders) != 1 {
		t.Fatalf("field 2 work order missing, got %d rows", len(store.workOrders))
	}
	if store.workOrders[0].TemplateFieldId != 2 {
		t.Errorf("wrong field reconciled: %d", store.workOrders[0].TemplateFieldId)
	}
}

func TestReconcileSkipsFieldsWithoutTriggerMode(t *testing.T) {
	store := newFakeStore(inspectionTemplate())
	r := testReconciler(store)

	if err := r.Reconcile(context.Background(), "acme", 77, 10, map[int]string{3: "fail"}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(store.workOrders) != 0 {
		t.Fatalf("plain text field must never spawn a work order, got %d", len(store.workOrders))
	}
}
