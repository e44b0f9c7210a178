package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/siteops_backend/models"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func woTypePtr(t models.WorkOrderType) *models.WorkOrderType { return &t }

func TestEvaluateTriggerAutoTable(t *testing.T) {
	cases := []struct {
		name      string
		fieldType models.FieldType
		answer    string
		want      bool
	}{
		{"pass_fail fail", models.FieldTypePassFailFlag, "fail", true},
		{"pass_fail FAIL mixed case", models.FieldTypePassFailFlag, "FaIl", true},
		{"pass_fail fail padded", models.FieldTypePassFailFlag, "  Fail  ", true},
		{"pass_fail pass", models.FieldTypePassFailFlag, "pass", false},
		{"yes_no_na no", models.FieldTypeYesNoNa, "No", true},
		{"yes_no_na yes", models.FieldTypeYesNoNa, "yes", false},
		{"yes_no_na na", models.FieldTypeYesNoNa, "na", false},
		{"condition poor", models.FieldTypeConditionOption, "Poor", true},
		{"condition good", models.FieldTypeConditionOption, "good", false},
		{"text never auto-triggers", models.FieldTypeText, "fail", false},
		{"number never auto-triggers", models.FieldTypeNumber, "no", false},
		{"empty answer", models.FieldTypePassFailFlag, "", false},
		{"whitespace answer", models.FieldTypePassFailFlag, "   ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			field := &models.TemplateField{Name: "f", Type: tc.fieldType}
			got := EvaluateTrigger(field, tc.answer)
			if got.Matches != tc.want {
				t.Fatalf("EvaluateTrigger(%s, %q) = %v, want %v", tc.fieldType, tc.answer, got.Matches, tc.want)
			}
		})
	}
}

func TestEvaluateTriggerManual(t *testing.T) {
	cases := []struct {
		name         string
		triggerValue *string
		answer       string
		want         bool
	}{
		{"configured value matches", strPtr("Damaged"), "damaged", true},
		{"configured value matches padded", strPtr("Damaged"), " DAMAGED ", true},
		{"configured value no match", strPtr("Damaged"), "ok", false},
		{"no configured value, any answer matches", nil, "anything at all", true},
		{"blank configured value behaves as unset", strPtr("  "), "whatever", true},
		{"no configured value, empty answer", nil, "", false},
		{"configured value, empty answer", strPtr("Damaged"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			field := &models.TemplateField{
				Name:                 "f",
				Type:                 models.FieldTypeText,
				ManualTriggerEnabled: boolPtr(true),
				ManualTriggerValue:   tc.triggerValue,
			}
			got := EvaluateTrigger(field, tc.answer)
			if got.Matches != tc.want {
				t.Fatalf("manual EvaluateTrigger(%v, %q) = %v, want %v", tc.triggerValue, tc.answer, got.Matches, tc.want)
			}
		})
	}
}

func TestFieldHasTriggerMode(t *testing.T) {
	if FieldHasTriggerMode(&models.TemplateField{Type: models.FieldTypeText}) {
		t.Fatal("plain text field must have no trigger mode")
	}
	if !FieldHasTriggerMode(&models.TemplateField{Type: models.FieldTypePassFailFlag}) {
		t.Fatal("pass_fail_flag must auto-trigger")
	}
	if !FieldHasTriggerMode(&models.TemplateField{Type: models.FieldTypeText, ManualTriggerEnabled: boolPtr(true)}) {
		t.Fatal("manual-enabled field must have a trigger mode")
	}
	if FieldHasTriggerMode(&models.TemplateField{Type: models.FieldTypeDate, ManualTriggerEnabled: boolPtr(false)}) {
		t.Fatal("manual-disabled date field must have no trigger mode")
	}
}

func TestInferWorkOrderType(t *testing.T) {
	cases := []struct {
		name  string
		field models.TemplateField
		want  models.WorkOrderType
	}{
		{"pass_fail -> defect", models.TemplateField{Type: models.FieldTypePassFailFlag}, models.WorkOrderTypeDefect},
		{"condition -> defect", models.TemplateField{Type: models.FieldTypeConditionOption}, models.WorkOrderTypeDefect},
		{"yes_no_na -> safety", models.TemplateField{Type: models.FieldTypeYesNoNa}, models.WorkOrderTypeSafety},
		{"text -> general", models.TemplateField{Type: models.FieldTypeText}, models.WorkOrderTypeGeneral},
		{
			"explicit override wins",
			models.TemplateField{Type: models.FieldTypePassFailFlag, DefaultWorkOrderType: woTypePtr(models.WorkOrderTypeMaintenance)},
			models.WorkOrderTypeMaintenance,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InferWorkOrderType(&tc.field); got != tc.want {
				t.Fatalf("InferWorkOrderType = %s, want %s", got, tc.want)
			}
		})
	}
}
