package models

import "testing"

func TestParseFieldType(t *testing.T) {
	for _, s := range []string{"pass_fail_flag", "yes_no_na", "condition_option", "text", "number", "date", "select"} {
		if _, err := ParseFieldType(s); err != nil {
			t.Errorf("ParseFieldType(%q): %v", s, err)
		}
	}
	if _, err := ParseFieldType("checkbox"); err == nil {
		t.Error("unknown field type accepted")
	}
}

func TestParseWorkOrderEnums(t *testing.T) {
	if _, err := ParseWorkOrderType("defect"); err != nil {
		t.Errorf("ParseWorkOrderType: %v", err)
	}
	if _, err := ParseWorkOrderType("DEFECT"); err == nil {
		t.Error("work order type parsing must be exact")
	}
	if _, err := ParseWorkOrderStatus("in_progress"); err != nil {
		t.Errorf("ParseWorkOrderStatus: %v", err)
	}
	if _, err := ParseWorkOrderStatus("done"); err == nil {
		t.Error("unknown status accepted")
	}
	if _, err := ParseWorkOrderPriority("urgent"); err != nil {
		t.Errorf("ParseWorkOrderPriority: %v", err)
	}
	if _, err := ParseWorkOrderPriority("critical"); err == nil {
		t.Error("unknown priority accepted")
	}
}
