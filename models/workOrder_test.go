package models

import "testing"

func TestCanTransitionWorkOrder(t *testing.T) {
	allowed := []struct{ from, to WorkOrderStatus }{
		{WorkOrderStatusOpen, WorkOrderStatusInProgress},
		{WorkOrderStatusOpen, WorkOrderStatusResolved},
		{WorkOrderStatusOpen, WorkOrderStatusCancelled},
		{WorkOrderStatusInProgress, WorkOrderStatusOpen},
		{WorkOrderStatusInProgress, WorkOrderStatusResolved},
		{WorkOrderStatusInProgress, WorkOrderStatusCancelled},
		{WorkOrderStatusResolved, WorkOrderStatusInProgress},
		{WorkOrderStatusResolved, WorkOrderStatusClosed},
		{WorkOrderStatusResolved, WorkOrderStatusCancelled},
	}
	for _, tr := range allowed {
		if !CanTransitionWorkOrder(tr.from, tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to WorkOrderStatus }{
		{WorkOrderStatusOpen, WorkOrderStatusClosed},
		{WorkOrderStatusInProgress, WorkOrderStatusClosed},
		{WorkOrderStatusClosed, WorkOrderStatusOpen},
		{WorkOrderStatusClosed, WorkOrderStatusInProgress},
		{WorkOrderStatusClosed, WorkOrderStatusCancelled},
		{WorkOrderStatusCancelled, WorkOrderStatusOpen},
		{WorkOrderStatusCancelled, WorkOrderStatusInProgress},
		{WorkOrderStatusCancelled, WorkOrderStatusResolved},
		{WorkOrderStatusOpen, WorkOrderStatusOpen},
	}
	for _, tr := range denied {
		if CanTransitionWorkOrder(tr.from, tr.to) {
			t.Errorf("%s -> %s should be rejected", tr.from, tr.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []WorkOrderStatus{WorkOrderStatusClosed, WorkOrderStatusCancelled} {
		if !isTerminalWorkOrderStatus(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []WorkOrderStatus{WorkOrderStatusOpen, WorkOrderStatusInProgress, WorkOrderStatusResolved} {
		if isTerminalWorkOrderStatus(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
