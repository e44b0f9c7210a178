package models

import (
	"errors"
	"testing"
	"time"
)

func TestPoisonedMessageUpdatesKeepError(t *testing.T) {
	now := time.Now().UTC()
	updates := poisonedMessageUpdates(errors.New("unexpected end of JSON input"), now)

	if updates["is_processed"] != true {
		t.Error("poisoned message must be retired as processed")
	}
	if stamp, ok := updates["processed_at"].(*time.Time); !ok || stamp == nil {
		t.Error("processed_at must be stamped")
	}
	msg, ok := updates["last_process_error"].(*string)
	if !ok || msg == nil || *msg != "unexpected end of JSON input" {
		t.Errorf("last_process_error must survive the processed mark, got %v", updates["last_process_error"])
	}
}
