package config

import (
	"os"
	"strings"
)

// ReconcileSynchronously runs work-order reconciliation inline with the request
// that mutated the checklist responses instead of waiting for the outbox
// dispatcher. The outbox record is still written either way, so delivery stays
// at-least-once.
//
// Set via env:
// - RECONCILE_SYNC=true
func ReconcileSynchronously() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RECONCILE_SYNC")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DisableTemplateCache bypasses the redis read-through cache for checklist
// templates. Useful while authoring templates in dev.
//
// Set via env:
// - TEMPLATE_CACHE_DISABLED=true
func DisableTemplateCache() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("TEMPLATE_CACHE_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
