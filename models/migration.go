package models

import (
	"log"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&ChecklistTemplate{}, &TemplateSection{}, &TemplateField{},
		&ChecklistInstance{}, &ChecklistResponse{},
		&WorkOrder{},
		&ReconcileMessageRecord{},
		&IdempotencyKey{},
		&Supplier{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
