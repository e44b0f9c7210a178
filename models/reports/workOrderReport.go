package reports

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bitbucket.org/mmdatafocus/siteops_backend/config"
	"bitbucket.org/mmdatafocus/siteops_backend/models"
	"bitbucket.org/mmdatafocus/siteops_backend/utils"
	"github.com/xuri/excelize/v2"
)

// WorkOrderSummaryRow is one cell of the status/type cross tabulation.
type WorkOrderSummaryRow struct {
	Status        string `json:"Status"`
	WorkOrderType string `json:"WorkOrderType"`
	Count         int64  `json:"Count"`
}

func GetWorkOrderSummaryReport(ctx context.Context) ([]*WorkOrderSummaryRow, error) {

	sql := `
SELECT
    status,
    work_order_type,
    COUNT(*) AS count
FROM
    work_orders
WHERE
    company_id = @companyId
GROUP BY status , work_order_type
ORDER BY status , work_order_type;
`

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	var records []*WorkOrderSummaryRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"companyId": companyId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

var workOrderExportHeadings = []string{
	"Id", "Section", "Field", "Type", "Priority", "Status",
	"Trigger Value", "Result", "Assigned To", "Supplier", "Due Date",
	"Estimated Cost", "Resolution Notes", "Created At",
}

// ExportWorkOrders writes the filtered work order listing as an xlsx workbook.
func ExportWorkOrders(ctx context.Context, w io.Writer, filter *models.WorkOrderFilter) error {
	records, err := models.ListWorkOrders(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheetName := "Work Orders"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	col := 'A'
	for _, h := range workOrderExportHeadings {
		if err := f.SetCellValue(sheetName, string(col)+"1", h); err != nil {
			return err
		}
		col++
	}

	for i, wo := range records {
		row := fmt.Sprint(i + 2)
		values := []interface{}{
			wo.ID,
			wo.SectionName,
			wo.FieldName,
			string(wo.WorkOrderType),
			string(wo.Priority),
			string(wo.Status),
			wo.TriggerValue,
			wo.Result,
			utils.DereferencePtr(wo.AssignedTo, 0),
			wo.SupplierName,
			"",
			"",
			wo.ResolutionNotes,
			wo.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if wo.DueDate != nil {
			values[10] = wo.DueDate.Format("2006-01-02")
		}
		if wo.EstimatedCost != nil {
			values[11] = wo.EstimatedCost.String()
		}

		col := 'A'
		for _, value := range values {
			if err := f.SetCellValue(sheetName, string(col)+row, value); err != nil {
				return err
			}
			col++
		}
	}

	_, err = f.WriteTo(w)
	return err
}
