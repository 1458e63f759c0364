// Package sheets pushes the analytics bundle into a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"shopbot/internal/models"
)

const (
	salesRange       = "Sales!A2:B"
	topProductsRange = "TopProducts!A2:B"
)

type Exporter struct {
	SpreadsheetID string
	service       *sheets.Service
}

func NewExporter(ctx context.Context, spreadsheetID, credentialsPath string) (*Exporter, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Exporter{SpreadsheetID: spreadsheetID, service: service}, nil
}

// Export overwrites the Sales and TopProducts ranges with fresh metrics.
func (e *Exporter) Export(ctx context.Context, metrics models.Metrics) error {
	if _, err := e.service.Spreadsheets.Values.BatchClear(e.SpreadsheetID, &sheets.BatchClearValuesRequest{
		Ranges: []string{salesRange, topProductsRange},
	}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear analytics ranges: %w", err)
	}

	_, err := e.service.Spreadsheets.Values.BatchUpdate(e.SpreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{Range: salesRange, Values: salesRows(metrics.Sales)},
			{Range: topProductsRange, Values: productRows(metrics.TopProducts)},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write analytics ranges: %w", err)
	}
	return nil
}

func salesRows(sales []models.SalesByDate) [][]interface{} {
	rows := make([][]interface{}, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, []interface{}{s.Date, s.TotalSales})
	}
	return rows
}

func productRows(products []models.ProductSales) [][]interface{} {
	rows := make([][]interface{}, 0, len(products))
	for _, p := range products {
		rows = append(rows, []interface{}{p.ProductName, p.TotalSold})
	}
	return rows
}
