// Package export writes the apartment inventory as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"strings"

	"rentflow/internal/domain"

	"github.com/xuri/excelize/v2"
)

const InventorySheet = "Inventory"

// InventoryHeader is the first row of the sheet, in column order.
var InventoryHeader = []string{
	"Property",
	"City",
	"Unit",
	"Rent",
	"Status",
}

var columnWidths = []float64{30, 20, 10, 14, 20}

// Row is one apartment as it appears in the sheet.
type Row struct {
	Property string
	City     string
	Unit     string
	Rent     domain.Money
	Status   domain.ApartmentStatus
}

// WriteInventory writes one row per apartment. Apartments should carry
// their joined property name and city. Rent is written as text so the
// cents survive unchanged.
func WriteInventory(w io.Writer, apartments []*domain.Apartment) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(InventorySheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(InventorySheet, "A1", &InventoryHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(InventoryHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(InventorySheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(InventorySheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, a := range apartments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{a.PropertyName, a.PropertyCity, a.Number, a.Rent.String(), string(a.Status)}
		if err := f.SetSheetRow(InventorySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(InventorySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadInventory parses a workbook produced by WriteInventory.
func ReadInventory(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(InventorySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", InventorySheet, err)
	}
	if len(rows) == 0 || strings.Join(rows[0], ",") != strings.Join(InventoryHeader, ",") {
		return nil, fmt.Errorf("%w: unexpected inventory header", domain.ErrValidation)
	}

	out := make([]Row, 0, len(rows)-1)
	for i, cols := range rows[1:] {
		// trailing empty cells are dropped by GetRows
		for len(cols) < len(InventoryHeader) {
			cols = append(cols, "")
		}
		rent, err := domain.ParseMoney(cols[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		status, err := domain.ParseApartmentStatus(cols[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, Row{
			Property: cols[0],
			City:     cols[1],
			Unit:     cols[2],
			Rent:     rent,
			Status:   status,
		})
	}
	return out, nil
}
