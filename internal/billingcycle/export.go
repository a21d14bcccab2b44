package billingcycle

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const exportSheet = "Billing Cycles"

var exportHeadings = []string{"ID", "Customer", "Account Number", "Meter Number", "Customer Type", "Start", "End", "Status", "Amount Due"}

// ExportXLSX writes the filtered cycle list as a spreadsheet to w.
func (s *Synchronizer) ExportXLSX(ctx context.Context, f Filters, w io.Writer) (int, error) {
	cycles, err := s.ListWithFilters(ctx, f)
	if err != nil {
		return 0, err
	}
	book, err := buildWorkbook(cycles)
	if err != nil {
		return 0, err
	}
	defer book.Close()
	if err := book.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(cycles), nil
}

func buildWorkbook(cycles []CycleView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, h := range exportHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			f.Close()
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeadings), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, bold); err != nil {
		f.Close()
		return nil, err
	}

	title := cases.Title(language.English)
	for r, c := range cycles {
		amount, _ := c.AmountDue.Float64()
		values := []any{
			c.ID,
			c.CustomerName,
			c.AccountNumber,
			c.MeterNumber,
			title.String(c.CustomerType),
			c.BillingStartDate.Format(dateLayout),
			c.BillingEndDate.Format(dateLayout),
			title.String(c.Status),
			amount,
		}
		row := r + 2
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				f.Close()
				return nil, err
			}
		}
		cell, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetCellStyle(exportSheet, cell, cell, money); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetColWidth(exportSheet, "B", "D", 22); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
