// Package report renders maintenance data as Excel workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/primefragrance/cmms/internal/workorder"
	"github.com/xuri/excelize/v2"
)

// HistorySheet is the sheet name of the work order history export.
const HistorySheet = "Riwayat WO"

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HistoryHeader is the header row of the history export.
var HistoryHeader = []string{
	"ID WO", "Aset", "Tipe", "Prioritas", "Status", "Teknisi", "Supervisor",
	"Akar Masalah", "Komponen Rusak", "Diminta", "Mulai Perbaikan", "Selesai", "Durasi",
}

var historyWidths = []float64{22, 24, 12, 10, 18, 20, 20, 30, 22, 18, 18, 18, 10}

func historyCells(r workorder.HistoryRow) []any {
	return []any{
		r.ID, r.AssetName, r.Type, r.Priority, r.Status, r.Technician, r.Supervisor,
		r.RootCause, r.ComponentFailed, r.RequestedAt, r.RepairStart, r.CompletedAt, r.Duration,
	}
}

// WriteHistory writes rows as a one-sheet workbook to w.
func WriteHistory(w io.Writer, rows []workorder.HistoryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(HistorySheet)
	if err != nil {
		return fmt.Errorf("report: create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("report: drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}

	header := make([]any, len(HistoryHeader))
	for i, h := range HistoryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(HistorySheet, "A1", &header); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(HistoryHeader), 1)
	if err != nil {
		return fmt.Errorf("report: header range: %w", err)
	}
	if err := f.SetCellStyle(HistorySheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("report: style header: %w", err)
	}
	for i, width := range historyWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("report: column name: %w", err)
		}
		if err := f.SetColWidth(HistorySheet, col, col, width); err != nil {
			return fmt.Errorf("report: column width: %w", err)
		}
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("report: row %d: %w", i, err)
		}
		cells := historyCells(r)
		if err := f.SetSheetRow(HistorySheet, cell, &cells); err != nil {
			return fmt.Errorf("report: write %s: %w", r.ID, err)
		}
	}
	if err := f.SetPanes(HistorySheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("report: freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}
