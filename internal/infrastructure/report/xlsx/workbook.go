package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Workbook builds a report of header-plus-rows sheets.
type Workbook struct {
	file        *excelize.File
	headerStyle int
	sheets      int
}

func NewWorkbook() (*Workbook, error) {
	file := excelize.NewFile()
	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &Workbook{file: file, headerStyle: style}, nil
}

// AddSheet appends a sheet. widths sets column widths by position.
func (w *Workbook) AddSheet(name string, header []string, rows [][]any, widths ...float64) error {
	if w.sheets == 0 {
		if err := w.file.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheets++

	if err := w.writeRow(name, 1, toAny(header)); err != nil {
		return err
	}
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := w.file.SetCellStyle(name, "A1", last, w.headerStyle); err != nil {
			return fmt.Errorf("style header %s: %w", name, err)
		}
	}
	for i, row := range rows {
		if err := w.writeRow(name, i+2, row); err != nil {
			return err
		}
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("set width %s!%s: %w", name, col, err)
		}
	}
	return nil
}

func (w *Workbook) writeRow(sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func (w *Workbook) WriteTo(out io.Writer) error {
	defer w.file.Close()
	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
