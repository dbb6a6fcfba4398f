package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Timetable"

// XLSXExporter renders a Dataset into a single styled worksheet.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E2F3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("body style: %w", err)
	}

	row := 1
	lastCol := colName(len(data.Headers))
	if data.Title != "" {
		if err := f.SetCellValue(sheetName, cell("A", row), data.Title); err != nil {
			return nil, err
		}
		if err := f.MergeCell(sheetName, cell("A", row), cell(lastCol, row)); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle); err != nil {
			return nil, err
		}
		row++
	}

	for i, header := range data.Headers {
		if err := f.SetCellValue(sheetName, cell(colName(i+1), row), header); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle); err != nil {
		return nil, err
	}
	row++

	firstBody := row
	for _, r := range data.Rows {
		for i, value := range data.record(r) {
			if err := f.SetCellValue(sheetName, cell(colName(i+1), row), value); err != nil {
				return nil, err
			}
		}
		row++
	}
	if row > firstBody {
		if err := f.SetCellStyle(sheetName, cell("A", firstBody), cell(lastCol, row-1), bodyStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 16); err != nil {
		return nil, err
	}
	if len(data.Headers) > 1 {
		if err := f.SetColWidth(sheetName, "B", lastCol, 24); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func colName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
