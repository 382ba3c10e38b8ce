package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Export renders records with from <= date <= to as an xlsx workbook.
func (s *AttendanceService) Export(ctx context.Context, from, to string) (*bytes.Buffer, error) {
	records, err := s.records.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	sheet := file.GetSheetName(file.GetActiveSheetIndex())

	headers := []string{"No", "Employee", "Date", "Check In", "Check Out", "Total Hours", "Status", "Late", "Check In Location", "Check Out Location"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = file.SetCellValue(sheet, cell, header)
	}

	for index := range records {
		record := &records[index]
		row := index + 2

		name := ""
		if record.User != nil {
			name = record.User.Name
		}
		checkIn, checkOut, hours := "", "", ""
		if record.CheckInTime != nil {
			checkIn = record.CheckInTime.In(s.opts.Location).Format("15:04:05")
		}
		if record.CheckOutTime != nil {
			checkOut = record.CheckOutTime.In(s.opts.Location).Format("15:04:05")
		}
		if record.TotalHours != nil {
			hours = fmt.Sprintf("%.2f", *record.TotalHours)
		}
		late := "No"
		if s.IsLate(record) {
			late = "Yes"
		}

		_ = file.SetCellValue(sheet, fmt.Sprintf("A%d", row), index+1)
		_ = file.SetCellValue(sheet, fmt.Sprintf("B%d", row), name)
		_ = file.SetCellValue(sheet, fmt.Sprintf("C%d", row), record.Date)
		_ = file.SetCellValue(sheet, fmt.Sprintf("D%d", row), checkIn)
		_ = file.SetCellValue(sheet, fmt.Sprintf("E%d", row), checkOut)
		_ = file.SetCellValue(sheet, fmt.Sprintf("F%d", row), hours)
		_ = file.SetCellValue(sheet, fmt.Sprintf("G%d", row), string(record.Status()))
		_ = file.SetCellValue(sheet, fmt.Sprintf("H%d", row), late)
		_ = file.SetCellValue(sheet, fmt.Sprintf("I%d", row), record.CheckInLocation)
		_ = file.SetCellValue(sheet, fmt.Sprintf("J%d", row), record.CheckOutLocation)
	}

	buffer, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write attendance workbook: %w", err)
	}
	return buffer, nil
}
