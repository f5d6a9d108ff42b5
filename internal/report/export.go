package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"grower/internal/roster"
)

var exportHeader = []string{
	"Name", "Phone", "Class", "Teacher", "MonthlyFee",
	"PaidStatus", "PaidMonths", "TotalPresents", "TotalAbsents",
}

// ExportFilename is the download name of the report for date.
func ExportFilename(date string) string {
	return "Grower_Report_" + date + ".csv"
}

// WriteCSV writes one row per student; PaidStatus refers to month.
func WriteCSV(w io.Writer, list []roster.Student, month string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, s := range list {
		status := "Pending"
		if s.HasPaid(month) {
			status = "Paid"
		}
		row := []string{
			s.Name,
			s.Phone,
			s.ClassName,
			s.TeacherName,
			strconv.FormatFloat(s.FeeAmount, 'f', -1, 64),
			status,
			strings.Join(s.PaidMonths, "; "),
			strconv.Itoa(s.Count(roster.StatusPresent)),
			strconv.Itoa(s.Count(roster.StatusAbsent)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
