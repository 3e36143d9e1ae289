package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/edumap/selserver/internal/model"
)

type sheetSpec struct {
	title  string
	header []string
	rows   [][]string
}

// ClassReportWorkbook renders one class into an XLSX workbook with a
// submissions sheet and a competency-averages sheet. usernames maps
// student IDs to display names and may be incomplete.
func ClassReportWorkbook(class model.Class, usernames map[string]string) (*excelize.File, error) {
	subsSheet := sheetSpec{
		title: "Submissions",
		header: []string{
			"Student ID", "Student", "Submitted At", "Overall Score",
			model.SelfAwareness.Label(), model.SelfManagement.Label(),
			model.SocialAwareness.Label(), model.RelationshipSkills.Label(),
			model.ResponsibleDecisionMaking.Label(),
			"General Feedback",
		},
	}
	for _, sub := range class.Submissions {
		row := []string{
			sub.StudentID,
			usernames[sub.StudentID],
			sub.SubmittedAt.Format("2006-01-02 15:04"),
		}
		if sub.Analysis != nil {
			scores := sub.Analysis.CompetencyScores()
			row = append(row, formatScore(sub.Analysis.OverallScore))
			for _, c := range model.Competencies() {
				row = append(row, formatScore(scores[c].Score))
			}
			row = append(row, sub.Analysis.GeneralFeedback)
		} else {
			row = append(row, "not scored")
			for range model.Competencies() {
				row = append(row, "")
			}
			row = append(row, "")
		}
		subsSheet.rows = append(subsSheet.rows, row)
	}

	avgs := CompetencyAverages(class.Submissions)
	avgSheet := sheetSpec{
		title:  "Class Averages",
		header: []string{"Competency", "Average Score"},
	}
	for _, c := range model.Competencies() {
		avgSheet.rows = append(avgSheet.rows, []string{c.Label(), formatScore(avgs[c])})
	}

	return buildWorkbook([]sheetSpec{subsSheet, avgSheet})
}

func buildWorkbook(sheets []sheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, s := range sheets {
		name := s.title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("new sheet: %w", err)
			}
		}

		for col, h := range s.header {
			cell := colName(col+1) + "1"
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		end := colName(len(s.header)) + "1"
		_ = f.SetCellStyle(name, "A1", end, bold)
		_ = f.AutoFilter(name, "A1:"+end, nil)

		for r, row := range s.rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}

		// Width heuristic from header and row content.
		for c := 1; c <= len(s.header); c++ {
			longest := len(s.header[c-1])
			for _, row := range s.rows {
				if c-1 < len(row) && len(row[c-1]) > longest {
					longest = len(row[c-1])
				}
			}
			w := float64(longest) * 0.9
			if w < 12 {
				w = 12
			}
			if w > 40 {
				w = 40
			}
			_ = f.SetColWidth(name, colName(c), colName(c), w)
		}
	}
	return f, nil
}

// ClassReportFilename builds the download filename for a class export.
func ClassReportFilename(class model.Class) string {
	base := strings.TrimSpace(class.ClassName)
	if base == "" {
		base = class.ClassCode
	}
	base = strings.Join(strings.Fields(base), "_")
	return fmt.Sprintf("sel_report_%s_%s.xlsx", base, class.ClassCode)
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64)
}

func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}
