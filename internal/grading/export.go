package grading

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/lesspaper/internal/model"
)

// SubmittedAtLayout formats submission timestamps in the tabular export (UTC).
const SubmittedAtLayout = "2006-01-02 15:04"

// ResultsSheet is the worksheet holding the spreadsheet export.
const ResultsSheet = "Results"

// ResultsExport is the JSON export document for one exam.
type ResultsExport struct {
	Exam        model.Exam         `json:"exam"`
	Submissions []model.Submission `json:"submissions"`
	Report      Report             `json:"report"`
}

// Header returns the tabular export header row.
func Header(exam model.Exam) []string {
	row := make([]string, 0, len(exam.Questions)+3)
	row = append(row, "Student", "Submitted At")
	for i := range exam.Questions {
		row = append(row, "Question "+strconv.Itoa(i+1))
	}
	return append(row, "Score")
}

// Row returns the tabular export row for one submission: one cell per question
// holding the answer text (blank if unanswered) and a trailing correct/scorable
// score, blank when nothing is scorable.
func Row(exam model.Exam, sub model.Submission) []string {
	row := make([]string, 0, len(exam.Questions)+3)
	row = append(row, sub.StudentName, sub.SubmittedAt.UTC().Format(SubmittedAtLayout))
	for _, q := range exam.Questions {
		a, _ := sub.Answer(q.ID)
		row = append(row, a.AnswerText)
	}
	sum := SummarizeScore(ScoreSubmission(exam, sub))
	score := ""
	if sum.Scorable > 0 {
		score = fmt.Sprintf("%d/%d", sum.Correct, sum.Scorable)
	}
	return append(row, score)
}

// WriteCSV writes the tabular export. Output depends only on res, so the same
// results always produce the same bytes.
func WriteCSV(w io.Writer, res model.ExamResults) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(res.Exam)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, sub := range res.Submissions {
		if err := cw.Write(Row(res.Exam, sub)); err != nil {
			return fmt.Errorf("write submission %d: %w", sub.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the tabular export as a single-sheet workbook. Document
// timestamps come from the exam, so the same results produce the same bytes.
func WriteXLSX(w io.Writer, res model.ExamResults) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	stamp := res.Exam.CreatedAt.UTC().Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    res.Exam.Title,
		Creator:  "lesspaper",
		Created:  stamp,
		Modified: stamp,
	}); err != nil {
		return fmt.Errorf("set document properties: %w", err)
	}

	rows := make([][]string, 0, len(res.Submissions)+1)
	rows = append(rows, Header(res.Exam))
	for _, sub := range res.Submissions {
		rows = append(rows, Row(res.Exam, sub))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteJSON writes the JSON export document with a trailing newline.
func WriteJSON(w io.Writer, res model.ExamResults, threshold float64) error {
	doc := ResultsExport{
		Exam:        res.Exam,
		Submissions: res.Submissions,
		Report:      BuildReport(res, threshold),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
