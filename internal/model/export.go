package model

// ExamResults pairs an exam with all of its submissions, in store order.
// It is the input of the aggregation and export projections.
type ExamResults struct {
	Exam        Exam         `json:"exam"`
	Submissions []Submission `json:"submissions"`
}
