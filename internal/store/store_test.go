package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/lesspaper/internal/accesscode"
	"github.com/pavelanni/lesspaper/internal/model"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(DriverSQLite, ":memory:", opts...)
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestInstructor(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateInstructor(model.Instructor{
		Username:     username,
		DisplayName:  "Instructor " + username,
		PasswordHash: "hash",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateInstructor: %v", err)
	}
	return id
}

func createTestExam(t *testing.T, s *Store, instructorID int64, title string) model.Exam {
	t.Helper()
	exam, err := s.CreateExam(instructorID, model.ExamInput{Title: title, TimeLimit: 30})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	return exam
}

func addTestMCQ(t *testing.T, s *Store, examID int64, correct string) model.Exam {
	t.Helper()
	exam, err := s.AddQuestion(examID, model.QuestionInput{
		QuestionType:  model.QuestionMCQ,
		Text:          "Pick one",
		Options:       []model.Option{{Key: "A", Text: "x"}, {Key: "B", Text: "y"}},
		CorrectAnswer: correct,
	})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	return exam
}

func sequenceGenerator(codes ...string) accesscode.Generator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func TestCreateExam(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")

	exam, err := s.CreateExam(owner, model.ExamInput{Title: "  Midterm ", Description: "Week 1-6", TimeLimit: 45})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if exam.ID == 0 {
		t.Error("expected exam id to be assigned")
	}
	if exam.Title != "Midterm" {
		t.Errorf("expected trimmed title, got %q", exam.Title)
	}
	if len(exam.Code) != accesscode.Length {
		t.Errorf("expected %d-char code, got %q", accesscode.Length, exam.Code)
	}

	got, err := s.GetExam(exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Code != exam.Code || got.InstructorID != owner || got.TimeLimit != 45 {
		t.Errorf("unexpected exam %+v", got)
	}
	if got.Questions == nil || len(got.Questions) != 0 {
		t.Errorf("expected empty question list, got %v", got.Questions)
	}

	count, err := s.ExamCount()
	if err != nil {
		t.Fatalf("ExamCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 exam, got %d", count)
	}
}

func TestCreateExamValidation(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")

	tests := []struct {
		name string
		in   model.ExamInput
		want error
	}{
		{"zero time limit", model.ExamInput{Title: "T", TimeLimit: 0}, model.ErrInvalidTimeLimit},
		{"negative time limit", model.ExamInput{Title: "T", TimeLimit: -5}, model.ErrInvalidTimeLimit},
		{"blank title", model.ExamInput{Title: "   ", TimeLimit: 10}, model.ErrEmptyTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateExam(owner, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}

	count, _ := s.ExamCount()
	if count != 0 {
		t.Errorf("expected nothing written, got %d exams", count)
	}
}

func TestCreateExamRetriesOnCollision(t *testing.T) {
	s := newTestStore(t, WithCodeGenerator(sequenceGenerator("AAAAAA", "AAAAAA", "BBBBBB")))
	owner := createTestInstructor(t, s, "alice")

	first := createTestExam(t, s, owner, "First")
	second := createTestExam(t, s, owner, "Second")
	if first.Code != "AAAAAA" {
		t.Errorf("expected first code AAAAAA, got %q", first.Code)
	}
	if second.Code != "BBBBBB" {
		t.Errorf("expected second exam to retry to BBBBBB, got %q", second.Code)
	}
}

func TestCreateExamExhausted(t *testing.T) {
	s := newTestStore(t, WithCodeGenerator(sequenceGenerator("AAAAAA")))
	owner := createTestInstructor(t, s, "alice")
	createTestExam(t, s, owner, "First")

	_, err := s.CreateExam(owner, model.ExamInput{Title: "Second", TimeLimit: 10})
	if !errors.Is(err, model.ErrCodeGenerationExhausted) {
		t.Fatalf("expected ErrCodeGenerationExhausted, got %v", err)
	}
	count, _ := s.ExamCount()
	if count != 1 {
		t.Errorf("expected 1 exam, got %d", count)
	}
}

func TestCreateExamConcurrentLastCode(t *testing.T) {
	// A code space with a single free code: exactly one caller may take it.
	s := newTestStore(t, WithCodeGenerator(sequenceGenerator("LAST01")))
	owner := createTestInstructor(t, s, "alice")

	var wg sync.WaitGroup
	results := make([]error, 2)
	exams := make([]model.Exam, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			exams[i], results[i] = s.CreateExam(owner, model.ExamInput{Title: "Race", TimeLimit: 10})
		}(i)
	}
	wg.Wait()

	var ok, exhausted int
	for i, err := range results {
		switch {
		case err == nil:
			ok++
			if exams[i].Code != "LAST01" {
				t.Errorf("expected code LAST01, got %q", exams[i].Code)
			}
		case errors.Is(err, model.ErrCodeGenerationExhausted):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || exhausted != 1 {
		t.Errorf("expected one success and one exhaustion, got %d and %d", ok, exhausted)
	}
}

func TestAddQuestion(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")
	exam := createTestExam(t, s, owner, "Quiz")

	addTestMCQ(t, s, exam.ID, "A")
	if _, err := s.AddQuestion(exam.ID, model.QuestionInput{QuestionType: model.QuestionShort, Text: "Explain"}); err != nil {
		t.Fatalf("AddQuestion short: %v", err)
	}
	got, err := s.AddQuestion(exam.ID, model.QuestionInput{
		QuestionType: model.QuestionCode,
		Text:         "Write a loop",
		StarterCode:  "for i in range(3):\n    pass\n",
		Image:        "img_1_abc.png",
	})
	if err != nil {
		t.Fatalf("AddQuestion code: %v", err)
	}

	if len(got.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got.Questions))
	}
	wantTypes := []model.QuestionType{model.QuestionMCQ, model.QuestionShort, model.QuestionCode}
	for i, q := range got.Questions {
		if q.Type() != wantTypes[i] {
			t.Errorf("question %d: expected %s, got %s", i, wantTypes[i], q.Type())
		}
		if q.Position != i+1 {
			t.Errorf("question %d: expected position %d, got %d", i, i+1, q.Position)
		}
		if q.ExamID != exam.ID {
			t.Errorf("question %d: expected exam %d, got %d", i, exam.ID, q.ExamID)
		}
	}

	mcq, ok := got.Questions[0].MCQ()
	if !ok || mcq.CorrectAnswer != "A" || len(mcq.Options) != 2 || mcq.Options[1].Text != "y" {
		t.Errorf("MCQ did not round trip: %+v", mcq)
	}
	code, ok := got.Questions[2].Code()
	if !ok || code.Language != model.LanguagePython || code.StarterCode != "for i in range(3):\n    pass\n" {
		t.Errorf("CODE did not round trip: %+v", code)
	}
	if got.Questions[2].Image() != "img_1_abc.png" {
		t.Errorf("expected image handle, got %q", got.Questions[2].Image())
	}
}

func TestInsertQuestion(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")
	exam := createTestExam(t, s, owner, "Quiz")

	texts := []string{"First", "Second", "Third"}
	var inserted []model.Question
	for _, text := range texts {
		q, err := s.InsertQuestion(exam.ID, model.QuestionInput{QuestionType: model.QuestionShort, Text: text})
		if err != nil {
			t.Fatalf("InsertQuestion %q: %v", text, err)
		}
		inserted = append(inserted, q)
	}

	got, err := s.GetExam(exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	for i, q := range inserted {
		if q.ExamID != exam.ID || q.Position != i+1 || q.Text() != texts[i] {
			t.Errorf("question %d: unexpected %+v", i, q)
		}
		stored, ok := got.Question(q.ID)
		if !ok {
			t.Fatalf("question %d not stored under id %d", i, q.ID)
		}
		if stored.Position != q.Position || stored.Text() != q.Text() {
			t.Errorf("question %d: stored %d %q, returned %d %q", i, stored.Position, stored.Text(), q.Position, q.Text())
		}
	}

	if _, err := s.InsertQuestion(9999, model.QuestionInput{QuestionType: model.QuestionShort, Text: "x"}); !errors.Is(err, model.ErrExamNotFound) {
		t.Errorf("expected ErrExamNotFound, got %v", err)
	}
}

func TestAddQuestionErrors(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")
	exam := createTestExam(t, s, owner, "Quiz")

	_, err := s.AddQuestion(exam.ID, model.QuestionInput{
		QuestionType:  model.QuestionMCQ,
		Text:          "Pick",
		Options:       []model.Option{{Key: "A", Text: "only"}},
		CorrectAnswer: "A",
	})
	if !errors.Is(err, model.ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}

	_, err = s.AddQuestion(exam.ID, model.QuestionInput{QuestionType: model.QuestionShort, Text: " "})
	if !errors.Is(err, model.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}

	_, err = s.AddQuestion(9999, model.QuestionInput{QuestionType: model.QuestionShort, Text: "Explain"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, _ := s.GetExam(exam.ID)
	if len(got.Questions) != 0 {
		t.Errorf("expected no questions written, got %d", len(got.Questions))
	}
}

func TestResolveByCode(t *testing.T) {
	s := newTestStore(t, WithCodeGenerator(sequenceGenerator("QW3RTY")))
	owner := createTestInstructor(t, s, "alice")
	exam := createTestExam(t, s, owner, "Quiz")
	addTestMCQ(t, s, exam.ID, "B")

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"exact", "QW3RTY", nil},
		{"lowercase and padded", "  qw3rty ", nil},
		{"unknown", "ZZZZZZ", model.ErrUnknownAccessCode},
		{"empty", "", model.ErrUnknownAccessCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ResolveByCode(tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && (got.ID != exam.ID || len(got.Questions) != 1) {
				t.Errorf("unexpected exam %+v", got)
			}
		})
	}
}

func TestListExams(t *testing.T) {
	s := newTestStore(t)
	alice := createTestInstructor(t, s, "alice")
	bob := createTestInstructor(t, s, "bob")

	e1 := createTestExam(t, s, alice, "One")
	createTestExam(t, s, bob, "Other")
	e2 := createTestExam(t, s, alice, "Two")
	addTestMCQ(t, s, e2.ID, "A")

	exams, err := s.ListExams(alice)
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(exams))
	}
	if exams[0].ID != e1.ID || exams[1].ID != e2.ID {
		t.Errorf("expected exams in creation order, got %d, %d", exams[0].ID, exams[1].ID)
	}
	if len(exams[1].Questions) != 1 {
		t.Errorf("expected questions to be loaded, got %d", len(exams[1].Questions))
	}

	none, err := s.ListExams(9999)
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty list, got %v", none)
	}
}

func TestRecordSubmission(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))
	owner := createTestInstructor(t, s, "alice")
	exam := createTestExam(t, s, owner, "Quiz")
	addTestMCQ(t, s, exam.ID, "A")
	exam = addTestMCQ(t, s, exam.ID, "B")
	q1, q2 := exam.Questions[0].ID, exam.Questions[1].ID

	sub, err := s.RecordSubmission(model.SubmissionInput{
		ExamCode:    exam.Code,
		StudentName: " Ada ",
		Answers: []model.Answer{
			{QuestionID: q2, AnswerText: "A"},
			{QuestionID: q1, AnswerText: "B"},
			{QuestionID: q2, AnswerText: "B"},
		},
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}
	if sub.ID == 0 || sub.ExamID != exam.ID || sub.StudentName != "Ada" {
		t.Errorf("unexpected submission %+v", sub)
	}
	if !sub.SubmittedAt.Equal(clock.Now()) {
		t.Errorf("expected submitted_at from the store clock, got %v", sub.SubmittedAt)
	}

	subs, err := s.ListSubmissions(exam.ID)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(subs))
	}
	want := []model.Answer{{QuestionID: q1, AnswerText: "B"}, {QuestionID: q2, AnswerText: "B"}}
	if len(subs[0].Answers) != len(want) {
		t.Fatalf("expected %d answers, got %+v", len(want), subs[0].Answers)
	}
	for i, a := range subs[0].Answers {
		if a != want[i] {
			t.Errorf("answer %d: expected %+v, got %+v", i, want[i], a)
		}
	}
	if !subs[0].SubmittedAt.Equal(sub.SubmittedAt) {
		t.Errorf("submitted_at changed on read: %v vs %v", subs[0].SubmittedAt, sub.SubmittedAt)
	}
}

func TestRecordSubmissionRejected(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")
	exam := addTestMCQ(t, s, createTestExam(t, s, owner, "Quiz").ID, "A")
	other := addTestMCQ(t, s, createTestExam(t, s, owner, "Other").ID, "A")

	tests := []struct {
		name string
		in   model.SubmissionInput
		want error
	}{
		{"unknown code", model.SubmissionInput{ExamCode: "NOPE00", StudentName: "Ada"}, model.ErrExamNotFound},
		{"blank student", model.SubmissionInput{ExamCode: exam.Code, StudentName: "  "}, model.ErrInvalidStudent},
		{"foreign question", model.SubmissionInput{
			ExamCode:    exam.Code,
			StudentName: "Ada",
			Answers: []model.Answer{
				{QuestionID: exam.Questions[0].ID, AnswerText: "A"},
				{QuestionID: other.Questions[0].ID, AnswerText: "A"},
			},
		}, model.ErrForeignQuestionReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RecordSubmission(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	for _, id := range []int64{exam.ID, other.ID} {
		n, err := s.SubmissionCount(id)
		if err != nil {
			t.Fatalf("SubmissionCount: %v", err)
		}
		if n != 0 {
			t.Errorf("exam %d: expected no submissions persisted, got %d", id, n)
		}
	}
}

func TestListSubmissionsOrder(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))
	owner := createTestInstructor(t, s, "alice")
	exam := addTestMCQ(t, s, createTestExam(t, s, owner, "Quiz").ID, "A")

	names := []string{"first", "second", "third"}
	for i, name := range names {
		if i == 2 {
			clock.Advance(time.Minute)
		}
		if _, err := s.RecordSubmission(model.SubmissionInput{ExamCode: exam.Code, StudentName: name}); err != nil {
			t.Fatalf("RecordSubmission: %v", err)
		}
	}

	subs, err := s.ListSubmissions(exam.ID)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	for i, sub := range subs {
		if sub.StudentName != names[i] {
			t.Errorf("position %d: expected %s, got %s", i, names[i], sub.StudentName)
		}
		if len(sub.Answers) != 0 {
			t.Errorf("expected no answers, got %+v", sub.Answers)
		}
	}
}

func TestDeleteExamCascades(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")
	exam := createTestExam(t, s, owner, "Quiz")
	addTestMCQ(t, s, exam.ID, "A")
	exam, err := s.AddQuestion(exam.ID, model.QuestionInput{QuestionType: model.QuestionShort, Text: "Why?", Image: "img_1_x.png"})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	keep := addTestMCQ(t, s, createTestExam(t, s, owner, "Keep").ID, "A")

	for _, name := range []string{"Ada", "Bob"} {
		_, err := s.RecordSubmission(model.SubmissionInput{
			ExamCode:    exam.Code,
			StudentName: name,
			Answers:     []model.Answer{{QuestionID: exam.Questions[0].ID, AnswerText: "A"}},
		})
		if err != nil {
			t.Fatalf("RecordSubmission: %v", err)
		}
	}
	if _, err := s.RecordSubmission(model.SubmissionInput{ExamCode: keep.Code, StudentName: "Cy"}); err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	deleted, err := s.DeleteExam(exam.ID)
	if err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	if deleted.Submissions != 2 {
		t.Errorf("expected 2 cascaded submissions, got %d", deleted.Submissions)
	}
	if len(deleted.Images) != 1 || deleted.Images[0] != "img_1_x.png" {
		t.Errorf("expected image handle to be reported, got %v", deleted.Images)
	}

	if _, err := s.GetExam(exam.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.ResolveByCode(exam.Code); !errors.Is(err, model.ErrExamNotFound) {
		t.Errorf("expected code to stop resolving, got %v", err)
	}
	if n, _ := s.SubmissionCount(exam.ID); n != 0 {
		t.Errorf("expected orphaned submissions to be gone, got %d", n)
	}
	if n, _ := s.SubmissionCount(keep.ID); n != 1 {
		t.Errorf("expected other exam untouched, got %d submissions", n)
	}
	if _, err := s.DeleteExam(exam.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestLoadResults(t *testing.T) {
	s := newTestStore(t)
	owner := createTestInstructor(t, s, "alice")
	exam := addTestMCQ(t, s, createTestExam(t, s, owner, "Quiz").ID, "A")
	if _, err := s.RecordSubmission(model.SubmissionInput{
		ExamCode:    exam.Code,
		StudentName: "Ada",
		Answers:     []model.Answer{{QuestionID: exam.Questions[0].ID, AnswerText: "A"}},
	}); err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	res, err := s.LoadResults(exam.ID)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if res.Exam.ID != exam.ID || len(res.Exam.Questions) != 1 || len(res.Submissions) != 1 {
		t.Errorf("unexpected results %+v", res)
	}

	if _, err := s.LoadResults(9999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInstructors(t *testing.T) {
	s := newTestStore(t)

	count, err := s.InstructorCount()
	if err != nil {
		t.Fatalf("InstructorCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 instructors, got %d", count)
	}

	id := createTestInstructor(t, s, "alice")
	u, err := s.GetInstructorByUsername("alice")
	if err != nil {
		t.Fatalf("GetInstructorByUsername: %v", err)
	}
	if u == nil || u.ID != id || !u.Active || u.DisplayName != "Instructor alice" {
		t.Errorf("unexpected instructor %+v", u)
	}

	byID, err := s.GetInstructorByID(id)
	if err != nil || byID == nil || byID.Username != "alice" {
		t.Errorf("GetInstructorByID: %+v, %v", byID, err)
	}

	missing, err := s.GetInstructorByUsername("nobody")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing instructor, got %+v, %v", missing, err)
	}

	_, err = s.CreateInstructor(model.Instructor{Username: "alice", PasswordHash: "x", Active: true})
	if !errors.Is(err, model.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	if err := s.SetInstructorActive(id, false); err != nil {
		t.Fatalf("SetInstructorActive: %v", err)
	}
	u, _ = s.GetInstructorByID(id)
	if u.Active {
		t.Error("expected instructor to be disabled")
	}
	if err := s.SetInstructorActive(9999, true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	createTestInstructor(t, s, "bob")
	list, err := s.ListInstructors()
	if err != nil {
		t.Fatalf("ListInstructors: %v", err)
	}
	if len(list) != 2 || list[0].Username != "alice" || list[1].Username != "bob" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestAuthSessions(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))
	id := createTestInstructor(t, s, "alice")

	if err := s.CreateAuthSession("jti-1", id, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if err := s.CreateAuthSession("jti-2", id, clock.Now().Add(3*time.Hour)); err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}

	sess, err := s.GetAuthSession("jti-1")
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.InstructorID != id {
		t.Fatalf("expected session for instructor %d, got %+v", id, sess)
	}

	if err := s.DeleteAuthSession("jti-1"); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	if sess, _ := s.GetAuthSession("jti-1"); sess != nil {
		t.Error("expected revoked session to be gone")
	}

	if err := s.CreateAuthSession("jti-3", id, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if sess, _ := s.GetAuthSession("jti-3"); sess != nil {
		t.Error("expected expired session to be rejected")
	}

	if err := s.CreateAuthSession("jti-4", id, clock.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	n, err := s.CleanupExpiredSessions()
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired session removed, got %d", n)
	}
	if sess, _ := s.GetAuthSession("jti-2"); sess == nil {
		t.Error("expected unexpired session to survive cleanup")
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("schema_version")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != schemaVersion {
		t.Errorf("expected schema version %q, got %q", schemaVersion, v)
	}

	if v, _ := s.GetMetadata("missing"); v != "" {
		t.Errorf("expected empty value, got %q", v)
	}
	if err := s.SetMetadata("k", "one"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("k", "two"); err != nil {
		t.Fatalf("SetMetadata update: %v", err)
	}
	if v, _ := s.GetMetadata("k"); v != "two" {
		t.Errorf("expected 'two', got %q", v)
	}
}

func TestImportedExam(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.ImportedExam(1, "abc123")
	if err != nil {
		t.Fatalf("ImportedExam: %v", err)
	}
	if ok {
		t.Error("expected unknown hash")
	}

	if err := s.RecordImport(1, "abc123", 42); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	id, ok, err := s.ImportedExam(1, "abc123")
	if err != nil || !ok || id != 42 {
		t.Errorf("expected exam 42, got %d, %v, %v", id, ok, err)
	}
	if _, ok, err := s.ImportedExam(2, "abc123"); err != nil || ok {
		t.Errorf("expected the hash to be unknown for another instructor, got %v, %v", ok, err)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New("mysql", "whatever"); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}
