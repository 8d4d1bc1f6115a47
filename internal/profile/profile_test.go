package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func score(v float64) *float64 { return &v }

func TestEducationAccessor(t *testing.T) {
	var nilStudent *Student
	if _, ok := nilStudent.Education(); ok {
		t.Fatal("nil student must not report education")
	}

	s := &Student{}
	if _, ok := s.Education(); ok {
		t.Fatal("expected no education")
	}
	if s.Specialization() != "" {
		t.Fatalf("expected empty specialization, got %q", s.Specialization())
	}

	s.EducationInfo = &Education{Specialization: "  Software Engineering "}
	if got := s.Specialization(); got != "Software Engineering" {
		t.Fatalf("unexpected specialization %q", got)
	}
}

func TestCourseAndGPA(t *testing.T) {
	s := &Student{}
	if s.CourseLabel() != Unknown {
		t.Fatalf("expected unknown course, got %q", s.CourseLabel())
	}
	if s.GPAValue() != 0 {
		t.Fatalf("expected zero gpa")
	}
	if s.GPALabel() != "0.0" {
		t.Fatalf("unexpected gpa label %q", s.GPALabel())
	}

	course, gpa := 3, 3.67
	s.Course, s.GPA = &course, &gpa
	if s.CourseLabel() != "3" {
		t.Fatalf("unexpected course label %q", s.CourseLabel())
	}
	if s.GPAValue() != 3.67 {
		t.Fatalf("unexpected gpa %v", s.GPAValue())
	}
	if s.GPALabel() != "3.67" {
		t.Fatalf("unexpected gpa label %q", s.GPALabel())
	}
}

func TestTopSubjects(t *testing.T) {
	s := &Student{Records: []AcademicRecord{
		{Subject: "History", Grade: "C", Score: score(60)},
		{Subject: "Algorithms", Grade: "A", Score: score(95)},
		{Subject: "Databases", Grade: "B+", Score: score(88)},
		{Subject: "Physics", Grade: "B", Score: nil},
		{Subject: "Networks", Grade: "A-", Score: score(88)},
		{Subject: "  ", Grade: "A", Score: score(100)},
	}}

	got := s.TopSubjects(5)
	want := []string{"Algorithms", "Databases", "Networks", "History", "Physics"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: %v", got)
	}

	got = s.TopSubjects(10, "A", "A-", "B+", "B")
	want = []string{"Algorithms", "Databases", "Networks", "Physics"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected filtered order: %v", got)
	}

	if got := s.TopSubjects(0); got != nil {
		t.Fatalf("expected nil for n=0, got %v", got)
	}
}

func TestPracticeTypes(t *testing.T) {
	s := &Student{Practices: []Practice{
		{Type: "Учебная"},
		{Type: ""},
		{Type: "Производственная"},
		{Type: "Преддипломная"},
	}}

	got := s.PracticeTypes(3)
	want := []string{"Учебная", "Производственная"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected practice types: %v", got)
	}
}

func TestFileStoreLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "student.yaml")
	content := `person-id: "S-100"
course: 3
gpa: 3.5
education:
  profession: "Информационные системы"
  specialization: "Software Engineering"
  qualification: "Бакалавр"
academic-records:
  - subject: "Algorithms"
    grade: "A"
    score: 95
    credits: 5
practices:
  - type: "Производственная"
    position: "Стажер"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	student, err := NewFileStore(path).Load(context.Background(), "S-100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if student.Specialization() != "Software Engineering" {
		t.Fatalf("unexpected specialization %q", student.Specialization())
	}
	if student.CourseLabel() != "3" || student.GPAValue() != 3.5 {
		t.Fatalf("unexpected course/gpa: %s %v", student.CourseLabel(), student.GPAValue())
	}
	if len(student.Records) != 1 || student.Records[0].Score == nil || *student.Records[0].Score != 95 {
		t.Fatalf("unexpected records: %+v", student.Records)
	}
	if len(student.Practices) != 1 || student.Practices[0].Position != "Стажер" {
		t.Fatalf("unexpected practices: %+v", student.Practices)
	}

	_, err = NewFileStore(path).Load(context.Background(), "S-200")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreMissingPath(t *testing.T) {
	if _, err := NewFileStore("").Load(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewFileStore(filepath.Join(t.TempDir(), "none.yaml")).Load(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}
