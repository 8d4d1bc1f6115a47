// Package profile describes the student profile consumed by the ranking pipeline.
// Profiles are read-only inputs: nothing in the pipeline mutates them.
package profile

import (
	"slices"
	"strconv"
	"strings"
)

// Unknown is rendered in prompts for missing profile values.
const Unknown = "Неизвестно"

type Student struct {
	PersonID string   `mapstructure:"person-id"`
	Course   *int     `mapstructure:"course"`
	GPA      *float64 `mapstructure:"gpa"`

	// EducationInfo is optional; prefer the Education accessor.
	EducationInfo *Education `mapstructure:"education"`

	Records   []AcademicRecord `mapstructure:"academic-records"`
	Practices []Practice       `mapstructure:"practices"`
}

type Education struct {
	Profession     string `mapstructure:"profession"`
	Specialization string `mapstructure:"specialization"`
	Qualification  string `mapstructure:"qualification"`
}

type AcademicRecord struct {
	Subject string   `mapstructure:"subject"`
	Credits int      `mapstructure:"credits"`
	Grade   string   `mapstructure:"grade"`
	Score   *float64 `mapstructure:"score"`
}

type Practice struct {
	Type         string `mapstructure:"type"`
	Position     string `mapstructure:"position"`
	Organization string `mapstructure:"organization"`
}

// Education returns the education sub-record when the profile carries one.
func (s *Student) Education() (*Education, bool) {
	if s == nil || s.EducationInfo == nil {
		return nil, false
	}
	return s.EducationInfo, true
}

// Specialization returns the trimmed specialization or "" when it is unknown.
func (s *Student) Specialization() string {
	edu, ok := s.Education()
	if !ok {
		return ""
	}
	return strings.TrimSpace(edu.Specialization)
}

// CourseLabel renders the course number for prompts.
func (s *Student) CourseLabel() string {
	if s == nil || s.Course == nil || *s.Course == 0 {
		return Unknown
	}
	return strconv.Itoa(*s.Course)
}

// GPAValue returns the GPA or 0 when absent.
func (s *Student) GPAValue() float64 {
	if s == nil || s.GPA == nil {
		return 0
	}
	return *s.GPA
}

// GPALabel renders the GPA the way it is shown to the model, e.g. "3.5" or "0.0".
func (s *Student) GPALabel() string {
	label := strconv.FormatFloat(s.GPAValue(), 'f', -1, 64)
	if !strings.Contains(label, ".") {
		label += ".0"
	}
	return label
}

// TopSubjects returns up to n subject names ordered by score, highest first.
// Records without a score go last. When grades are given only records with one
// of those grades are considered.
func (s *Student) TopSubjects(n int, grades ...string) []string {
	if s == nil || n <= 0 {
		return nil
	}

	records := make([]AcademicRecord, 0, len(s.Records))
	for _, r := range s.Records {
		if strings.TrimSpace(r.Subject) == "" {
			continue
		}
		if len(grades) > 0 && !slices.Contains(grades, strings.TrimSpace(r.Grade)) {
			continue
		}
		records = append(records, r)
	}

	slices.SortStableFunc(records, func(a, b AcademicRecord) int {
		switch {
		case a.Score == nil && b.Score == nil:
			return 0
		case a.Score == nil:
			return 1
		case b.Score == nil:
			return -1
		case *a.Score > *b.Score:
			return -1
		case *a.Score < *b.Score:
			return 1
		default:
			return 0
		}
	})

	subjects := make([]string, 0, min(n, len(records)))
	for _, r := range records[:min(n, len(records))] {
		subjects = append(subjects, strings.TrimSpace(r.Subject))
	}
	return subjects
}

// PracticeTypes looks at the first n practices and returns their non-empty types.
func (s *Student) PracticeTypes(n int) []string {
	if s == nil || n <= 0 {
		return nil
	}

	types := make([]string, 0, n)
	for _, p := range s.Practices[:min(n, len(s.Practices))] {
		if t := strings.TrimSpace(p.Type); t != "" {
			types = append(types, t)
		}
	}
	return types
}
