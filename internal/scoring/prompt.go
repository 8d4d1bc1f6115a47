package scoring

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spigell/hh-career/internal/profile"
	"github.com/spigell/hh-career/internal/utils"
	"github.com/spigell/hh-career/internal/vacancy"
)

const (
	snippetLimit = 200
	skillsLimit  = 5
	subjectsTop  = 5
	practicesTop = 2

	notSpecifiedN = "Не указано"
	notSpecifiedF = "Не указана"
	notSpecifiedM = "Не указан"
	notSpecifiedP = "Не указаны"
	noSnippet     = "Нет описания"
	noData        = "Нет данных"
	noExperience  = "Нет опыта"
)

//go:embed prompt.md
var promptTemplate string

// Summary is the student part of every batch prompt. It is built once per run.
type Summary struct {
	Specialization string
	Course         string
	GPA            string
	Subjects       string
	Practices      string
}

func StudentSummary(student *profile.Student) Summary {
	s := Summary{
		Specialization: student.Specialization(),
		Course:         student.CourseLabel(),
		GPA:            student.GPALabel(),
		Subjects:       noData,
		Practices:      noExperience,
	}
	if s.Specialization == "" {
		s.Specialization = profile.Unknown
	}
	if subjects := student.TopSubjects(subjectsTop); len(subjects) > 0 {
		s.Subjects = strings.Join(subjects, ", ")
	}
	if practices := student.PracticeTypes(practicesTop); len(practices) > 0 {
		s.Practices = strings.Join(practices, ", ")
	}
	return s
}

type batchEntry struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	City       string `json:"city"`
	Salary     string `json:"salary"`
	Employment string `json:"employment"`
	Snippet    string `json:"snippet"`
	Skills     string `json:"skills"`
}

func entries(batch []*vacancy.Scored) []batchEntry {
	out := make([]batchEntry, 0, len(batch))
	for i, v := range batch {
		skills := notSpecifiedP
		if len(v.Skills) > 0 {
			skills = strings.Join(v.Skills[:min(skillsLimit, len(v.Skills))], ", ")
		}
		out = append(out, batchEntry{
			Index:      i + 1,
			Title:      or(v.Title, notSpecifiedN),
			Company:    or(v.Company, notSpecifiedF),
			City:       or(v.City, notSpecifiedM),
			Salary:     or(v.Salary, notSpecifiedF),
			Employment: or(v.Employment, notSpecifiedN),
			Snippet:    utils.TruncateRunes(or(v.Snippet, noSnippet), snippetLimit),
			Skills:     skills,
		})
	}
	return out
}

// BuildPrompt renders the scoring instruction for one batch.
func BuildPrompt(summary Summary, batch []*vacancy.Scored) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries(batch)); err != nil {
		return "", err
	}

	r := strings.NewReplacer(
		"{{SPECIALIZATION}}", summary.Specialization,
		"{{COURSE}}", summary.Course,
		"{{GPA}}", summary.GPA,
		"{{SUBJECTS}}", summary.Subjects,
		"{{PRACTICES}}", summary.Practices,
		"{{VACANCIES}}", strings.TrimSpace(buf.String()),
		"{{COUNT}}", strconv.Itoa(len(batch)),
	)

	return strings.TrimSpace(r.Replace(promptTemplate)), nil
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
