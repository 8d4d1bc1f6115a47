// Package vacancy holds the canonical vacancy card and the scored records the
// ranking pipeline produces from it.
package vacancy

import (
	"encoding/json"
	"os"
	"slices"
)

// Vacancy is the canonical, normalized form of a job board posting.
// It is built once per fetch and never modified afterwards.
type Vacancy struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Company    string   `json:"company"`
	EmployerID string   `json:"employer_id,omitempty"`
	City       string   `json:"city"`
	Salary     string   `json:"salary"`
	URL        string   `json:"url"`
	Employment string   `json:"employment"`
	Snippet    string   `json:"snippet"`
	Skills     []string `json:"skills"`
}

// Assessment is the LLM verdict for a single vacancy. All scores are within [0,100].
type Assessment struct {
	OverallScore    int      `json:"overall_score"`
	EducationMatch  int      `json:"education_match"`
	SkillsMatch     int      `json:"skills_match"`
	ExperienceMatch int      `json:"experience_match"`
	LocationMatch   int      `json:"location_match"`
	SalaryMatch     int      `json:"salary_match"`
	Reasoning       string   `json:"reasoning"`
	RedFlags        []string `json:"red_flags"`
	GreenFlags      []string `json:"green_flags"`

	// Failed marks a zero-score record produced by a fallback path.
	Failed bool `json:"-"`
}

// Scored is a vacancy plus the scoring fields of whichever path ran.
// Unset paths stay nil and are omitted from the JSON shape.
type Scored struct {
	Vacancy
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	*Assessment
}

// Wrap turns cards into unscored records, preserving order.
func Wrap(cards []*Vacancy) []*Scored {
	out := make([]*Scored, 0, len(cards))
	for _, card := range cards {
		if card == nil {
			continue
		}
		out = append(out, &Scored{Vacancy: *card})
	}
	return out
}

// Cards unwraps scored records back to their canonical cards.
func Cards(items []*Scored) []*Vacancy {
	out := make([]*Vacancy, 0, len(items))
	for _, item := range items {
		card := item.Vacancy
		out = append(out, &card)
	}
	return out
}

// SortByOverall orders records by overall score, highest first. Ties keep input order.
func SortByOverall(items []*Scored) {
	slices.SortStableFunc(items, func(a, b *Scored) int {
		return b.overall() - a.overall()
	})
}

// SortBySimilarity orders records by similarity score, highest first. Ties keep input order.
func SortBySimilarity(items []*Scored) {
	slices.SortStableFunc(items, func(a, b *Scored) int {
		sa, sb := a.similarity(), b.similarity()
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return 0
		}
	})
}

func (s *Scored) overall() int {
	if s.Assessment == nil {
		return 0
	}
	return s.OverallScore
}

func (s *Scored) similarity() float64 {
	if s.SimilarityScore == nil {
		return 0
	}
	return *s.SimilarityScore
}

// FailedAssessment is the zero-score verdict used when analysis could not run.
func FailedAssessment(reasoning string) *Assessment {
	return &Assessment{
		Reasoning:  reasoning,
		RedFlags:   []string{},
		GreenFlags: []string{},
		Failed:     true,
	}
}

// DumpToTmpFile writes the records as indented JSON into a new temp file and returns its name.
func DumpToTmpFile(items []*Scored) (string, error) {
	file, err := os.CreateTemp("", "vacancies_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", err
	}
	return file.Name(), nil
}
