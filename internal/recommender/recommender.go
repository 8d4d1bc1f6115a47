// Package recommender ranks vacancies by lexical similarity to a student profile.
package recommender

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-career/internal/profile"
	"github.com/spigell/hh-career/internal/vacancy"
)

var highlightStripper = strings.NewReplacer("<highlighttext>", "", "</highlighttext>", "")

type Recommender struct {
	logger      *zap.Logger
	MaxFeatures int
}

func New(logger *zap.Logger) *Recommender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{logger: logger, MaxFeatures: DefaultMaxFeatures}
}

// Recommend scores every card against the student and returns the topN most similar.
// The term weights are refit on every call.
func (r *Recommender) Recommend(student *profile.Student, cards []*vacancy.Vacancy, topN int) (result *vacancy.Result) {
	if len(cards) == 0 {
		r.logger.Warn("no vacancies to recommend")
		return vacancy.Empty(vacancy.StrategyLexical)
	}

	if student == nil {
		r.logger.Warn("student profile is missing, returning vacancies without recommendations")
		return vacancy.Unscored(cards, topN)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("lexical ranking failed, returning vacancies without recommendations",
				zap.Error(fmt.Errorf("panic: %v", rec)),
			)
			result = vacancy.Unscored(cards, topN)
			result.Outcome = vacancy.OutcomeDegraded
			result.Strategy = vacancy.StrategyLexical
		}
	}()

	studentText := StudentText(student)
	if strings.TrimSpace(studentText) == "" {
		r.logger.Warn("student text is empty, returning vacancies without recommendations",
			zap.String("person_id", student.PersonID),
		)
		return vacancy.Unscored(cards, topN)
	}

	docs := make([]string, 0, len(cards)+1)
	docs = append(docs, studentText)
	for _, card := range cards {
		docs = append(docs, VacancyText(card))
	}

	vectors := fitTransform(docs, r.MaxFeatures)

	items := vacancy.Wrap(cards)
	for i, item := range items {
		score := clampScore(cosine(vectors[0], vectors[i+1]) * 100)
		item.SimilarityScore = &score
	}
	vacancy.SortBySimilarity(items)

	r.logger.Info("vacancies ranked by similarity",
		zap.Int("vacancies", len(items)),
		zap.Int("terms", len(vectors[0])),
	)

	result = &vacancy.Result{
		Outcome:   vacancy.OutcomeScored,
		Strategy:  vacancy.StrategyLexical,
		Vacancies: items,
	}
	result.Top(topN)

	return result
}

// StudentText builds the weighted profile text. Strong grades repeat the subject.
func StudentText(student *profile.Student) string {
	var parts []string
	add := func(s string, times int) {
		if s = strings.TrimSpace(s); s == "" {
			return
		}
		for i := 0; i < times; i++ {
			parts = append(parts, s)
		}
	}

	if edu, ok := student.Education(); ok {
		add(edu.Profession, 1)
		add(edu.Specialization, 1)
		add(edu.Qualification, 1)
	}

	for _, rec := range student.Records {
		add(rec.Subject, gradeWeight(rec.Grade))
	}

	for _, p := range student.Practices {
		add(p.Type, 1)
		add(p.Position, 1)
	}

	return strings.Join(parts, " ")
}

func gradeWeight(grade string) int {
	switch strings.TrimSpace(grade) {
	case "":
		return 0
	case "A", "A-", "B+":
		return 3
	case "B", "B-":
		return 2
	default:
		return 1
	}
}

// VacancyText builds the weighted vacancy text: title x3, company, skills x2, snippet.
func VacancyText(card *vacancy.Vacancy) string {
	var parts []string
	for i := 0; i < 3 && card.Title != ""; i++ {
		parts = append(parts, card.Title)
	}
	if card.Company != "" {
		parts = append(parts, card.Company)
	}
	for _, skill := range card.Skills {
		parts = append(parts, skill, skill)
	}
	if card.Snippet != "" {
		parts = append(parts, highlightStripper.Replace(card.Snippet))
	}
	return strings.Join(parts, " ")
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
