// Package querygen turns a student profile into job board search queries.
package querygen

import (
	"context"
	_ "embed"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-career/internal/ai"
	"github.com/spigell/hh-career/internal/llmjson"
	"github.com/spigell/hh-career/internal/profile"
	"github.com/spigell/hh-career/internal/utils"
)

const (
	// FallbackQuery means "intern, no experience".
	FallbackQuery = "стажер без опыта"

	topSubjects   = 5
	topPractices  = 3
	noData        = "Нет данных"
	noExperience  = "Нет опыта"
	defaultLogLen = 200
)

// strongGrades are the grades a subject needs to count as a strength.
var strongGrades = []string{"A", "A-", "B+", "B"}

//go:embed prompt.md
var promptTemplate string

type Generator struct {
	llm          ai.Generator
	logger       *zap.Logger
	MaxLogLength int
}

func New(llm ai.Generator, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: llm, logger: logger, MaxLogLength: defaultLogLen}
}

// Generate asks the model for up to maxQueries short search queries.
// It never fails: on any error the fallback query is returned.
func (g *Generator) Generate(ctx context.Context, student *profile.Student, maxQueries int) []string {
	if maxQueries < 1 {
		maxQueries = 1
	}

	if student == nil || g.llm == nil {
		g.logger.Warn("query generation is not available, using fallback")
		return Fallback(student)
	}

	prompt := BuildPrompt(student, maxQueries)
	g.logger.Debug("generating search queries",
		zap.Int("max_queries", maxQueries),
		zap.String("prompt", utils.TruncateForLog(prompt, g.MaxLogLength)),
	)

	raw, err := g.llm.GenerateContent(ctx, prompt)
	if err != nil {
		g.logger.Error("query generation failed, using fallback", zap.Error(err))
		return Fallback(student)
	}

	queries, err := Parse(raw, maxQueries)
	if err != nil {
		g.logger.Error("failed to parse generated queries, using fallback",
			zap.Error(err),
			zap.String("response", utils.TruncateForLog(raw, g.MaxLogLength)),
		)
		return Fallback(student)
	}

	g.logger.Info("search queries generated", zap.Strings("queries", queries))

	return queries
}

// Parse extracts up to maxQueries trimmed non-empty strings from the model output.
func Parse(raw string, maxQueries int) ([]string, error) {
	items, err := llmjson.DecodeArray(raw, llmjson.SchemaArray)
	if err != nil {
		return nil, err
	}

	queries := llmjson.Strings(items)
	if len(queries) == 0 {
		return nil, llmjson.ErrNotArray
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	return queries, nil
}

// Fallback returns the specialization as the only query, or FallbackQuery when it is unknown.
func Fallback(student *profile.Student) []string {
	if spec := student.Specialization(); spec != "" {
		return []string{spec}
	}
	return []string{FallbackQuery}
}

// BuildPrompt renders the query generation instruction for the student.
func BuildPrompt(student *profile.Student, maxQueries int) string {
	subjects := joinOr(student.TopSubjects(topSubjects, strongGrades...), noData)
	practices := joinOr(student.PracticeTypes(topPractices), noExperience)

	single := maxQueries == 1
	r := strings.NewReplacer(
		"{{SPECIALIZATION}}", joinOr(nonEmpty(student.Specialization()), profile.Unknown),
		"{{COURSE}}", student.CourseLabel(),
		"{{GPA}}", student.GPALabel(),
		"{{SUBJECTS}}", subjects,
		"{{PRACTICES}}", practices,
		"{{COUNT}}", strconv.Itoa(maxQueries),
		"{{QUERY_NOUN}}", pick(single, "поисковый запрос", "поисковых запроса"),
		"{{WHICH_HELP}}", pick(single, "который поможет", "которые помогут"),
		"{{RULE_FOCUS}}", pick(single, "Выбери САМЫЙ релевантный запрос", "Включи синонимы и смежные специальности"),
		"{{RULE_VARIETY}}", pick(single,
			"Запрос должен максимально точно отражать специальность",
			"Разнообразь запросы (не только точное название специальности)"),
		"{{FORMAT}}", pick(single, `["запрос 1"]`, `["запрос 1", "запрос 2", ...]`),
		"{{EXAMPLE}}", pick(single,
			`["junior python разработчик"]`,
			`["junior python разработчик", "программист", "начинающий backend"]`),
	)

	return strings.TrimSpace(r.Replace(promptTemplate))
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
