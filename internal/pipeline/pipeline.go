// Package pipeline wires the fetcher, the filters and the scoring strategies
// into a single recommendation run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hh-career/internal/filtering"
	"github.com/spigell/hh-career/internal/logger"
	"github.com/spigell/hh-career/internal/profile"
	"github.com/spigell/hh-career/internal/vacancy"
)

const (
	StrategyLLM     = "llm"
	StrategyLexical = "lexical"
	StrategyAuto    = "auto"

	DefaultPerPage = 10
)

type VacancySource interface {
	Fetch(ctx context.Context, student *profile.Student, maxQueries int) []*vacancy.Vacancy
}

type BatchScorer interface {
	Score(ctx context.Context, cards []*vacancy.Vacancy, student *profile.Student, maxBatches int) *vacancy.Result
}

type LexicalRanker interface {
	Recommend(student *profile.Student, cards []*vacancy.Vacancy, topN int) *vacancy.Result
}

type Options struct {
	PerPage    int
	MaxQueries int
	BatchCount int
	Strategy   string
}

type Pipeline struct {
	source  VacancySource
	scorer  BatchScorer
	ranker  LexicalRanker
	filters []filtering.Filter
	logger  *zap.Logger
}

// New builds a pipeline. Filters must already be validated.
func New(source VacancySource, scorer BatchScorer, ranker LexicalRanker, log *zap.Logger, filters ...filtering.Filter) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{source: source, scorer: scorer, ranker: ranker, filters: filters, logger: log}
}

// Run produces the ranked vacancies for student, or the latest vacancies when
// student is nil. It always returns a result, empty at worst.
func (p *Pipeline) Run(ctx context.Context, student *profile.Student, opts Options) (result *vacancy.Result) {
	opts = normalize(opts)
	log := logger.WithRun(p.logger, uuid.NewString(), opts.Strategy)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("pipeline failed, returning empty result", zap.Error(fmt.Errorf("panic: %v", rec)))
			result = vacancy.Empty(vacancy.StrategyNone)
		}
	}()

	log.Info("starting recommendation run",
		zap.Bool("anonymous", student == nil),
		zap.Int("per_page", opts.PerPage),
		zap.Int("max_queries", opts.MaxQueries),
		zap.Int("batch_count", opts.BatchCount),
	)

	cards := p.source.Fetch(ctx, student, opts.MaxQueries)
	cards = filtering.Run(ctx, filtering.Deps{Logger: log}, p.filters, cards)

	if student == nil {
		result = vacancy.Unscored(cards, opts.PerPage)
	} else {
		result = p.rank(ctx, log, student, cards, opts)
	}

	result.Top(opts.PerPage)

	log.Info("recommendation run finished",
		zap.Stringer("outcome", result.Outcome),
		zap.String("scored_by", result.Strategy),
		zap.Int("vacancies", result.Len()),
		zap.Int("batches", result.Stats.Batches),
		zap.Int("failed_batches", result.Stats.FailedBatches),
	)

	return result
}

func (p *Pipeline) rank(ctx context.Context, log *zap.Logger, student *profile.Student, cards []*vacancy.Vacancy, opts Options) *vacancy.Result {
	if len(cards) == 0 {
		log.Warn("no vacancies fetched")
		return vacancy.Empty(vacancy.StrategyNone)
	}

	switch opts.Strategy {
	case StrategyLexical:
		return p.ranker.Recommend(student, cards, opts.PerPage)
	case StrategyLLM:
		return p.scorer.Score(ctx, cards, student, opts.BatchCount)
	}

	result := p.scorer.Score(ctx, cards, student, opts.BatchCount)
	if !result.Stats.AllFailed() || p.ranker == nil {
		return result
	}

	log.Warn("every llm batch failed, falling back to lexical ranking", zap.Int("batches", result.Stats.Batches))

	lexical := p.ranker.Recommend(student, vacancy.Cards(result.Vacancies), opts.PerPage)
	if lexical.Outcome != vacancy.OutcomeScored {
		return result
	}
	lexical.Outcome = vacancy.OutcomeDegraded
	lexical.Stats = result.Stats

	return lexical
}

func normalize(opts Options) Options {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.MaxQueries < 1 {
		opts.MaxQueries = 1
	}
	if opts.BatchCount < 1 {
		opts.BatchCount = 1
	}
	switch opts.Strategy {
	case StrategyLLM, StrategyLexical, StrategyAuto:
	default:
		opts.Strategy = StrategyAuto
	}
	return opts
}
