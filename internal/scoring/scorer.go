// Package scoring ranks vacancies for a student with batched LLM calls.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-career/internal/ai"
	"github.com/spigell/hh-career/internal/llmjson"
	"github.com/spigell/hh-career/internal/logger"
	"github.com/spigell/hh-career/internal/profile"
	"github.com/spigell/hh-career/internal/utils"
	"github.com/spigell/hh-career/internal/vacancy"
)

const (
	// FailureReasoning marks records whose batch could not be analyzed.
	FailureReasoning = "Ошибка анализа"

	DefaultBatchSize = 20
	defaultLogLength = 200
)

var (
	errNoGenerator   = errors.New("llm generator is not configured")
	errNothingMerged = errors.New("batch response does not address any vacancy")
)

type Scorer struct {
	llm    ai.Generator
	logger *zap.Logger

	BatchSize    int
	Workers      int
	MaxLogLength int
}

func New(llm ai.Generator, log *zap.Logger, batchSize, workers int) *Scorer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if workers <= 0 {
		workers = 1
	}

	model := ""
	if llm != nil {
		model = llm.Model()
	}

	return &Scorer{
		llm:          llm,
		logger:       logger.WithFields(log, logger.CommonFields("", model)...),
		BatchSize:    batchSize,
		Workers:      workers,
		MaxLogLength: defaultLogLength,
	}
}

// Score analyzes at most maxBatches batches of cards and returns them sorted
// by overall score. A failed batch degrades to zero-score records; it never
// aborts its siblings.
func (s *Scorer) Score(ctx context.Context, cards []*vacancy.Vacancy, student *profile.Student, maxBatches int) (result *vacancy.Result) {
	if len(cards) == 0 {
		return vacancy.Empty(vacancy.StrategyLLM)
	}

	if maxBatches < 1 {
		maxBatches = 1
	}
	batches := min(maxBatches, (len(cards)+s.BatchSize-1)/s.BatchSize)
	if limit := batches * s.BatchSize; limit < len(cards) {
		s.logger.Info("limiting vacancies for analysis", zap.Int("limit", limit), zap.Int("fetched", len(cards)))
		cards = cards[:limit]
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("batch scoring panicked, returning zero scores", zap.Error(fmt.Errorf("panic: %v", rec)))
			result = failedResult(cards, batches)
		}
	}()

	items := vacancy.Wrap(cards)
	for _, item := range items {
		item.Assessment = vacancy.FailedAssessment(FailureReasoning)
	}

	summary := StudentSummary(student)

	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(s.Workers)

	for b := 0; b < batches; b++ {
		start := b * s.BatchSize
		end := min(start+s.BatchSize, len(items))
		batch := items[start:end]
		log := s.logger.With(zap.Int("batch", b+1), zap.Int("batches", batches))

		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("panic: %v", rec)
				}
				if err != nil {
					failed.Add(1)
					resetBatch(batch)
					log.Error("batch analysis failed, using zero scores", zap.Error(err))
				}
			}()

			return s.scoreBatch(ctx, log, summary, batch)
		})
	}

	// Batch errors are handled inside each worker.
	_ = g.Wait()

	vacancy.SortByOverall(items)

	stats := vacancy.Stats{Batches: batches, FailedBatches: int(failed.Load())}
	outcome := vacancy.OutcomeScored
	if stats.FailedBatches > 0 || slices.ContainsFunc(items, unscored) {
		outcome = vacancy.OutcomeDegraded
	}

	s.logger.Info("vacancies analyzed",
		zap.Int("vacancies", len(items)),
		zap.Int("batches", stats.Batches),
		zap.Int("failed_batches", stats.FailedBatches),
	)

	return &vacancy.Result{
		Outcome:   outcome,
		Strategy:  vacancy.StrategyLLM,
		Stats:     stats,
		Vacancies: items,
	}
}

func unscored(item *vacancy.Scored) bool {
	return item.Assessment == nil || item.Failed
}

func (s *Scorer) scoreBatch(ctx context.Context, log *zap.Logger, summary Summary, batch []*vacancy.Scored) error {
	if s.llm == nil {
		return errNoGenerator
	}

	prompt, err := BuildPrompt(summary, batch)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}
	log.Debug("sending batch for analysis",
		zap.Int("size", len(batch)),
		zap.String("prompt", utils.TruncateForLog(prompt, s.MaxLogLength)),
	)

	raw, err := s.llm.GenerateContent(ctx, prompt)
	if err != nil {
		return err
	}

	analyses, err := llmjson.DecodeArray(raw, llmjson.SchemaObjectArray)
	if err != nil {
		log.Debug("unparsable batch response", zap.String("response", utils.TruncateForLog(raw, s.MaxLogLength)))
		return err
	}

	merged, dropped := merge(batch, analyses)
	if merged == 0 {
		return fmt.Errorf("%w: %d entries dropped", errNothingMerged, dropped)
	}
	if missing := len(batch) - merged; missing > 0 || dropped > 0 {
		log.Warn("batch response does not cover every vacancy",
			zap.Int("merged", merged),
			zap.Int("dropped", dropped),
			zap.Int("missing", missing),
		)
	}

	return nil
}

// merge applies analyses to batch by their 1-based index. Entries addressing
// a position outside the batch, or one already merged, are dropped.
func merge(batch []*vacancy.Scored, analyses []any) (merged, dropped int) {
	done := make([]bool, len(batch))
	for _, a := range analyses {
		obj, ok := a.(map[string]any)
		if !ok {
			dropped++
			continue
		}

		index := 1
		if raw, present := obj["index"]; present {
			n, ok := llmjson.Int(raw)
			if !ok {
				dropped++
				continue
			}
			index = n
		}

		pos := index - 1
		if pos < 0 || pos >= len(batch) || done[pos] {
			dropped++
			continue
		}

		batch[pos].Assessment = assessment(obj)
		done[pos] = true
		merged++
	}
	return merged, dropped
}

func assessment(obj map[string]any) *vacancy.Assessment {
	return &vacancy.Assessment{
		OverallScore:    llmjson.Score(obj["overall_match"]),
		EducationMatch:  llmjson.Score(obj["education_match"]),
		SkillsMatch:     llmjson.Score(obj["skills_match"]),
		ExperienceMatch: llmjson.Score(obj["experience_match"]),
		LocationMatch:   llmjson.Score(obj["location_match"]),
		SalaryMatch:     llmjson.Score(obj["salary_match"]),
		Reasoning:       llmjson.String(obj["reasoning"]),
		RedFlags:        llmjson.Strings(obj["red_flags"]),
		GreenFlags:      llmjson.Strings(obj["green_flags"]),
	}
}

func resetBatch(batch []*vacancy.Scored) {
	for _, item := range batch {
		item.Assessment = vacancy.FailedAssessment(FailureReasoning)
	}
}

func failedResult(cards []*vacancy.Vacancy, batches int) *vacancy.Result {
	items := vacancy.Wrap(cards)
	resetBatch(items)
	return &vacancy.Result{
		Outcome:   vacancy.OutcomeDegraded,
		Strategy:  vacancy.StrategyLLM,
		Stats:     vacancy.Stats{Batches: batches, FailedBatches: batches},
		Vacancies: items,
	}
}
