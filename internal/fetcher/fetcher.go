// Package fetcher collects a deduplicated set of vacancy cards from the job
// board for a student, or for an anonymous visitor.
package fetcher

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-career/internal/headhunter"
	"github.com/spigell/hh-career/internal/profile"
	"github.com/spigell/hh-career/internal/vacancy"
)

const (
	DefaultMinVacancies  = 10
	DefaultDetailWorkers = 8
)

// Board is the job board surface the fetcher needs.
type Board interface {
	Search(ctx context.Context, params *headhunter.SearchParams) ([]*headhunter.Vacancy, error)
	GetSkills(ctx context.Context, detailURL string) ([]string, error)
}

// QueryGenerator produces search queries for a student. It must not fail.
type QueryGenerator interface {
	Generate(ctx context.Context, student *profile.Student, maxQueries int) []string
}

type Config struct {
	Area       int
	PerPage    int
	OrderBy    string
	Experience string
	// MinVacancies stops issuing further queries once that many unique items are collected.
	MinVacancies  int
	DetailWorkers int
	// Schedules and Period narrow the filtered queries only; the anonymous page stays unfiltered.
	Schedules []string
	Period    uint
}

type Fetcher struct {
	board   Board
	queries QueryGenerator
	cfg     Config
	logger  *zap.Logger
}

func New(board Board, queries QueryGenerator, cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Area == 0 {
		cfg.Area = headhunter.DefaultArea
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = headhunter.DefaultPerPage
	}
	if cfg.OrderBy == "" {
		cfg.OrderBy = headhunter.DefaultOrderBy
	}
	if cfg.Experience == "" {
		cfg.Experience = headhunter.ExperienceNone
	}
	if cfg.MinVacancies <= 0 {
		cfg.MinVacancies = DefaultMinVacancies
	}
	if cfg.DetailWorkers <= 0 {
		cfg.DetailWorkers = DefaultDetailWorkers
	}

	return &Fetcher{board: board, queries: queries, cfg: cfg, logger: logger}
}

// Fetch returns unique vacancy cards in first-seen order. Failures of single
// queries or detail calls are logged and skipped, so the result may be empty.
func (f *Fetcher) Fetch(ctx context.Context, student *profile.Student, maxQueries int) []*vacancy.Vacancy {
	queries := []string{""}
	if student != nil && f.queries != nil {
		queries = f.queries.Generate(ctx, student, maxQueries)
		if len(queries) == 0 {
			queries = []string{""}
		}
	}

	f.logger.Info("searching vacancies", zap.Strings("queries", queries), zap.Bool("anonymous", student == nil))

	items := f.collect(ctx, queries)
	cards := f.details(ctx, items)

	f.logger.Info("vacancies fetched", zap.Int("count", len(cards)))

	return cards
}

func (f *Fetcher) collect(ctx context.Context, queries []string) []*headhunter.Vacancy {
	seen := make(map[string]struct{})
	var items []*headhunter.Vacancy

	for i, query := range queries {
		if ctx.Err() != nil {
			f.logger.Warn("search cancelled", zap.Error(ctx.Err()))
			break
		}

		log := f.logger.With(zap.Int("query_index", i+1), zap.String("query", query))

		found, err := f.board.Search(ctx, f.params(query))
		if err != nil {
			log.Error("vacancy search failed, skipping query", zap.Error(err))
			continue
		}

		added := 0
		for _, item := range found {
			if item == nil || item.ID == "" {
				continue
			}
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
			added++
		}

		log.Info("search page merged",
			zap.Int("found", len(found)),
			zap.Int("added", added),
			zap.Int("total", len(items)),
		)

		if len(items) >= f.cfg.MinVacancies || i+1 >= len(queries) {
			break
		}
		log.Warn("not enough vacancies, trying next query", zap.Int("min", f.cfg.MinVacancies))
	}

	return items
}

func (f *Fetcher) params(query string) *headhunter.SearchParams {
	params := &headhunter.SearchParams{
		Area:    f.cfg.Area,
		PerPage: f.cfg.PerPage,
		Page:    0,
		OrderBy: f.cfg.OrderBy,
	}

	if query = strings.TrimSpace(query); query != "" {
		params.Text = query
		params.Experience = f.cfg.Experience
		params.Schedules = f.cfg.Schedules
		params.Period = f.cfg.Period
	}

	return params
}

// details loads key skills for every item concurrently. Cards keep the order of items.
func (f *Fetcher) details(ctx context.Context, items []*headhunter.Vacancy) []*vacancy.Vacancy {
	cards := make([]*vacancy.Vacancy, len(items))

	var g errgroup.Group
	g.SetLimit(f.cfg.DetailWorkers)

	for i, item := range items {
		g.Go(func() error {
			skills := []string{}
			if item.URL != "" {
				got, err := f.board.GetSkills(ctx, item.URL)
				if err != nil {
					f.logger.Debug("failed to get vacancy skills",
						zap.String("vacancy_id", item.ID),
						zap.Error(err),
					)
				} else if got != nil {
					skills = got
				}
			}
			cards[i] = item.Card(skills)
			return nil
		})
	}

	// Workers never return an error.
	_ = g.Wait()

	return cards
}
