package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-career/internal/ai"
	"github.com/spigell/hh-career/internal/ai/gemini"
	"github.com/spigell/hh-career/internal/fetcher"
	"github.com/spigell/hh-career/internal/filtering"
	"github.com/spigell/hh-career/internal/headhunter"
	"github.com/spigell/hh-career/internal/logger"
	"github.com/spigell/hh-career/internal/pipeline"
	"github.com/spigell/hh-career/internal/profile"
	"github.com/spigell/hh-career/internal/querygen"
	"github.com/spigell/hh-career/internal/recommender"
	"github.com/spigell/hh-career/internal/scoring"
	"github.com/spigell/hh-career/internal/secrets"
	"github.com/spigell/hh-career/internal/vacancy"
)

const (
	PromptShowDetails         = "Show vacancy details"
	PromptVacanciesToFile     = "Dump vacancies to file"
	PromptAppendToExcludeFile = "Append all vacancies to exclude file"
	PromptExit                = "Exit"
	PromptBack                = "back"
)

var errExit = errors.New("exit requested")

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Fetch vacancies and rank them for a student",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().BoolP("yes", "y", false, "do not show the interactive menu after ranking")
	recommendCmd.Flags().Bool("json-output", false, "print the ranked vacancies as json to stdout and exit")
	recommendCmd.Flags().String("person-id", "", "student person id to load from the profile store")
	recommendCmd.Flags().String("profile-file", "", "file with a student profile (implies profile.source=file)")
	recommendCmd.Flags().String("strategy", "", "scoring strategy: llm, lexical or auto")
	recommendCmd.Flags().Int("per-page", 0, "how many vacancies to return")
	recommendCmd.Flags().StringP("exclude-file", "e", "", "special file with vacancies to exclude. Default is unset.")
	recommendCmd.Flags().StringSlice("disable-filter", nil, "filter names to skip (employers, exclude_file)")

	viper.BindPFlag("exclude-file", recommendCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("profile.person-id", recommendCmd.Flags().Lookup("person-id"))
	viper.BindPFlag("filters.disabled", recommendCmd.Flags().Lookup("disable-filter"))
}

// recommend is the main command for the cli.
func recommend(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	applyFlags(cmd, config)

	logger.Info("starting the "+app, zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	student, closeStore, err := loadStudent(ctx, config.Profile)
	if err != nil {
		logger.Fatal("loading student profile", zap.Error(err))
	}
	defer closeStore()

	hh, err := newHeadhunter(config, logger)
	if err != nil {
		logger.Fatal("creating headhunter client", zap.Error(err))
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("llm is not available, queries and scoring will degrade", zap.Error(err))
	}

	filters := filtering.Default()
	if config.Filters != nil {
		if err := disableFilters(filters, config.Filters.Disabled); err != nil {
			logger.Fatal("preparing filters", zap.Error(err))
		}
	}
	filterCfg := &filtering.Config{ExcludeFile: config.ExcludeFile}
	if config.Exclude != nil {
		filterCfg.Employers = config.Exclude.Employers
	}
	if err := filtering.Validate(filterCfg, filters); err != nil {
		logger.Fatal("preparing filters", zap.Error(err))
	}
	for _, status := range filtering.Describe(filters) {
		logger.Debug("filter", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled), zap.Any("details", status.Details))
	}

	source := fetcher.New(hh, querygen.New(generator, logger), fetcher.Config{
		Area:          config.Search.Area,
		PerPage:       config.Search.PerPage,
		OrderBy:       config.Search.OrderBy,
		Experience:    config.Search.Experience,
		MinVacancies:  config.Search.MinVacancies,
		DetailWorkers: config.Search.DetailWorkers,
		Schedules:     config.Search.Schedules,
		Period:        config.Search.Period,
	}, logger)
	scorer := scoring.New(generator, logger, config.Pipeline.BatchSize, config.Pipeline.BatchWorkers)
	if config.AI.Gemini != nil && config.AI.Gemini.MaxLogLength > 0 {
		scorer.MaxLogLength = config.AI.Gemini.MaxLogLength
	}

	p := pipeline.New(source, scorer, recommender.New(logger), logger, filters...)
	result := p.Run(ctx, student, pipeline.Options{
		PerPage:    config.Pipeline.PerPage,
		MaxQueries: config.Pipeline.MaxQueries,
		BatchCount: config.Pipeline.BatchCount,
		Strategy:   config.Pipeline.Strategy,
	})

	if jsonOutput, _ := cmd.Flags().GetBool("json-output"); jsonOutput {
		if err := printJSON(result); err != nil {
			logger.Fatal("printing result", zap.Error(err))
		}
		return
	}

	if result.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no vacancies found"))
		return
	}

	report(logger, result)

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return
	}

	menu := promptui.Select{
		Label: "What next?",
		Items: []string{PromptShowDetails, PromptVacanciesToFile, PromptAppendToExcludeFile, PromptExit},
	}

	for {
		_, action, err := menu.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, config, result); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func disableFilters(filters []filtering.Filter, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !filtering.DisableByName(filters, name, "disabled by configuration") {
			return fmt.Errorf("unknown filter %q", name)
		}
	}
	return nil
}

func applyFlags(cmd *cobra.Command, config *Config) {
	if path, _ := cmd.Flags().GetString("profile-file"); path != "" {
		if config.Profile == nil {
			config.Profile = &ProfileConfig{}
		}
		config.Profile.Source = "file"
		config.Profile.File = path
	}
	if strategy, _ := cmd.Flags().GetString("strategy"); strategy != "" {
		config.Pipeline.Strategy = strategy
	}
	if perPage, _ := cmd.Flags().GetInt("per-page"); perPage > 0 {
		config.Pipeline.PerPage = perPage
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, result *vacancy.Result) error {
	switch action {
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptShowDetails:
		return showDetails(logger, result)
	case PromptVacanciesToFile:
		filename, err := vacancy.DumpToTmpFile(result.Vacancies)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		if config.ExcludeFile == "" {
			logger.Warn("exclude file is not configured", zap.String("hint", "set exclude-file in config or pass --exclude-file"))
			return nil
		}
		excluded, err := headhunter.GetExcludedVacanciesFromFile(config.ExcludeFile)
		if err != nil {
			return err
		}
		excluded.Append(headhunter.ToExcluded(result.Vacancies))
		if err := excluded.ToFile(config.ExcludeFile); err != nil {
			return err
		}
		logger.Info("appended to exclude file", zap.String("filename", config.ExcludeFile), zap.Int("count", result.Len()))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func showDetails(logger *zap.Logger, result *vacancy.Result) error {
	items := make([]string, 0, result.Len()+1)
	for _, v := range result.Vacancies {
		items = append(items, fmt.Sprintf("%s %s / %s / %s", v.ID, v.Title, v.Company, v.URL))
	}

	vacancyPrompt := promptui.Select{
		Label: "Choose a vacancy and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := vacancyPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	id := strings.Split(selected, " ")[0]
	for _, v := range result.Vacancies {
		if v.ID != id {
			continue
		}
		pretty, _ := json.MarshalIndent(v, "", "  ")
		logger.Info(string(pretty), zap.String("vacancy_id", id))
		return nil
	}

	return fmt.Errorf("there is no such vacancy id %s", id)
}

func report(logger *zap.Logger, result *vacancy.Result) {
	logger.Info("recommended vacancies",
		zap.Int("count", result.Len()),
		zap.Stringer("outcome", result.Outcome),
		zap.String("scored_by", result.Strategy),
	)

	for i, v := range result.Vacancies {
		fields := []zap.Field{
			zap.Int("rank", i+1),
			zap.String("vacancy_id", v.ID),
			zap.String("company", v.Company),
			zap.String("salary", v.Salary),
			zap.String("url", v.URL),
		}
		if v.Assessment != nil {
			fields = append(fields, zap.Int("overall_score", v.OverallScore), zap.String("reasoning", v.Reasoning))
		}
		if v.SimilarityScore != nil {
			fields = append(fields, zap.Float64("similarity_score", *v.SimilarityScore))
		}
		logger.Info(v.Title, fields...)
	}
}

func printJSON(result *vacancy.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Vacancies)
}

func newHeadhunter(config *Config, logger *zap.Logger) (*headhunter.Client, error) {
	token, err := secrets.Optional(secrets.Source{
		Name: "headhunter token",
		File: config.TokenFile,
		Env:  "HH_TOKEN",
	})
	if err != nil {
		return nil, err
	}

	hh := headhunter.New(logger, token)
	if config.UserAgent != "" {
		hh.UserAgent = config.UserAgent
	}
	if config.APIURL != "" {
		hh.APIURL = config.APIURL
	}
	if config.HTTP.ListTimeout > 0 {
		hh.HTTPClient.Timeout = config.HTTP.ListTimeout
	}
	if config.HTTP.DetailTimeout > 0 {
		hh.DetailTimeout = config.HTTP.DetailTimeout
	}

	return hh, nil
}

// newGenerator returns a nil generator together with the reason when the llm cannot be used.
func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is missing")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, logger,
		gemini.WithResponseMIMEType(cfg.Gemini.ResponseType),
	)
	if err != nil {
		return nil, err
	}

	return ai.WithTimeout(generator, cfg.Timeout), nil
}

// loadStudent returns a nil student for anonymous runs.
func loadStudent(ctx context.Context, cfg *ProfileConfig) (*profile.Student, func(), error) {
	noop := func() {}
	if cfg == nil || cfg.Source == "" {
		return nil, noop, nil
	}

	var (
		store  profile.Store
		closer = noop
	)
	switch cfg.Source {
	case "file":
		store = profile.NewFileStore(cfg.File)
	case "postgres":
		pg, err := profile.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store, closer = pg, pg.Close
	default:
		return nil, noop, fmt.Errorf("unsupported profile source: %s", cfg.Source)
	}

	student, err := store.Load(ctx, cfg.PersonID)
	if err != nil {
		closer()
		return nil, noop, err
	}

	return student, closer, nil
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) Config {
	c := *config
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		aiCfg := *c.AI
		gem := *aiCfg.Gemini
		gem.APIKey = "***"
		aiCfg.Gemini = &gem
		c.AI = &aiCfg
	}
	if c.Profile != nil && c.Profile.DatabaseURL != "" {
		p := *c.Profile
		p.DatabaseURL = "***"
		c.Profile = &p
	}
	return c
}
