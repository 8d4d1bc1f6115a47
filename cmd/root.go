package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hh-career"
)

type Config struct {
	Search      *SearchConfig   `mapstructure:"search" validate:"required"`
	HTTP        *HTTPConfig     `mapstructure:"http" validate:"required"`
	Pipeline    *PipelineConfig `mapstructure:"pipeline" validate:"required"`
	AI          *AIConfig       `mapstructure:"ai" validate:"required"`
	Profile     *ProfileConfig  `mapstructure:"profile"`
	Exclude     *ExcludeConfig  `mapstructure:"exclude"`
	Filters     *FiltersConfig  `mapstructure:"filters"`
	ExcludeFile string          `mapstructure:"exclude-file"`
	UserAgent   string          `mapstructure:"user-agent"`
	APIURL      string          `mapstructure:"api-url" validate:"omitempty,url"`
	TokenFile   string          `mapstructure:"token-file"`
}

type SearchConfig struct {
	Area          int      `mapstructure:"area" validate:"min=1"`
	PerPage       int      `mapstructure:"per-page" validate:"min=1,max=100"`
	OrderBy       string   `mapstructure:"order-by"`
	Experience    string   `mapstructure:"experience"`
	MinVacancies  int      `mapstructure:"min-vacancies" validate:"min=1"`
	DetailWorkers int      `mapstructure:"detail-workers" validate:"min=1"`
	Schedules     []string `mapstructure:"schedules"`
	Period        uint     `mapstructure:"period" validate:"max=30"`
}

type HTTPConfig struct {
	ListTimeout   time.Duration `mapstructure:"list-timeout" validate:"min=0"`
	DetailTimeout time.Duration `mapstructure:"detail-timeout" validate:"min=0"`
}

type PipelineConfig struct {
	PerPage      int    `mapstructure:"per-page" validate:"min=1"`
	MaxQueries   int    `mapstructure:"max-queries" validate:"min=1"`
	BatchCount   int    `mapstructure:"batch-count" validate:"min=1"`
	BatchSize    int    `mapstructure:"batch-size" validate:"min=1"`
	BatchWorkers int    `mapstructure:"batch-workers" validate:"min=1"`
	Strategy     string `mapstructure:"strategy" validate:"oneof=llm lexical auto"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"min=0"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"min=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"min=0"`
	ResponseType string `mapstructure:"response-mime-type"`
}

type ProfileConfig struct {
	Source      string `mapstructure:"source" validate:"omitempty,oneof=file postgres"`
	File        string `mapstructure:"file" validate:"required_if=Source file"`
	PersonID    string `mapstructure:"person-id"`
	DatabaseURL string `mapstructure:"database-url" validate:"required_if=Source postgres"`
}

type ExcludeConfig struct {
	Employers []string `mapstructure:"employers"`
}

type FiltersConfig struct {
	// Disabled lists filter names to skip, e.g. "employers" or "exclude_file".
	Disabled []string `mapstructure:"disabled"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-career recommends hh.ru vacancies to students based on their academic profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindings := map[string]string{
		"token-file":             "HH_TOKEN_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"profile.database-url":   "DATABASE_URL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-career.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("search.area", 40)
	viper.SetDefault("search.per-page", 50)
	viper.SetDefault("search.order-by", "publication_time")
	viper.SetDefault("search.experience", "noExperience")
	viper.SetDefault("search.min-vacancies", 10)
	viper.SetDefault("search.detail-workers", 8)

	viper.SetDefault("http.list-timeout", 10*time.Second)
	viper.SetDefault("http.detail-timeout", 5*time.Second)

	viper.SetDefault("pipeline.per-page", 10)
	viper.SetDefault("pipeline.max-queries", 1)
	viper.SetDefault("pipeline.batch-count", 1)
	viper.SetDefault("pipeline.batch-size", 20)
	viper.SetDefault("pipeline.batch-workers", 1)
	viper.SetDefault("pipeline.strategy", "auto")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.timeout", 60*time.Second)
	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash-lite")
	viper.SetDefault("ai.gemini.max-retries", 0)
	viper.SetDefault("ai.gemini.response-mime-type", "application/json")
	viper.SetDefault("ai.gemini.max-log-length", 200)
}

func initConfig() {
	// .env is optional, it only seeds environment variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Defaults are enough without a config file, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
