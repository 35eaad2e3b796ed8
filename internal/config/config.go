package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/icron"
	"github.com/MimeLyc/term-injector/pkg/log"
)

// Config holds all application configuration.
// Values come from an optional YAML file, then environment variables
// (a .env file in the working directory is loaded first), then Options.
//
// Environment Variables:
// Languages:
// - TERM_SRC_LANG / TERM_TRG_LANG: source and target language (BCP 47, reduced to the base code)
//
// Injection:
// - TERM_START_SYMBOL, TERM_MID_SYMBOL, TERM_END_SYMBOL: annotation markers (default <misc0>, <misc1>, <misc2>)
// - TERM_WORKERS: parallel workers for sentence pairs (default: 1)
// - TERM_BATCH_SIZE: lines per parallel batch (default: 512)
// - TERM_DETECT_LANGUAGE: count source lines detected as another language (default: false)
// - TERM_MATCH_TIMEOUT: per-search regex timeout, 0 disables (default: 0s)
//
// Dictionary:
// - DIX_START_SYMBOL, DIX_MID_SYMBOL, DIX_END_SYMBOL: dictionary symbols (default <t_start>, <t_mid>, <t_end>)
//
// TBX conversion:
// - TBX_ENABLE_SMALL: keep terms of three characters or fewer
// - TBX_ENABLE_NON_ALPHABETICAL: keep terms without letters
//
// Storage and scheduling:
// - TERM_DB_PATH: SQLite terminology store (optional)
// - TERM_CRON_EXPR: pipeline schedule (default: 0 0 * * *)
// - TERM_TBX_FILE, TERM_RECORDS_FILE, TERM_DIX_FILE, TERM_CORPUS_DIR: scheduled pipeline paths
//
// Logging:
// - TERM_LOG_LEVEL: debug, info, warn, error (default: info)
type Config struct {
	Lang     LangConfig     `yaml:"lang"`
	Inject   InjectConfig   `yaml:"inject"`
	Dix      DixConfig      `yaml:"dix"`
	TBX      TBXConfig      `yaml:"tbx"`
	Store    StoreConfig    `yaml:"store"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Log      LogConfig      `yaml:"log"`
}

type LangConfig struct {
	Source string `yaml:"source" env:"TERM_SRC_LANG"`
	Target string `yaml:"target" env:"TERM_TRG_LANG"`
}

// InjectConfig configures the annotation tool.
type InjectConfig struct {
	StartSymbol    string        `yaml:"start_symbol"    env:"TERM_START_SYMBOL"    env-default:"<misc0>"`
	MidSymbol      string        `yaml:"mid_symbol"      env:"TERM_MID_SYMBOL"      env-default:"<misc1>"`
	EndSymbol      string        `yaml:"end_symbol"      env:"TERM_END_SYMBOL"      env-default:"<misc2>"`
	Workers        int           `yaml:"workers"         env:"TERM_WORKERS"         env-default:"1"`
	BatchSize      int           `yaml:"batch_size"      env:"TERM_BATCH_SIZE"      env-default:"512"`
	DetectLanguage bool          `yaml:"detect_language" env:"TERM_DETECT_LANGUAGE"`
	MatchTimeout   time.Duration `yaml:"match_timeout"   env:"TERM_MATCH_TIMEOUT"   env-default:"0s"`
}

func (c InjectConfig) Markers() Markers {
	return Markers{Start: c.StartSymbol, Mid: c.MidSymbol, End: c.EndSymbol}
}

// DixConfig configures the dictionary emitter. Its markers are independent
// of the annotation markers.
type DixConfig struct {
	StartSymbol string `yaml:"start_symbol" env:"DIX_START_SYMBOL" env-default:"<t_start>"`
	MidSymbol   string `yaml:"mid_symbol"   env:"DIX_MID_SYMBOL"   env-default:"<t_mid>"`
	EndSymbol   string `yaml:"end_symbol"   env:"DIX_END_SYMBOL"   env-default:"<t_end>"`
}

func (c DixConfig) Markers() Markers {
	return Markers{Start: c.StartSymbol, Mid: c.MidSymbol, End: c.EndSymbol}
}

type TBXConfig struct {
	EnableSmall           bool `yaml:"enable_small"            env:"TBX_ENABLE_SMALL"`
	EnableNonAlphabetical bool `yaml:"enable_non_alphabetical" env:"TBX_ENABLE_NON_ALPHABETICAL"`
}

type StoreConfig struct {
	Path string `yaml:"path" env:"TERM_DB_PATH"`
}

// ScheduleConfig describes the periodic pipeline run.
type ScheduleConfig struct {
	CronExpr    string `yaml:"cron_expr"    env:"TERM_CRON_EXPR"    env-default:"0 0 * * *"`
	TBXFile     string `yaml:"tbx_file"     env:"TERM_TBX_FILE"`
	RecordsFile string `yaml:"records_file" env:"TERM_RECORDS_FILE"`
	DixFile     string `yaml:"dix_file"     env:"TERM_DIX_FILE"`
	CorpusDir   string `yaml:"corpus_dir"   env:"TERM_CORPUS_DIR"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"TERM_LOG_LEVEL" env-default:"info"`
}

// Markers are the in-band boundary tokens around an annotated term.
type Markers struct {
	Start string
	Mid   string
	End   string
}

func DefaultInjectMarkers() Markers {
	return Markers{Start: "<misc0>", Mid: "<misc1>", End: "<misc2>"}
}

func DefaultDixMarkers() Markers {
	return Markers{Start: "<t_start>", Mid: "<t_mid>", End: "<t_end>"}
}

func (m Markers) Validate() error {
	if m.Start == "" || m.Mid == "" || m.End == "" {
		return fmt.Errorf("start, mid and end symbols are required")
	}
	if m.Start == m.Mid || m.Mid == m.End || m.Start == m.End {
		return fmt.Errorf("start, mid and end symbols must differ: %q %q %q", m.Start, m.Mid, m.End)
	}
	return nil
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithLanguages(source, target string) Option {
	return func(c *Config) {
		if source != "" {
			c.Lang.Source = source
		}
		if target != "" {
			c.Lang.Target = target
		}
	}
}

func WithInjectMarkers(m Markers) Option {
	return func(c *Config) {
		c.Inject.StartSymbol = m.Start
		c.Inject.MidSymbol = m.Mid
		c.Inject.EndSymbol = m.End
	}
}

func WithDixMarkers(m Markers) Option {
	return func(c *Config) {
		c.Dix.StartSymbol = m.Start
		c.Dix.MidSymbol = m.Mid
		c.Dix.EndSymbol = m.End
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Inject.Workers = n
		}
	}
}

func WithDetectLanguage(enabled bool) Option {
	return func(c *Config) {
		c.Inject.DetectLanguage = c.Inject.DetectLanguage || enabled
	}
}

func WithStorePath(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.Store.Path = path
		}
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level != "" {
			c.Log.Level = level
		}
	}
}

// Load builds the configuration. path may be empty, in which case only the
// environment and defaults are used.
func Load(path string, opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load .env: %v", err)
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log.Debug("Config: %+v", cfg)
	return &cfg, nil
}

// Default returns the configuration with every default applied and no
// environment lookups.
func Default() Config {
	cfg := Config{
		Inject: InjectConfig{Workers: 1, BatchSize: 512},
		Schedule: ScheduleConfig{
			CronExpr: "0 0 * * *",
		},
		Log: LogConfig{Level: "info"},
	}
	WithInjectMarkers(DefaultInjectMarkers())(&cfg)
	WithDixMarkers(DefaultDixMarkers())(&cfg)
	return cfg
}

func (c *Config) normalize() {
	if c.Lang.Source != "" {
		c.Lang.Source = termmap.NormalizeLanguage(c.Lang.Source)
	}
	if c.Lang.Target != "" {
		c.Lang.Target = termmap.NormalizeLanguage(c.Lang.Target)
	}
	if c.Inject.Workers < 1 {
		c.Inject.Workers = 1
	}
	if c.Inject.BatchSize < 1 {
		c.Inject.BatchSize = 512
	}
}

// validate checks everything that does not depend on the command being run.
func (c *Config) validate() error {
	for _, lang := range []string{c.Lang.Source, c.Lang.Target} {
		if lang == "" {
			continue
		}
		if _, err := language.ParseBase(lang); err != nil {
			return fmt.Errorf("invalid language %q: %w", lang, err)
		}
	}
	if err := c.Inject.Markers().Validate(); err != nil {
		return fmt.Errorf("inject markers: %w", err)
	}
	if err := c.Dix.Markers().Validate(); err != nil {
		return fmt.Errorf("dix markers: %w", err)
	}
	if c.Inject.MatchTimeout < 0 {
		return fmt.Errorf("match timeout must not be negative")
	}
	if strings.TrimSpace(c.Schedule.CronExpr) != "" {
		if _, err := icron.Parser.Parse(c.Schedule.CronExpr); err != nil {
			return fmt.Errorf("invalid cron_expr: %w", err)
		}
	}
	return nil
}

// RequireLanguages fails unless both languages are set and distinct.
func (c *Config) RequireLanguages() error {
	if c.Lang.Source == "" {
		return fmt.Errorf("source language is required (TERM_SRC_LANG or --src-lang)")
	}
	if c.Lang.Target == "" {
		return fmt.Errorf("target language is required (TERM_TRG_LANG or --trg-lang)")
	}
	if c.Lang.Source == c.Lang.Target {
		return fmt.Errorf("source and target language must differ: %s", c.Lang.Source)
	}
	return nil
}
