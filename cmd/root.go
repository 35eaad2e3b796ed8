package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/service"
	"github.com/MimeLyc/term-injector/pkg/log"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	srcLang    string
	trgLang    string
	dbPath     string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "term-injector",
		Short:         "Terminology preparation for machine translation",
		Long:          "Convert TBX terminology, inject term annotations into parallel corpora, check terminology coverage and build lttoolbox dictionaries.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file (env: TERM_CONFIG)")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (env: TERM_LOG_LEVEL)")
	pf.StringVarP(&opts.srcLang, "src-lang", "s", "", "source language (env: TERM_SRC_LANG)")
	pf.StringVarP(&opts.trgLang, "trg-lang", "t", "", "target language (env: TERM_TRG_LANG)")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite terminology store (env: TERM_DB_PATH)")

	// --src_lang and --enable_small keep working as --src-lang and --enable-small.
	root.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	root.AddCommand(
		newInjectCmd(opts),
		newCheckCmd(opts),
		newTBX2JSONCmd(opts),
		newTerm2DixCmd(opts),
		newImportCmd(opts),
		newRunsCmd(opts),
		newScheduleCmd(opts),
	)
	return root
}

// load reads the configuration and applies the shared flags plus the
// command's own overrides.
func (o *rootOptions) load(extra ...config.Option) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("TERM_CONFIG")
	}

	opts := []config.Option{
		config.WithLanguages(o.srcLang, o.trgLang),
		config.WithStorePath(o.dbPath),
		config.WithLogLevel(o.logLevel),
	}
	cfg, err := config.Load(path, append(opts, extra...)...)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "load configuration")
	}

	log.InitLogger(log.ParseLevel(cfg.Log.Level))
	o.cfg = cfg
	return cfg, nil
}

// Execute runs the command line and reports a failure through the error
// handler.
func Execute(ctx context.Context) error {
	return execute(ctx, newRootCmd())
}

func execute(ctx context.Context, root *cobra.Command) error {
	err := service.SafeExecute(func() error {
		return root.ExecuteContext(ctx)
	})
	if err != nil {
		service.NewDefaultErrorHandler().Handle(service.Classify(err, "term-injector"))
	}
	return err
}
