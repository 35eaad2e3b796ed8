package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/inject"
	"github.com/MimeLyc/term-injector/internal/persistence"
	"github.com/MimeLyc/term-injector/internal/service"
	"github.com/MimeLyc/term-injector/pkg/log"
)

type injectOptions struct {
	root        *rootOptions
	terminology string
	check       bool
	start       string
	mid         string
	end         string
	workers     int
	batchSize   int
	detect      bool
}

func (o *injectOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.terminology, "terminology", "d", "", "terminology file, one JSON record per line (default: terms.<src>-<trg>.jsonl or --db)")
	f.StringVar(&o.start, "start-symbol", "", "start symbol for terminology boundaries (default <misc0>)")
	f.StringVar(&o.mid, "mid-symbol", "", "middle symbol for terminology boundaries (default <misc1>)")
	f.StringVar(&o.end, "end-symbol", "", "end symbol for terminology boundaries (default <misc2>)")
	f.IntVarP(&o.workers, "workers", "j", 0, "annotate sentence pairs in parallel")
	f.IntVar(&o.batchSize, "batch-size", 0, "lines per parallel batch")
	f.BoolVar(&o.detect, "detect-language", false, "count source lines detected as another language")
}

func (o *injectOptions) overrides() config.Option {
	return func(c *config.Config) {
		if o.start != "" {
			c.Inject.StartSymbol = o.start
		}
		if o.mid != "" {
			c.Inject.MidSymbol = o.mid
		}
		if o.end != "" {
			c.Inject.EndSymbol = o.end
		}
		if o.batchSize > 0 {
			c.Inject.BatchSize = o.batchSize
		}
		config.WithWorkers(o.workers)(c)
		config.WithDetectLanguage(o.detect)(c)
	}
}

func newInjectCmd(root *rootOptions) *cobra.Command {
	o := &injectOptions{root: root}
	cmd := &cobra.Command{
		Use:   "inject [INPUT [OUTPUT]]",
		Short: "Annotate terminology in tab separated sentence pairs",
		Long: "Reads source<TAB>target lines and marks every source term whose target rendering appears in the target sentence.\n" +
			"INPUT and OUTPUT default to stdin and stdout; a file OUTPUT is only replaced when the whole run succeeds.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := inject.ModeAnnotate
			if o.check {
				mode = inject.ModeCheck
			}
			return o.run(cmd, args, mode)
		},
	}
	o.bind(cmd)
	cmd.Flags().BoolVarP(&o.check, "check", "c", false, "perform a terminology check instead of annotation")
	return cmd
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	o := &injectOptions{root: root}
	cmd := &cobra.Command{
		Use:   "check [INPUT]",
		Short: "Report how many source terms have their translation in the target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args, inject.ModeCheck)
		},
	}
	o.bind(cmd)
	return cmd
}

func (o *injectOptions) run(cmd *cobra.Command, args []string, mode inject.Mode) error {
	cfg, err := o.root.load(o.overrides())
	if err != nil {
		return err
	}
	if err := cfg.RequireLanguages(); err != nil {
		return service.WrapError(err, service.ErrValidation, "languages")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx := cmd.Context()
	table, err := loadTable(ctx, cfg, o.terminology, store)
	if err != nil {
		return err
	}

	injector, err := inject.New(table, cfg.Inject, mode)
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "create injector")
	}

	inputPath := positional(args, 0)
	in, err := openInput(cmd, inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	started := time.Now()
	var stats inject.Stats

	if mode == inject.ModeCheck {
		stats, err = injector.Run(ctx, in, io.Discard)
		if err != nil {
			return service.Classify(err, "check").WithContext("input", inputPath)
		}
		report, err := stats.CheckReport()
		if err != nil {
			return service.Classify(err, "check").WithContext("input", inputPath)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report)
		recordCheck(cmd, store, cfg, inputPath, stats, started)
	} else {
		err = writeOutput(cmd, positional(args, 1), func(w io.Writer) error {
			var runErr error
			stats, runErr = injector.Run(ctx, in, w)
			return runErr
		})
		if err != nil {
			return service.Classify(err, "annotate").WithContext("input", inputPath)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), stats.FoundReport())
	}

	if cfg.Inject.DetectLanguage {
		log.Info("%d of %d source lines detected as another language than %s", stats.LanguageMismatches, stats.Lines, cfg.Lang.Source)
	}
	return nil
}

func recordCheck(cmd *cobra.Command, store *persistence.SQLiteStore, cfg *config.Config, input string, stats inject.Stats, started time.Time) {
	if store == nil {
		return
	}
	if isStdio(input) {
		input = "-"
	}
	run, err := store.RecordCheckRun(cmd.Context(), persistence.CheckRun{
		SourceLang:         cfg.Lang.Source,
		TargetLang:         cfg.Lang.Target,
		Input:              input,
		Lines:              stats.Lines,
		Total:              stats.Total,
		Confirmed:          stats.Confirmed,
		LanguageMismatches: stats.LanguageMismatches,
		StartedAt:          started,
	})
	if err != nil {
		log.Warn("Failed to record check run: %v", err)
		return
	}
	log.Debug("Recorded check run %s", run.ID)
}
