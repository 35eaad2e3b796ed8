package main

import (
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/service"
	"github.com/MimeLyc/term-injector/pkg/icron"
	"github.com/MimeLyc/term-injector/pkg/log"
)

func newScheduleCmd(root *rootOptions) *cobra.Command {
	var (
		cronExpr string
		runNow   bool
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Periodically rebuild terminology outputs and annotate new corpus files",
		Long: "On every trigger: convert TERM_TBX_FILE to records, import them when a store is configured,\n" +
			"write TERM_DIX_FILE and annotate *.tsv files in TERM_CORPUS_DIR changed since the previous trigger.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(func(c *config.Config) {
				if cronExpr != "" {
					c.Schedule.CronExpr = cronExpr
				}
			})
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
			c := cron.New(cron.WithParser(icron.Parser))
			svc := service.NewPipelineService(*cfg, store, c)

			if runNow || once {
				if _, err := svc.Run(ctx); err != nil {
					return err
				}
				if once {
					return nil
				}
			}

			if _, err := svc.Schedule(ctx); err != nil {
				return err
			}
			c.Start()
			log.Info("Pipeline scheduled with %q, waiting for triggers", cfg.Schedule.CronExpr)

			<-ctx.Done()
			log.Info("Stopping scheduler")
			<-c.Stop().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression (env: TERM_CRON_EXPR, default 0 0 * * *)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run the pipeline once before waiting for the schedule")
	cmd.Flags().BoolVar(&once, "once", false, "run the pipeline once and exit")
	return cmd
}
