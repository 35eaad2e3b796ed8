package main

import (
	"io"
	"iter"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/dix"
	"github.com/MimeLyc/term-injector/internal/service"
	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/log"
)

func newTerm2DixCmd(root *rootOptions) *cobra.Command {
	var start, mid, end string

	cmd := &cobra.Command{
		Use:   "term2dix [INPUT [OUTPUT]]",
		Short: "Convert terminology records into an lttoolbox .dix dictionary",
		Long: "Reads terminology records (or the store given with --db when INPUT is omitted) and writes one\n" +
			"dictionary entry per preferred source term, with a suffix paradigm scaled to the term length.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(func(c *config.Config) {
				if start != "" {
					c.Dix.StartSymbol = start
				}
				if mid != "" {
					c.Dix.MidSymbol = mid
				}
				if end != "" {
					c.Dix.EndSymbol = end
				}
			})
			if err != nil {
				return err
			}
			if err := cfg.RequireLanguages(); err != nil {
				return service.WrapError(err, service.ErrValidation, "languages")
			}

			inputPath := positional(args, 0)
			var records iter.Seq2[termmap.Record, error]

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			if store != nil && inputPath == "" {
				defer store.Close()
				records = store.Records(cmd.Context())
			} else {
				if store != nil {
					_ = store.Close()
				}
				in, err := openInput(cmd, inputPath)
				if err != nil {
					return err
				}
				defer in.Close()
				records = termmap.ScanRecords(in)
			}

			var n int
			err = writeOutput(cmd, positional(args, 1), func(w io.Writer) error {
				var emitErr error
				n, emitErr = dix.Emit(w, records, cfg.Lang.Source, cfg.Lang.Target, cfg.Dix.Markers())
				return emitErr
			})
			if err != nil {
				return service.Classify(err, "write dictionary")
			}
			log.Info("Wrote %d dictionary entries", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start-symbol", "", "start symbol for terminology boundaries (default <t_start>)")
	cmd.Flags().StringVar(&mid, "mid-symbol", "", "middle symbol for terminology boundaries (default <t_mid>)")
	cmd.Flags().StringVar(&end, "end-symbol", "", "end symbol for terminology boundaries (default <t_end>)")
	return cmd
}
