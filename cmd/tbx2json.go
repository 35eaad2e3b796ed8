package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/service"
	"github.com/MimeLyc/term-injector/internal/tbx"
	"github.com/MimeLyc/term-injector/pkg/log"
)

func newTBX2JSONCmd(root *rootOptions) *cobra.Command {
	var enableSmall, enableNonAlphabetical bool

	cmd := &cobra.Command{
		Use:   "tbx2json [INPUT [OUTPUT]]",
		Short: "Convert a TBX file into terminology records, one JSON object per line",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(func(c *config.Config) {
				c.TBX.EnableSmall = c.TBX.EnableSmall || enableSmall
				c.TBX.EnableNonAlphabetical = c.TBX.EnableNonAlphabetical || enableNonAlphabetical
			})
			if err != nil {
				return err
			}

			in, err := openInput(cmd, positional(args, 0))
			if err != nil {
				return err
			}
			defer in.Close()

			converter := tbx.NewConverter(tbx.Options{
				EnableSmall:           cfg.TBX.EnableSmall,
				EnableNonAlphabetical: cfg.TBX.EnableNonAlphabetical,
			})

			var sum tbx.Summary
			err = writeOutput(cmd, positional(args, 1), func(w io.Writer) error {
				var convErr error
				sum, convErr = converter.Convert(cmd.Context(), in, w)
				return convErr
			})
			if err != nil {
				return service.WrapError(err, service.ErrParse, "convert tbx")
			}
			log.Info("Converted %d of %d term entries (%d with fewer than two languages)", sum.Written, sum.Entries, sum.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enableSmall, "enable-small", false, "do not ignore terms of three characters or fewer")
	cmd.Flags().BoolVar(&enableNonAlphabetical, "enable-non-alphabetical", false, "do not ignore terms without letters")
	return cmd
}
