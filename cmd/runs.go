package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/term-injector/internal/service"
)

func newRunsCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded terminology checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return service.NewError(service.ErrValidation, "runs needs a store: pass --db or set TERM_DB_PATH")
			}
			defer store.Close()

			runs, err := store.ListCheckRuns(cmd.Context(), limit)
			if err != nil {
				return service.WrapError(err, service.ErrStorage, "list check runs")
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFINISHED\tPAIR\tCONFIRMED\tTOTAL\tPCT\tINPUT")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%d\t%d\t%.2f%%\t%s\n",
					r.ID, r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
					r.SourceLang, r.TargetLang, r.Confirmed, r.Total, r.Percent(), r.Input)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")
	return cmd
}
