package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/term-injector/internal/service"
	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/log"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import [INPUT]",
		Short: "Load terminology records into the SQLite store",
		Args:  cobra.MaximumNArgs(1),
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
				return service.NewError(service.ErrValidation, "import needs a store: pass --db or set TERM_DB_PATH")
			}
			defer store.Close()

			ctx := cmd.Context()
			if replace {
				n, err := store.DeleteAllRecords(ctx)
				if err != nil {
					return service.WrapError(err, service.ErrStorage, "delete records")
				}
				log.Info("Deleted %d stored records", n)
			}

			in, err := openInput(cmd, positional(args, 0))
			if err != nil {
				return err
			}
			defer in.Close()

			summary, err := store.ImportRecords(ctx, termmap.ScanRecords(in))
			if err != nil {
				return service.WrapError(err, service.ErrStorage, "import records").WithContext("path", cfg.Store.Path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d records (%d already stored)\n",
				summary.Inserted, summary.Read, summary.Duplicates)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "delete stored records before importing")
	return cmd
}
