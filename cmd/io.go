package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/persistence"
	"github.com/MimeLyc/term-injector/internal/service"
	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/file"
	"github.com/MimeLyc/term-injector/pkg/log"
)

func isStdio(path string) bool {
	return path == "" || path == "-"
}

// positional returns args[i] or "" when absent.
func positional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// openInput opens path, or the command's stdin for "" and "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if isStdio(path) {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, service.Classify(err, "open input").WithContext("path", path)
	}
	return f, nil
}

// writeOutput streams into path atomically, or into the command's stdout
// for "" and "-".
func writeOutput(cmd *cobra.Command, path string, fn func(w io.Writer) error) error {
	if isStdio(path) {
		return fn(cmd.OutOrStdout())
	}
	return file.WriteAtomic(path, fn)
}

func openStore(cfg *config.Config) (*persistence.SQLiteStore, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}
	store, err := persistence.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, service.WrapError(err, service.ErrStorage, "open store").WithContext("path", cfg.Store.Path)
	}
	return store, nil
}

// loadTable builds the term table from, in order of preference, an explicit
// terminology file, the store, or terms.<src>-<trg>.jsonl found in the
// working directory or one of its parents.
func loadTable(ctx context.Context, cfg *config.Config, terminology string, store *persistence.SQLiteStore) (*termmap.Table, error) {
	src, trg := cfg.Lang.Source, cfg.Lang.Target

	if terminology == "" && store != nil {
		table, err := termmap.BuildSeq(store.Records(ctx), src, trg)
		if err != nil {
			return nil, service.Classify(err, "build table from store").WithContext("path", cfg.Store.Path)
		}
		log.Debug("Loaded %d terms from %s", table.Len(), cfg.Store.Path)
		return table, nil
	}

	if terminology == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, service.Classify(err, "working directory")
		}
		terminology = termmap.FindInAncestors(wd, src, trg)
		if terminology == "" {
			return nil, service.NewError(service.ErrFileNotFound,
				fmt.Sprintf("no terminology given and %s not found", termmap.Filename(src, trg)))
		}
	}

	table, err := termmap.LoadTable(terminology, src, trg)
	if err != nil {
		return nil, service.Classify(err, "build table").WithContext("path", terminology)
	}
	log.Debug("Loaded %d terms from %s", table.Len(), terminology)
	return table, nil
}
