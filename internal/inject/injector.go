package inject

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/internal/termmatch"
	"github.com/MimeLyc/term-injector/pkg/log"
)

const maxLineSize = 16 * 1024 * 1024

type Mode int

const (
	// ModeAnnotate rewrites both sentences of every pair.
	ModeAnnotate Mode = iota
	// ModeCheck only counts how many source terms are found in the target.
	ModeCheck
)

func (m Mode) String() string {
	if m == ModeCheck {
		return "check"
	}
	return "annotate"
}

// SentencePair is one tab separated input line.
type SentencePair struct {
	Source string
	Target string
}

// ParsePair splits a line into its two fields after trimming surrounding
// whitespace.
func ParsePair(line string) (SentencePair, error) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) != 2 {
		return SentencePair{}, fmt.Errorf("%w: got %d", ErrMalformedLine, len(fields))
	}
	return SentencePair{Source: fields[0], Target: fields[1]}, nil
}

func (p SentencePair) String() string {
	return p.Source + "\t" + p.Target
}

// Injector drives sentence pairs through matching and annotation.
// The table and compiled matchers are read-only, so one Injector may serve
// many goroutines.
type Injector struct {
	table     *termmap.Table
	source    *termmatch.SourceMatcher
	target    *termmatch.TargetLocator
	annotator Annotator
	cfg       config.InjectConfig
	mode      Mode
}

func New(table *termmap.Table, cfg config.InjectConfig, mode Mode) (*Injector, error) {
	markers := cfg.Markers()
	if err := markers.Validate(); err != nil {
		return nil, err
	}

	opts := []termmatch.Option{termmatch.WithMatchTimeout(cfg.MatchTimeout)}
	source, err := termmatch.NewSourceMatcher(table, opts...)
	if err != nil {
		return nil, err
	}
	target, err := termmatch.NewTargetLocator(table, markers, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 512
	}

	return &Injector{
		table:     table,
		source:    source,
		target:    target,
		annotator: NewAnnotator(markers),
		cfg:       cfg,
		mode:      mode,
	}, nil
}

func (in *Injector) Mode() Mode {
	return in.mode
}

// Annotate marks every source term whose target rendering is found in the
// target sentence. Each confirmed target occurrence is annotated before the
// next term is looked up, so a later term cannot claim the same span.
func (in *Injector) Annotate(pair SentencePair) (SentencePair, Counts, error) {
	var (
		counts    Counts
		confirmed []termmatch.Match
	)
	target := pair.Target

	for match, err := range in.source.All(pair.Source) {
		if err != nil {
			return SentencePair{}, Counts{}, err
		}
		counts.Total++

		span, ok, err := in.target.Locate(match.Key, target)
		if err != nil {
			return SentencePair{}, Counts{}, err
		}
		if !ok {
			continue
		}
		counts.Confirmed++
		target = in.annotator.Target(target, span)
		confirmed = append(confirmed, match)
	}

	return SentencePair{
		Source: in.annotator.Source(pair.Source, confirmed, in.table),
		Target: target,
	}, counts, nil
}

// Check counts source terms and their confirmed target occurrences without
// rewriting anything.
func (in *Injector) Check(pair SentencePair) (Counts, error) {
	var counts Counts
	for match, err := range in.source.All(pair.Source) {
		if err != nil {
			return Counts{}, err
		}
		counts.Total++

		_, ok, err := in.target.Locate(match.Key, pair.Target)
		if err != nil {
			return Counts{}, err
		}
		if ok {
			counts.Confirmed++
		}
	}
	return counts, nil
}

type lineResult struct {
	pair     SentencePair
	counts   Counts
	mismatch bool
}

func (in *Injector) processLine(line string) (lineResult, error) {
	pair, err := ParsePair(line)
	if err != nil {
		return lineResult{}, err
	}

	var res lineResult
	if in.cfg.DetectLanguage {
		res.mismatch = in.languageMismatch(pair.Source)
	}

	if in.mode == ModeCheck {
		res.counts, err = in.Check(pair)
		return res, err
	}
	res.pair, res.counts, err = in.Annotate(pair)
	return res, err
}

// languageMismatch reports a source sentence reliably detected as a
// language other than the table's source language.
func (in *Injector) languageMismatch(sentence string) bool {
	info := whatlanggo.Detect(sentence)
	if !info.IsReliable() {
		return false
	}
	detected := info.Lang.Iso6391()
	if detected == "" || detected == in.table.Source() {
		return false
	}
	log.Debug("Source line detected as %s, expected %s: %s", detected, in.table.Source(), sentence)
	return true
}

// Run streams sentence pairs from r. In annotate mode rewritten pairs are
// written to w; check mode writes nothing. Any error aborts the run.
func (in *Injector) Run(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	out := bufio.NewWriter(w)

	var (
		stats Stats
		err   error
	)
	if in.cfg.Workers > 1 {
		err = in.runParallel(ctx, scanner, out, &stats)
	} else {
		err = in.runSequential(ctx, scanner, out, &stats)
	}
	if err != nil {
		return stats, err
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read sentence pairs: %w", err)
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("write sentence pairs: %w", err)
	}
	return stats, nil
}

func (in *Injector) runSequential(ctx context.Context, scanner *bufio.Scanner, out *bufio.Writer, stats *Stats) error {
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++

		res, err := in.processLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := in.emit(out, res, stats); err != nil {
			return err
		}
	}
	return nil
}

// runParallel processes batches of lines across workers and emits each
// batch in input order once complete.
func (in *Injector) runParallel(ctx context.Context, scanner *bufio.Scanner, out *bufio.Writer, stats *Stats) error {
	lineNo := 0
	batch := make([]string, 0, in.cfg.BatchSize)

	flush := func() error {
		results := make([]lineResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(in.cfg.Workers)

		first := lineNo - len(batch) + 1
		for i, line := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := in.processLine(line)
				if err != nil {
					return fmt.Errorf("line %d: %w", first+i, err)
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, res := range results {
			if err := in.emit(out, res, stats); err != nil {
				return err
			}
		}
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++
		batch = append(batch, scanner.Text())
		if len(batch) == in.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if len(batch) > 0 {
		return flush()
	}
	return nil
}

func (in *Injector) emit(out *bufio.Writer, res lineResult, stats *Stats) error {
	stats.add(res.counts)
	if res.mismatch {
		stats.LanguageMismatches++
	}
	if in.mode == ModeCheck {
		return nil
	}
	if _, err := out.WriteString(res.pair.String() + "\n"); err != nil {
		return fmt.Errorf("write sentence pairs: %w", err)
	}
	return nil
}
