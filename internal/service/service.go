package service

import (
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/term-injector/internal/config"
	"github.com/MimeLyc/term-injector/internal/dix"
	"github.com/MimeLyc/term-injector/internal/inject"
	"github.com/MimeLyc/term-injector/internal/persistence"
	"github.com/MimeLyc/term-injector/internal/tbx"
	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/file"
	"github.com/MimeLyc/term-injector/pkg/icron"
	"github.com/MimeLyc/term-injector/pkg/log"
)

// CorpusExt is the extension of sentence pair files in the corpus directory.
const CorpusExt = ".tsv"

// OutputSuffix marks annotated corpus files: corpus.tsv -> corpus.terms.tsv.
const OutputSuffix = "terms"

// PipelineService re-runs terminology preparation on a schedule: TBX to
// records, records to store and dictionary, then annotation of corpus files
// changed since the previous trigger.
type PipelineService struct {
	cfg   config.Config
	store *persistence.SQLiteStore
	cron  *cron.Cron
	group singleflight.Group
	now   func() time.Time

	mu          sync.Mutex
	lastTrigger time.Time
}

// FileReport is the outcome for one annotated corpus file.
type FileReport struct {
	Input  string
	Output string
	Stats  inject.Stats
}

// Report summarizes one pipeline run.
type Report struct {
	StartedAt   time.Time
	Records     tbx.Summary
	Imported    persistence.ImportSummary
	TableSize   int
	DixEntries  int
	Files       []FileReport
	FailedFiles int
}

// NewPipelineService wires the pipeline. store may be nil, in which case
// the table is read from the records file.
func NewPipelineService(cfg config.Config, store *persistence.SQLiteStore, c *cron.Cron) *PipelineService {
	return &PipelineService{
		cfg:   cfg,
		store: store,
		cron:  c,
		now:   time.Now,
	}
}

// Schedule registers the pipeline on the cron. Overlapping triggers share
// the run in progress.
func (s *PipelineService) Schedule(ctx context.Context) (cron.EntryID, error) {
	log.Info("Schedule terminology pipeline: %s", s.cfg.Schedule.CronExpr)

	runFunc := func() {
		_, _, _ = s.group.Do("run", func() (any, error) {
			report, err := s.Run(ctx)
			if err != nil {
				log.Error("Pipeline run failed: %v", err)
				return nil, err
			}
			log.Info("Pipeline run done: %d dictionary entries, %d corpus files", report.DixEntries, len(report.Files))
			return report, nil
		})
	}

	id, err := s.cron.AddFunc(s.cfg.Schedule.CronExpr, runFunc)
	if err != nil {
		return 0, WrapError(err, ErrSchedule, "register pipeline").WithContext("cron_expr", s.cfg.Schedule.CronExpr)
	}
	return id, nil
}

// Run executes the pipeline once.
func (s *PipelineService) Run(ctx context.Context) (*Report, error) {
	if err := s.cfg.RequireLanguages(); err != nil {
		return nil, WrapError(err, ErrConfig, "pipeline languages")
	}

	report := &Report{StartedAt: s.now()}
	since, err := s.startTime()
	if err != nil {
		return nil, err
	}

	if err := s.convertTBX(ctx, report); err != nil {
		return nil, err
	}

	table, err := s.loadTable(ctx)
	if err != nil {
		return nil, err
	}
	report.TableSize = table.Len()
	log.Info("Terminology table %s-%s has %d terms", table.Source(), table.Target(), table.Len())

	if err := s.writeDix(ctx, report); err != nil {
		return nil, err
	}
	if err := s.annotateCorpus(ctx, table, since, report); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastTrigger = report.StartedAt
	s.mu.Unlock()
	return report, nil
}

func (s *PipelineService) recordsFile() string {
	sc := s.cfg.Schedule
	if sc.RecordsFile != "" {
		return sc.RecordsFile
	}
	dir := "."
	if sc.TBXFile != "" {
		dir = filepath.Dir(sc.TBXFile)
	}
	return termmap.FilePath(dir, s.cfg.Lang.Source, s.cfg.Lang.Target)
}

func (s *PipelineService) convertTBX(ctx context.Context, report *Report) error {
	src := s.cfg.Schedule.TBXFile
	if src == "" {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return Classify(err, "open tbx").WithContext("path", src)
	}
	defer in.Close()

	converter := tbx.NewConverter(tbx.Options{
		EnableSmall:           s.cfg.TBX.EnableSmall,
		EnableNonAlphabetical: s.cfg.TBX.EnableNonAlphabetical,
	})

	dst := s.recordsFile()
	err = file.WriteAtomic(dst, func(w io.Writer) error {
		var convErr error
		report.Records, convErr = converter.Convert(ctx, in, w)
		return convErr
	})
	if err != nil {
		return WrapError(err, ErrParse, "convert tbx").WithContext("path", src)
	}
	log.Info("Converted %s: %d of %d entries written to %s", src, report.Records.Written, report.Records.Entries, dst)

	if s.store == nil {
		return nil
	}
	f, err := os.Open(dst)
	if err != nil {
		return Classify(err, "open records").WithContext("path", dst)
	}
	defer f.Close()

	report.Imported, err = s.store.ImportRecords(ctx, termmap.ScanRecords(f))
	if err != nil {
		return WrapError(err, ErrStorage, "import records").WithContext("path", dst)
	}
	log.Info("Imported %d records (%d already stored)", report.Imported.Inserted, report.Imported.Duplicates)
	return nil
}

func (s *PipelineService) loadTable(ctx context.Context) (*termmap.Table, error) {
	src, trg := s.cfg.Lang.Source, s.cfg.Lang.Target
	if s.store != nil {
		table, err := termmap.BuildSeq(s.store.Records(ctx), src, trg)
		if err != nil {
			return nil, Classify(err, "build table from store")
		}
		return table, nil
	}

	path := s.recordsFile()
	table, err := termmap.LoadTable(path, src, trg)
	if err != nil {
		return nil, Classify(err, "build table").WithContext("path", path)
	}
	return table, nil
}

func (s *PipelineService) writeDix(ctx context.Context, report *Report) error {
	dst := s.cfg.Schedule.DixFile
	if dst == "" {
		return nil
	}

	err := file.WriteAtomic(dst, func(w io.Writer) error {
		records, closeFn, openErr := s.records(ctx)
		if openErr != nil {
			return openErr
		}
		defer closeFn()

		var emitErr error
		report.DixEntries, emitErr = dix.Emit(w, records, s.cfg.Lang.Source, s.cfg.Lang.Target, s.cfg.Dix.Markers())
		return emitErr
	})
	if err != nil {
		return Classify(err, "write dictionary").WithContext("path", dst)
	}
	log.Info("Wrote %d dictionary entries to %s", report.DixEntries, dst)
	return nil
}

// records streams the terminology from the store when one is configured.
func (s *PipelineService) records(ctx context.Context) (iter.Seq2[termmap.Record, error], func(), error) {
	if s.store != nil {
		return s.store.Records(ctx), func() {}, nil
	}
	f, err := os.Open(s.recordsFile())
	if err != nil {
		return nil, nil, err
	}
	return termmap.ScanRecords(f), func() { _ = f.Close() }, nil
}

func isOutput(path string) bool {
	return strings.HasSuffix(path, "."+OutputSuffix+CorpusExt)
}

func (s *PipelineService) annotateCorpus(ctx context.Context, table *termmap.Table, since time.Time, report *Report) error {
	dir := s.cfg.Schedule.CorpusDir
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		return Classify(err, "corpus directory").WithContext("path", dir)
	}

	log.Info("Searching corpus files changed after %v in %s", since, dir)
	paths, err := file.FindRecentAfter(dir, since, CorpusExt)
	if err != nil {
		return WrapError(err, ErrFileRead, "scan corpus").WithContext("path", dir)
	}

	injector, err := inject.New(table, s.cfg.Inject, inject.ModeAnnotate)
	if err != nil {
		return WrapError(err, ErrConfig, "create injector")
	}

	for _, path := range paths {
		if isOutput(path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Classify(err, "annotate corpus")
		}

		fr, err := s.annotateFile(ctx, injector, path)
		if err != nil {
			report.FailedFiles++
			log.Error("Failed to annotate %s: %v", path, err)
			continue
		}
		report.Files = append(report.Files, fr)
		log.Info("Annotated %s: %s", path, fr.Stats.FoundReport())
	}
	return nil
}

func (s *PipelineService) annotateFile(ctx context.Context, injector *inject.Injector, path string) (FileReport, error) {
	fr := FileReport{Input: path, Output: file.AddSuffix(path, OutputSuffix)}

	in, err := os.Open(path)
	if err != nil {
		return fr, err
	}
	defer in.Close()

	started := s.now()
	err = file.WriteAtomic(fr.Output, func(w io.Writer) error {
		var runErr error
		fr.Stats, runErr = injector.Run(ctx, in, w)
		return runErr
	})
	if err != nil {
		return fr, Classify(err, "annotate").WithContext("path", path)
	}

	if s.store != nil {
		_, err := s.store.RecordCheckRun(ctx, persistence.CheckRun{
			SourceLang:         s.cfg.Lang.Source,
			TargetLang:         s.cfg.Lang.Target,
			Input:              path,
			Lines:              fr.Stats.Lines,
			Total:              fr.Stats.Total,
			Confirmed:          fr.Stats.Confirmed,
			LanguageMismatches: fr.Stats.LanguageMismatches,
			StartedAt:          started,
			FinishedAt:         s.now(),
		})
		if err != nil {
			log.Warn("Failed to record run for %s: %v", path, err)
		}
	}
	return fr, nil
}

// startTime is the modification time threshold for corpus files. The first
// run looks back a week when the schedule fired within the last day, and to
// the previous trigger otherwise.
func (s *PipelineService) startTime() (time.Time, error) {
	s.mu.Lock()
	last := s.lastTrigger
	s.mu.Unlock()
	if !last.IsZero() {
		return last, nil
	}

	now := s.now()
	info, err := icron.GetTriggerInfo(s.cfg.Schedule.CronExpr, now)
	if err != nil {
		return time.Time{}, WrapError(err, ErrSchedule, "cron schedule").WithContext("cron_expr", s.cfg.Schedule.CronExpr)
	}

	if now.Add(-24 * time.Hour).Before(info.Last) {
		return now.Add(-24 * 7 * time.Hour), nil
	}
	return info.Last, nil
}
