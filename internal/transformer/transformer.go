// Package transformer runs one profile adjustment: every recognized settings
// file is loaded, scaled and written to the output directory, and every other
// file is copied across unchanged.
package transformer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"profilescale/internal/profile"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configure a run. InputDir, OutputDir and Factor are required.
type Options struct {
	InputDir  string
	OutputDir string
	Factor    profile.Factor

	// Files maps filenames to transforms. Nil means profile.DefaultFiles().
	Files []profile.FileRule

	// Parallel processes files concurrently with at most Workers jobs in flight.
	Parallel bool
	Workers  int

	// KeepGoing processes every file even after a failure. The run still fails.
	KeepGoing bool

	// DryRun transforms everything but writes nothing.
	DryRun bool

	// OnFile is called once per finished file. Calls never overlap.
	OnFile func(FileResult)
}

// Transformer executes runs for a fixed set of Options.
type Transformer struct {
	opts   Options
	logger *zap.Logger
	known  map[string]struct{}
}

// New validates opts and returns a Transformer.
func New(opts Options, logger *zap.Logger) (*Transformer, error) {
	if opts.InputDir == "" {
		return nil, errors.New("input directory is required")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if opts.Factor.IsZero() {
		return nil, errors.New("factor is required")
	}
	if filepath.Clean(opts.InputDir) == filepath.Clean(opts.OutputDir) {
		return nil, fmt.Errorf("output directory must differ from input directory %s", opts.InputDir)
	}
	if opts.Files == nil {
		opts.Files = profile.DefaultFiles()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	known := make(map[string]struct{}, len(opts.Files))
	for _, rule := range opts.Files {
		if rule.Name == "" || rule.Name != filepath.Base(rule.Name) {
			return nil, fmt.Errorf("invalid settings filename %q", rule.Name)
		}
		if _, dup := known[rule.Name]; dup {
			return nil, fmt.Errorf("settings file %q listed twice", rule.Name)
		}
		known[rule.Name] = struct{}{}
	}

	return &Transformer{opts: opts, logger: logger, known: known}, nil
}

// run holds the mutable state of one Run call.
type run struct {
	t      *Transformer
	mu     sync.Mutex
	report *Report
}

type job func() FileResult

// Run transforms the recognized files, then copies the rest. Without
// KeepGoing it stops at the first failed file and skips the copy step;
// outputs already written are left in place. The report is returned even
// when the run fails.
func (t *Transformer) Run(ctx context.Context) (*Report, error) {
	r := &run{
		t: t,
		report: &Report{
			RunID:     uuid.NewString(),
			Factor:    t.opts.Factor,
			InputDir:  t.opts.InputDir,
			OutputDir: t.opts.OutputDir,
			DryRun:    t.opts.DryRun,
			Started:   time.Now(),
		},
	}
	defer func() { r.report.Finished = time.Now() }()

	log := t.logger.With(zap.String("run_id", r.report.RunID))
	log.Info("Starting run",
		zap.String("factor", t.opts.Factor.String()),
		zap.String("input", t.opts.InputDir),
		zap.String("output", t.opts.OutputDir),
		zap.Bool("parallel", t.opts.Parallel),
		zap.Bool("dry_run", t.opts.DryRun))

	if !t.opts.DryRun {
		if err := os.MkdirAll(t.opts.OutputDir, 0755); err != nil {
			return r.report, fileError(FilesystemWriteError, t.opts.OutputDir, err)
		}
	}

	jobs := make([]job, 0, len(t.opts.Files))
	for _, rule := range t.opts.Files {
		rule := rule
		jobs = append(jobs, func() FileResult { return t.transformFile(rule) })
	}
	if err := r.runJobs(ctx, jobs); err != nil {
		return r.report, err
	}
	if len(r.report.Failures()) > 0 && !t.opts.KeepGoing {
		return r.report, r.report.Err()
	}

	copies, err := t.copyJobs()
	if err != nil {
		return r.report, err
	}
	if err := r.runJobs(ctx, copies); err != nil {
		return r.report, err
	}

	log.Info("Run finished",
		zap.Int("transformed", r.report.Count(ActionTransformed)),
		zap.Int("copied", r.report.Count(ActionCopied)),
		zap.Int("failed", len(r.report.Failures())))

	return r.report, r.report.Err()
}

// runJobs executes jobs sequentially or through an errgroup. It returns only
// context errors; per-file failures are recorded in the report.
func (r *run) runJobs(ctx context.Context, jobs []job) error {
	opts := r.t.opts
	if !opts.Parallel {
		for _, j := range jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := j()
			r.record(res)
			if res.Failed() && !opts.KeepGoing {
				return nil
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := j()
			r.record(res)
			if res.Failed() && !opts.KeepGoing {
				return res.Err
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (r *run) record(res FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Files = append(r.report.Files, res)

	log := r.t.logger.With(zap.String("file", res.Name), zap.String("action", string(res.Action)))
	if res.Failed() {
		log.Error("File failed", zap.Error(res.Err))
	} else {
		log.Debug("File done", zap.Bool("dry_run", res.DryRun))
	}

	if r.t.opts.OnFile != nil {
		r.t.opts.OnFile(res)
	}
}

func (t *Transformer) transformFile(rule profile.FileRule) FileResult {
	res := FileResult{Name: rule.Name, Action: ActionTransformed, DryRun: t.opts.DryRun}

	data, err := os.ReadFile(filepath.Join(t.opts.InputDir, rule.Name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Err = fileError(MissingInputFile, rule.Name, err)
		} else {
			res.Err = fileError(FilesystemReadError, rule.Name, err)
		}
		return res
	}

	doc, err := profile.Decode(data)
	if err != nil {
		res.Err = fileError(MalformedJSON, rule.Name, err)
		return res
	}
	doc, err = rule.Kind.Transform()(doc, t.opts.Factor)
	if err != nil {
		res.Err = fileError(MalformedJSON, rule.Name, err)
		return res
	}
	out, err := profile.Encode(doc)
	if err != nil {
		res.Err = fileError(MalformedJSON, rule.Name, err)
		return res
	}

	if t.opts.DryRun {
		return res
	}
	if err := os.WriteFile(filepath.Join(t.opts.OutputDir, rule.Name), out, 0644); err != nil {
		res.Err = fileError(FilesystemWriteError, rule.Name, err)
	}
	return res
}
