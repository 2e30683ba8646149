// Package run sequences one end-to-end collection run: directory creation,
// metadata capture, the local and AWS collection rounds, summary generation,
// and the archive hand-off.
package run

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"audit-sentry/internal/collector"
	"audit-sentry/internal/evidence"
	"audit-sentry/internal/logging"
	"audit-sentry/internal/runner"
	"audit-sentry/internal/summary"
)

const (
	LogFileName      = "collect.log"
	MetadataFileName = "env_metadata.json"
	SummaryFileName  = "summary_report.json"
	MarkdownFileName = "summary.md"
)

// ErrDirectoryExists is fatal: a run never merges into an existing
// evidence directory.
var ErrDirectoryExists = errors.New("output directory already exists")

// Archiver compresses a finished evidence directory. The orchestrator only
// needs this contract, not the compression scheme.
type Archiver interface {
	Archive(ctx context.Context, dir string) (string, error)
}

// Options configures one run.
type Options struct {
	BaseDir    string
	LocalNames []string
	AWSNames   []string
	SkipAWS    bool

	Concurrency int
	TaskTimeout time.Duration
	CancelGrace time.Duration

	Verbose bool
	// RunID overrides the derived timestamp+hostname identifier. Tests use
	// it for a predictable directory name.
	RunID string
	// OnProgress receives per-round completion counts.
	OnProgress func(cat collector.Category, done, total int)
}

// Result reports where a run ended up.
type Result struct {
	State       State
	RunID       string
	OutputDir   string
	ArchivePath string
	// ArchiveErr records a reported, non-fatal archiving failure; the
	// evidence directory is preserved either way.
	ArchiveErr error
	Summary    summary.Document
	Outcomes   []collector.Outcome
}

type Orchestrator struct {
	registry *collector.Registry
	archiver Archiver
	opts     Options
}

func New(reg *collector.Registry, archiver Archiver, opts Options) *Orchestrator {
	return &Orchestrator{registry: reg, archiver: archiver, opts: opts}
}

// Execute performs the whole run. It returns a non-nil error only for
// fatal conditions (unknown collector, directory creation, summary write);
// individual collector failures are folded into the result.
func (o *Orchestrator) Execute(ctx context.Context) (Result, error) {
	res := Result{State: StateInit}

	// Validation happens before anything touches the disk.
	localEntries, err := o.registry.ResolveAll(collector.CategoryLocal, o.opts.LocalNames)
	if err != nil {
		return o.fail(&res, logging.Console(o.opts.Verbose), err)
	}
	var awsEntries []collector.Entry
	if !o.opts.SkipAWS {
		awsEntries, err = o.registry.ResolveAll(collector.CategoryAWS, o.opts.AWSNames)
		if err != nil {
			return o.fail(&res, logging.Console(o.opts.Verbose), err)
		}
	}

	startedAt := time.Now().UTC()
	res.RunID = o.opts.RunID
	if res.RunID == "" {
		res.RunID = makeRunID(startedAt)
	}
	res.OutputDir = filepath.Join(o.opts.BaseDir, res.RunID)

	console := logging.Console(o.opts.Verbose)

	// Init -> DirectoryReady
	if err := o.createRunDirectory(res.OutputDir); err != nil {
		return o.fail(&res, console, err)
	}
	o.advance(&res, StateDirectoryReady)

	log, closeLog, err := logging.RunLogger(o.opts.Verbose, filepath.Join(res.OutputDir, LogFileName))
	if err != nil {
		// The run log is itself evidence, but its absence never aborts
		// collection.
		console.Warnw("run log unavailable, continuing with console only", "error", err)
		log = console
	} else {
		defer closeLog()
	}
	log.Infow("run started", "run_id", res.RunID, "output", res.OutputDir)

	// DirectoryReady -> MetadataLogged
	meta := captureMetadata(ctx, startedAt)
	if meta.CaptureError != "" {
		log.Warnw("partial environment metadata", "error", meta.CaptureError)
	}
	if err := writeJSON(filepath.Join(res.OutputDir, MetadataFileName), meta); err != nil {
		log.Warnw("environment metadata not persisted", "error", err)
	}
	o.advance(&res, StateMetadataLogged)

	// MetadataLogged -> LocalCollected
	res.Outcomes = append(res.Outcomes, o.collectRound(ctx, log, res.OutputDir, collector.CategoryLocal, localEntries)...)
	o.advance(&res, StateLocalCollected)

	// LocalCollected -> AwsCollected
	if o.opts.SkipAWS {
		log.Infow("aws collection disabled, skipping")
	} else {
		res.Outcomes = append(res.Outcomes, o.collectRound(ctx, log, res.OutputDir, collector.CategoryAWS, awsEntries)...)
	}
	o.advance(&res, StateAwsCollected)

	// AwsCollected -> Summarized
	finishedAt := time.Now().UTC()
	res.Summary = summary.Build(summary.RunInfo{
		RunID:       res.RunID,
		Hostname:    meta.Hostname,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		Environment: meta.Environment(),
	}, res.Outcomes)
	if err := writeJSON(filepath.Join(res.OutputDir, SummaryFileName), res.Summary); err != nil {
		return o.fail(&res, log, errors.Wrap(err, "write summary report"))
	}
	findings := summary.Extract(res.Outcomes)
	if err := evidence.WriteFileAtomic(filepath.Join(res.OutputDir, MarkdownFileName),
		summary.RenderMarkdown(res.Summary, findings), 0o600); err != nil {
		log.Warnw("markdown summary not persisted", "error", err)
	}
	o.advance(&res, StateSummarized)

	// Summarized -> Archived. Archive failure is reported, never fatal:
	// the evidence directory stays on disk.
	if path, err := o.archiver.Archive(ctx, res.OutputDir); err != nil {
		res.ArchiveErr = err
		log.Errorw("archiving failed, evidence directory preserved",
			"dir", res.OutputDir, "error", err)
	} else {
		res.ArchivePath = path
		log.Infow("archive written", "path", path)
	}
	o.advance(&res, StateArchived)

	o.advance(&res, StateDone)
	log.Infow("run complete",
		"run_id", res.RunID,
		"succeeded", res.Summary.Overall.Succeeded,
		"failed", res.Summary.Overall.Failed,
	)
	return res, nil
}

// createRunDirectory makes a fresh run directory with its category
// subdirectories. All of them exist before any task starts, so collector
// tasks never create directories concurrently.
func (o *Orchestrator) createRunDirectory(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return errors.Wrapf(ErrDirectoryExists, "%s", dir)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return errors.Wrap(err, "create base directory")
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return errors.Wrap(err, "create run directory")
	}
	for _, cat := range []collector.Category{collector.CategoryLocal, collector.CategoryAWS} {
		if err := os.Mkdir(filepath.Join(dir, string(cat)), 0o755); err != nil {
			return errors.Wrapf(err, "create %s directory", cat)
		}
	}
	return nil
}

func (o *Orchestrator) collectRound(ctx context.Context, log *zap.SugaredLogger, root string, cat collector.Category, entries []collector.Entry) []collector.Outcome {
	if len(entries) == 0 {
		return nil
	}
	log.Infow("collection round started", "category", cat, "collectors", len(entries))

	return runner.Run(ctx, entries, runner.Options{
		Concurrency: o.opts.Concurrency,
		TaskTimeout: o.opts.TaskTimeout,
		CancelGrace: o.opts.CancelGrace,
		OnProgress: func(done, total int) {
			if o.opts.OnProgress != nil {
				o.opts.OnProgress(cat, done, total)
			}
		},
		OnOutcome: func(out collector.Outcome) {
			path, err := evidence.Write(root, out)
			if err != nil {
				// Evidence write failures are recorded but never abort the
				// round; the outcome itself stays intact for the summary.
				log.Errorw("evidence write failed",
					"collector", out.Spec.Name, "category", cat, "error", err)
				return
			}
			if out.OK() {
				log.Infow("collected", "collector", out.Spec.Name, "category", cat,
					"path", path, "duration", out.Duration)
			} else {
				log.Warnw("collector failed", "collector", out.Spec.Name, "category", cat,
					"kind", out.Err.Kind, "error", out.Err.Message)
			}
		},
	})
}

// advance moves the run forward, panicking on a transition the state table
// forbids; that is a bug in the orchestrator, not a runtime condition.
func (o *Orchestrator) advance(res *Result, to State) {
	if err := ValidateTransition(res.State, to); err != nil {
		panic(err)
	}
	res.State = to
}

func (o *Orchestrator) fail(res *Result, log *zap.SugaredLogger, err error) (Result, error) {
	log.Errorw("run failed", "stage", res.State, "error", err)
	if !res.State.Terminal() {
		res.State = StateFailed
	}
	return *res, err
}

func writeJSON(path string, v any) error {
	data, err := evidence.MarshalStable(v)
	if err != nil {
		return err
	}
	return evidence.WriteFileAtomic(path, data, 0o600)
}

// makeRunID derives <timestamp>_<hostname>; a uuid fragment stands in when
// the hostname cannot be resolved.
func makeRunID(ts time.Time) string {
	suffix, err := os.Hostname()
	if err != nil || suffix == "" {
		suffix = uuid.NewString()[:8]
	}
	suffix = strings.ReplaceAll(suffix, string(filepath.Separator), "-")
	return ts.Format("20060102-150405") + "_" + suffix
}
