package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/refeval/internal/eval/align"
	"github.com/lehigh-university-libraries/refeval/internal/eval/dataset"
	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
	"github.com/lehigh-university-libraries/refeval/internal/tei"
)

// Evaluator scores the outputs of one or more parsers against the gold standard
type Evaluator struct {
	aligner     *align.Aligner
	loader      *dataset.Loader
	concurrency int
	logger      *slog.Logger
}

type Option func(*Evaluator)

// WithConcurrency sets the number of files evaluated at once. Values
// below one use one worker per CPU.
func WithConcurrency(n int) Option {
	return func(e *Evaluator) {
		e.concurrency = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

func NewEvaluator(aligner *align.Aligner, loader *dataset.Loader, opts ...Option) *Evaluator {
	e := &Evaluator{
		aligner: aligner,
		loader:  loader,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = runtime.NumCPU()
	}
	return e
}

// Run evaluates every parser in turn
func (e *Evaluator) Run(ctx context.Context, parsers []string) (*Results, error) {
	return e.run(ctx, parsers, e.EvaluateParser)
}

// RunFileDiagnostics is Run without the file count check: every gold file
// is scored, whatever else the parser directory holds
func (e *Evaluator) RunFileDiagnostics(ctx context.Context, parsers []string) (*Results, error) {
	return e.run(ctx, parsers, func(ctx context.Context, parser string) (*metrics.ParserResult, error) {
		files, err := e.FileDiagnostics(ctx, parser)
		if err != nil {
			return nil, err
		}
		return metrics.AggregateFileResults(parser, files), nil
	})
}

func (e *Evaluator) run(ctx context.Context, parsers []string, evaluate func(context.Context, string) (*metrics.ParserResult, error)) (*Results, error) {
	results := &Results{
		Timestamp: time.Now(),
		GoldDir:   e.loader.GoldDir(),
		OutputDir: e.loader.OutputDir(),
	}
	for _, parser := range parsers {
		e.logger.Info("Evaluating parser", "parser", parser)
		pr, err := evaluate(ctx, parser)
		if err != nil {
			return nil, err
		}
		results.Parsers = append(results.Parsers, pr)
	}
	return results, nil
}

// EvaluateParser scores all files of one parser. The output directory must
// hold as many files as the gold standard.
func (e *Evaluator) EvaluateParser(ctx context.Context, parser string) (*metrics.ParserResult, error) {
	pairs, err := e.loader.Pairs(parser)
	if err != nil {
		return nil, err
	}

	files, err := e.evaluatePairs(ctx, parser, pairs)
	if err != nil {
		return nil, err
	}

	pr := metrics.AggregateFileResults(parser, files)
	if len(pr.Missing) > 0 {
		e.logger.Warn("Missing files", "parser", parser, "files", pr.Missing)
	}
	return pr, nil
}

// FileDiagnostics returns the raw per-file results of one parser for every
// gold file, without requiring the file counts to agree
func (e *Evaluator) FileDiagnostics(ctx context.Context, parser string) ([]metrics.FileResult, error) {
	names, err := dataset.ListFiles(e.loader.GoldDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list gold standard: %w", err)
	}

	pairs := make([]dataset.Pair, 0, len(names))
	for _, name := range names {
		p := dataset.Pair{Name: name, GoldPath: e.loader.GoldPath(name)}
		candidate := filepath.Join(e.loader.ParserDir(parser), name)
		if _, err := os.Stat(candidate); err == nil {
			p.OutputPath = candidate
		}
		pairs = append(pairs, p)
	}

	return e.evaluatePairs(ctx, parser, pairs)
}

// evaluatePairs runs the file evaluations on a bounded worker pool. Each
// file is aligned independently; results are sorted by file name.
func (e *Evaluator) evaluatePairs(ctx context.Context, parser string, pairs []dataset.Pair) ([]metrics.FileResult, error) {
	results := make([]metrics.FileResult, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.EvaluatePair(parser, pair)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}

// EvaluatePair scores a single gold/output pair
func (e *Evaluator) EvaluatePair(parser string, pair dataset.Pair) (metrics.FileResult, error) {
	start := time.Now()

	gold, err := tei.ReadFile(pair.GoldPath)
	if err != nil {
		return metrics.FileResult{}, fmt.Errorf("gold standard %s: %w", pair.Name, err)
	}

	if pair.Missing() {
		n, err := gold.Count()
		if err != nil {
			return metrics.FileResult{}, err
		}
		return metrics.FileResult{
			File:           pair.Name,
			Counts:         metrics.Counts{RefGS: n},
			Metrics:        metrics.Compute(metrics.Counts{RefGS: n}),
			Missing:        true,
			ProcessingTime: time.Since(start),
		}, nil
	}

	out, err := tei.ReadFile(pair.OutputPath)
	if err != nil {
		e.logger.Warn("Unreadable parser output, treating as empty", "parser", parser, "file", pair.Name, "error", err)
		out, err = tei.ReadString("<TEI/>")
		if err != nil {
			return metrics.FileResult{}, err
		}
		out.Path = pair.OutputPath
	}

	res, err := e.aligner.AlignFile(gold, out, parser)
	if err != nil {
		return metrics.FileResult{}, fmt.Errorf("%s/%s: %w", parser, pair.Name, err)
	}

	e.logger.Debug("Evaluated file",
		"parser", parser,
		"file", pair.Name,
		"references_matched", res.Counts.RefCorrect,
		"references_gold", res.Counts.RefGS,
		"skipped", res.Skipped,
	)

	return metrics.FileResult{
		File:           pair.Name,
		Counts:         res.Counts,
		Metrics:        metrics.Compute(res.Counts),
		Skipped:        res.Skipped,
		ProcessingTime: time.Since(start),
	}, nil
}
