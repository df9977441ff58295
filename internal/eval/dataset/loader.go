package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader resolves the gold-standard directory and the per-parser output
// directories (<output>/<parser>/) of an evaluation dataset
type Loader struct {
	goldDir   string
	outputDir string
}

// NewLoader creates a new dataset loader
func NewLoader(goldDir, outputDir string) *Loader {
	return &Loader{
		goldDir:   goldDir,
		outputDir: outputDir,
	}
}

func (l *Loader) GoldDir() string {
	return l.goldDir
}

func (l *Loader) OutputDir() string {
	return l.outputDir
}

// ParserDir returns the output directory of a parser
func (l *Loader) ParserDir(parser string) string {
	return filepath.Join(l.outputDir, parser)
}

// GoldPath returns the gold-standard path of a file name
func (l *Loader) GoldPath(name string) string {
	return filepath.Join(l.goldDir, name)
}

// Parsers lists the parser output directories found under the output root
func (l *Loader) Parsers() ([]string, error) {
	entries, err := os.ReadDir(l.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}
	var parsers []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			parsers = append(parsers, e.Name())
		}
	}
	sort.Strings(parsers)
	return parsers, nil
}

// Pairs lists the gold files of the dataset paired with the parser's
// output files of the same name. The two directories must hold the same
// number of files; gold files without a same-named output are returned
// with an empty OutputPath.
func (l *Loader) Pairs(parser string) ([]Pair, error) {
	goldFiles, err := ListFiles(l.goldDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list gold standard: %w", err)
	}
	parserDir := l.ParserDir(parser)
	outFiles, err := ListFiles(parserDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list output of %s: %w", parser, err)
	}

	if len(goldFiles) != len(outFiles) {
		return nil, fmt.Errorf("%s: %d output files, %d gold files: %w", parser, len(outFiles), len(goldFiles), ErrCountMismatch)
	}

	have := make(map[string]bool, len(outFiles))
	for _, f := range outFiles {
		have[f] = true
	}

	pairs := make([]Pair, 0, len(goldFiles))
	for _, name := range goldFiles {
		p := Pair{Name: name, GoldPath: l.GoldPath(name)}
		if have[name] {
			p.OutputPath = filepath.Join(parserDir, name)
		} else {
			slog.Debug("No output for gold file", "parser", parser, "file", name)
		}
		pairs = append(pairs, p)
	}

	return pairs, nil
}

// ListFiles returns the sorted names of the XML files in dir
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}
