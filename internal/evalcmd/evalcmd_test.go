package evalcmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/refeval/internal/config"
	"github.com/lehigh-university-libraries/refeval/internal/eval/results"
	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
)

func book(id, title, year string) string {
	return fmt.Sprintf(`<biblStruct xml:id="%s" type="book"><monogr>
		<title level="m">%s</title>
		<author><persName><forename type="first">Ada</forename><surname>Lovelace</surname></persName></author>
		<imprint><date when="%s">%s</date></imprint>
	</monogr></biblStruct>`, id, title, year, year)
}

func teiXML(refs ...string) string {
	return `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><back><listBibl>` + strings.Join(refs, "") + `</listBibl></back></text></TEI>`
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Decode(config.New(""))
	require.NoError(t, err)
	return cfg
}

// setup writes one gold file with two references and Grobid output that
// finds one of them
func setup(t *testing.T) runOptions {
	t.Helper()
	root := t.TempDir()
	opts := runOptions{
		GoldDir:    filepath.Join(root, "gold"),
		OutputDir:  filepath.Join(root, "out"),
		ResultsDir: filepath.Join(root, "results"),
		YAML:       true,
		Parquet:    true,
		DBPath:     filepath.Join(root, "runs.db"),
	}
	write(t, filepath.Join(opts.GoldDir, "paper1.xml"), teiXML(book("b0", "Sketch of the Analytical Engine", "1843"), book("b1", "Notes", "1842")))
	write(t, filepath.Join(opts.OutputDir, "Grobid", "paper1.xml"), teiXML(book("b0", "Sketch of the Analytical Engine", "1843")))
	return opts
}

func TestExecuteRun(t *testing.T) {
	opts := setup(t)
	var out bytes.Buffer

	run, err := executeRun(context.Background(), defaultConfig(t), opts, &out)
	require.NoError(t, err)
	require.Len(t, run.Parsers, 1)

	p := run.Parser("Grobid")
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Counts.RefGS)
	assert.Equal(t, 1, p.Counts.RefOut)
	assert.Equal(t, 1, p.Counts.RefCorrect)
	assert.NotZero(t, run.ID)

	assert.Contains(t, out.String(), "REFERENCE EXTRACTION SUMMARY: Grobid")
	assert.FileExists(t, filepath.Join(opts.ResultsDir, "results.json"))
	assert.FileExists(t, opts.DBPath)

	yamls, err := filepath.Glob(filepath.Join(opts.ResultsDir, "evals", "evaluation-*.yaml"))
	require.NoError(t, err)
	assert.Len(t, yamls, 1)

	parquets, err := filepath.Glob(filepath.Join(opts.ResultsDir, "diagnostics-*.parquet"))
	require.NoError(t, err)
	require.Len(t, parquets, 1)
	rows, err := results.LoadParquet(parquets[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "paper1.xml", rows[0].File)
}

func TestExecuteRunDiscoversParsers(t *testing.T) {
	opts := setup(t)
	opts.YAML, opts.Parquet, opts.DBPath = false, false, ""
	write(t, filepath.Join(opts.OutputDir, "Cermine", "paper1.xml"), `<TEI><text/></TEI>`)

	run, err := executeRun(context.Background(), defaultConfig(t), opts, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, run.Parsers, 2)
	assert.Equal(t, "Cermine", run.Parsers[0].Parser)
	assert.Equal(t, []string{"paper1.xml"}, run.Parsers[0].Skipped)
}

func TestExecuteRunNoParsers(t *testing.T) {
	opts := setup(t)
	require.NoError(t, os.RemoveAll(filepath.Join(opts.OutputDir, "Grobid")))

	_, err := executeRun(context.Background(), defaultConfig(t), opts, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestExecuteReport(t *testing.T) {
	opts := setup(t)
	opts.DBPath = ""
	_, err := executeRun(context.Background(), defaultConfig(t), opts, &bytes.Buffer{})
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, executeReport(opts.ResultsDir, "text", "", &out))
		assert.Contains(t, out.String(), "Reference Extraction Evaluation Report")
		assert.Contains(t, out.String(), "FILE 1: paper1.xml")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, executeReport(opts.ResultsDir, "json", "", &out))
		var run evaluation.Results
		require.NoError(t, json.Unmarshal(out.Bytes(), &run))
		assert.Equal(t, "Grobid", run.Parsers[0].Parser)
	})

	t.Run("csv", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, executeReport(opts.ResultsDir, "csv", "", &out))
		records, err := csv.NewReader(&out).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, csvHeader, records[0])
		assert.Equal(t, []string{"Grobid", "TOTAL", ""}, records[1][:3])
		assert.Equal(t, "1.00", records[1][6])
		assert.Equal(t, "0.50", records[1][7])
	})

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, executeReport(opts.ResultsDir, "yaml", "", &out))
		assert.Contains(t, out.String(), "parser: Grobid")
	})

	t.Run("parquet to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.parquet")
		require.NoError(t, executeReport(opts.ResultsDir, "parquet", path, &bytes.Buffer{}))
		rows, err := results.LoadParquet(path)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, executeReport(opts.ResultsDir, "xlsx", "", &bytes.Buffer{}))
	})
}

func TestExecuteInspect(t *testing.T) {
	opts := setup(t)
	var out bytes.Buffer

	err := executeInspect(filepath.Join(opts.GoldDir, "paper1.xml"), "", 1, defaultConfig(t), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "References: 2 (count 2)")
	assert.Contains(t, text, "REFERENCE 1/2  id=b0 type=book")
	assert.NotContains(t, text, "REFERENCE 2/2")
	assert.Contains(t, text, "Required fields: date, monogr-title")
	assert.Contains(t, text, "Sketch of the Analytical Engine")
	assert.Contains(t, text, "Ada Lovelace")
}

func TestExecuteInspectParser(t *testing.T) {
	opts := setup(t)
	var out bytes.Buffer

	err := executeInspect(filepath.Join(opts.OutputDir, "Grobid", "paper1.xml"), "Grobid", 0, defaultConfig(t), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Parser: Grobid (namespaced=true, pointer_refs=true)")
	assert.Contains(t, out.String(), "Selected (Grobid):")
}

func TestExecuteInspectUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.xml")
	write(t, path, teiXML(`<biblStruct xml:id="b0" type="patent"><monogr><title level="m">Loom</title></monogr></biblStruct>`))

	var out bytes.Buffer
	require.NoError(t, executeInspect(path, "", 0, defaultConfig(t), &out))

	line, _, _ := strings.Cut(out.String()[strings.Index(out.String(), "Required fields:"):], "\n")
	assert.True(t, strings.HasPrefix(line, `Required fields: unknown type "patent" (known: `), line)
	assert.Contains(t, line, "article")
	assert.Contains(t, line, "book")
	assert.NotContains(t, out.String(), "Selected")
}

func TestExecuteHistory(t *testing.T) {
	opts := setup(t)
	run, err := executeRun(context.Background(), defaultConfig(t), opts, &bytes.Buffer{})
	require.NoError(t, err)

	var list bytes.Buffer
	require.NoError(t, executeHistory(context.Background(), opts.DBPath, 0, &list))
	assert.Contains(t, list.String(), "Grobid")

	var detail bytes.Buffer
	require.NoError(t, executeHistory(context.Background(), opts.DBPath, run.ID, &detail))
	assert.Contains(t, detail.String(), fmt.Sprintf("Run %d", run.ID))
	assert.Contains(t, detail.String(), "REFERENCE EXTRACTION SUMMARY: Grobid")

	assert.Error(t, executeHistory(context.Background(), opts.DBPath, run.ID+100, &bytes.Buffer{}))
}

func TestExecuteRunPerFileDiagnostics(t *testing.T) {
	opts := setup(t)
	opts.YAML, opts.Parquet, opts.DBPath = false, false, ""
	opts.PerFile = true
	write(t, filepath.Join(opts.GoldDir, "paper2.xml"), teiXML(book("b0", "Notes", "1842")))

	run, err := executeRun(context.Background(), defaultConfig(t), opts, &bytes.Buffer{})
	require.NoError(t, err)

	p := run.Parser("Grobid")
	require.NotNil(t, p)
	assert.Equal(t, []string{"paper2.xml"}, p.Missing)

	stats, err := filepath.Glob(filepath.Join(opts.ResultsDir, "evaluation-stats-*.json"))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	content, err := os.ReadFile(stats[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), `"file": "paper2.xml"`)

	opts.PerFile = false
	opts.ResultsDir = t.TempDir()
	_, err = executeRun(context.Background(), defaultConfig(t), opts, &bytes.Buffer{})
	assert.Error(t, err, "gold and output file counts differ")
}
