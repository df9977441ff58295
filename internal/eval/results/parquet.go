package results

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
)

// FileRow is one per-file diagnostic row of a run
type FileRow struct {
	Parser  string `parquet:"parser"`
	File    string `parquet:"file"`
	Missing bool   `parquet:"missing"`
	Skipped bool   `parquet:"skipped"`

	RefGS       int64 `parquet:"ref_gs"`
	RefOut      int64 `parquet:"ref_out"`
	RefCorrect  int64 `parquet:"ref_correct"`
	MetaGS      int64 `parquet:"meta_gs"`
	MetaOut     int64 `parquet:"meta_out"`
	MetaCorrect int64 `parquet:"meta_correct"`
	TextGS      int64 `parquet:"text_gs"`
	TextOut     int64 `parquet:"text_out"`
	TextCorrect int64 `parquet:"text_correct"`

	RefPrecision  float64 `parquet:"ref_precision"`
	RefRecall     float64 `parquet:"ref_recall"`
	RefFScore     float64 `parquet:"ref_fscore"`
	MetaPrecision float64 `parquet:"meta_precision"`
	MetaRecall    float64 `parquet:"meta_recall"`
	MetaFScore    float64 `parquet:"meta_fscore"`
	TextPrecision float64 `parquet:"text_precision"`
	TextRecall    float64 `parquet:"text_recall"`
	TextFScore    float64 `parquet:"text_fscore"`
}

// Rows flattens the per-file results of a run
func Rows(run *evaluation.Results) []FileRow {
	var rows []FileRow
	for _, p := range run.Parsers {
		for _, f := range p.Files {
			c, m := f.Counts, f.Metrics
			rows = append(rows, FileRow{
				Parser:        p.Parser,
				File:          f.File,
				Missing:       f.Missing,
				Skipped:       f.Skipped,
				RefGS:         int64(c.RefGS),
				RefOut:        int64(c.RefOut),
				RefCorrect:    int64(c.RefCorrect),
				MetaGS:        int64(c.MetaGS),
				MetaOut:       int64(c.MetaOut),
				MetaCorrect:   int64(c.MetaCorrect),
				TextGS:        int64(c.TextGS),
				TextOut:       int64(c.TextOut),
				TextCorrect:   int64(c.TextCorrect),
				RefPrecision:  m.References.Precision,
				RefRecall:     m.References.Recall,
				RefFScore:     m.References.FScore,
				MetaPrecision: m.Metadata.Precision,
				MetaRecall:    m.Metadata.Recall,
				MetaFScore:    m.Metadata.FScore,
				TextPrecision: m.Content.Precision,
				TextRecall:    m.Content.Recall,
				TextFScore:    m.Content.FScore,
			})
		}
	}
	return rows
}

// WriteParquet writes the per-file diagnostics of a run to w
func WriteParquet(w io.Writer, run *evaluation.Results) error {
	writer := parquet.NewGenericWriter[FileRow](w)
	if _, err := writer.Write(Rows(run)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// SaveToParquet writes the per-file diagnostics of a run to path
func SaveToParquet(run *evaluation.Results, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	return WriteParquet(file, run)
}

// LoadParquet reads per-file diagnostic rows back from a parquet file
func LoadParquet(path string) ([]FileRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[FileRow](pf)
	defer reader.Close()

	var rows []FileRow
	batch := make([]FileRow, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return rows, nil
}
