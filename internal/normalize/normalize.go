// Package normalize rewrites every collected CSV with a province_normalized
// column holding the canonical post-merger province, plus a summary of how
// many names resolved per file.
package normalize

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/observability"
	"github.com/vietdata/tourism-pipeline/internal/province"
)

// FileSpec describes one input file: where its province names live and how
// the file is encoded on disk.
type FileSpec struct {
	Name        string // file name under the data dir
	ProvinceCol string
	Options     csvio.Options
}

// DefaultFiles lists the pipeline's collected datasets. The scraped
// directories are semicolon CSVs with a BOM; the historical weather dump is
// a latin-1 comma CSV with mangled Vietnamese.
func DefaultFiles() []FileSpec {
	semicolon := csvio.Options{Delimiter: ';', Encoding: csvio.EncodingUTF8BOM}
	files := []FileSpec{
		{Name: "vietnam_tourism.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "vietnam_accommodation.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "vietnam_entertainment.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "vietnam_healthcare.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "vietnam_restaurants.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "vietnam_shops.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "youtube_provinces.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "weather_monthly.csv", ProvinceCol: "province", Options: semicolon},
		{Name: "weather_history.csv", ProvinceCol: "province",
			Options: csvio.Options{Delimiter: ',', Encoding: csvio.EncodingLatin1}},
	}
	return files
}

// Result summarizes one file's normalization.
type Result struct {
	File            string
	Rows            int
	Resolved        int
	Unresolved      int
	UniqueProvinces int
}

// Normalizer rewrites input files into the normalized directory.
type Normalizer struct {
	dataDir string
	outDir  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New builds a normalizer reading from dataDir and writing to outDir.
func New(dataDir, outDir string, logger *slog.Logger, metrics *observability.Metrics) *Normalizer {
	return &Normalizer{dataDir: dataDir, outDir: outDir, logger: logger, metrics: metrics}
}

// Run normalizes every present file and writes the summary. Missing files
// are skipped with a log line so partial collections still normalize.
func (n *Normalizer) Run(files []FileSpec) ([]Result, error) {
	var results []Result
	for _, spec := range files {
		inPath := filepath.Join(n.dataDir, spec.Name)
		if _, err := os.Stat(inPath); os.IsNotExist(err) {
			n.logger.Info("input file missing, skipped", "file", spec.Name)
			continue
		}

		res, err := n.normalizeFile(inPath, spec)
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", spec.Name, err)
		}
		results = append(results, res)
		n.logger.Info("file normalized",
			"file", spec.Name, "rows", res.Rows, "resolved", res.Resolved, "unresolved", res.Unresolved)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no input files found under %s", n.dataDir)
	}
	if err := n.writeSummary(results); err != nil {
		return nil, err
	}
	return results, nil
}

func (n *Normalizer) normalizeFile(inPath string, spec FileSpec) (Result, error) {
	rows, err := csvio.ReadFile(inPath, spec.Options)
	if err != nil {
		return Result{}, err
	}
	if len(rows) < 1 {
		return Result{}, fmt.Errorf("file has no header")
	}

	header := rows[0]
	col := csvio.Column(header, spec.ProvinceCol)
	if col < 0 {
		return Result{}, fmt.Errorf("column %q not found", spec.ProvinceCol)
	}

	out := make([][]string, 0, len(rows))
	out = append(out, append(append([]string{}, header...), "province_normalized"))

	res := Result{File: spec.Name}
	unique := map[string]bool{}
	for _, row := range rows[1:] {
		raw := ""
		if col < len(row) {
			raw = row[col]
		}
		canonical := province.Normalize(raw)
		if canonical != "" {
			res.Resolved++
			unique[canonical] = true
			n.metrics.NormalizeHits.Inc()
		} else {
			res.Unresolved++
			n.metrics.NormalizeMisses.Inc()
		}
		res.Rows++
		out = append(out, append(append([]string{}, row...), canonical))
	}
	res.UniqueProvinces = len(unique)

	// Normalized output is always semicolon UTF-8 with BOM, whatever the
	// input looked like.
	outPath := filepath.Join(n.outDir, spec.Name)
	if err := csvio.WriteFile(outPath, out, csvio.Options{Delimiter: ';'}); err != nil {
		return Result{}, err
	}
	return res, nil
}

// SummaryFile is the normalization report written next to the outputs.
const SummaryFile = "_summary_normalization.csv"

func (n *Normalizer) writeSummary(results []Result) error {
	rows := [][]string{{"file", "rows", "resolved", "unresolved", "unique_provinces", "resolved_pct"}}
	for _, r := range results {
		pct := 0.0
		if r.Rows > 0 {
			pct = 100 * float64(r.Resolved) / float64(r.Rows)
		}
		rows = append(rows, []string{
			r.File,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Resolved),
			strconv.Itoa(r.Unresolved),
			strconv.Itoa(r.UniqueProvinces),
			strconv.FormatFloat(pct, 'f', 1, 64),
		})
	}
	return csvio.WriteFile(filepath.Join(n.outDir, SummaryFile), rows, csvio.Options{Delimiter: ';'})
}
