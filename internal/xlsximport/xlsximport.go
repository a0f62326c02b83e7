// Package xlsximport converts the statistics-office workbooks (GRDP and
// population per province) into the two-column CSVs the merge stage joins.
package xlsximport

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/province"
)

// Converter turns one workbook sheet into a province/value CSV.
type Converter struct {
	logger *slog.Logger
}

// New builds a converter.
func New(logger *slog.Logger) *Converter {
	return &Converter{logger: logger}
}

// Convert reads the first sheet of the workbook at inPath, takes the first
// column as the province name and valueCol (zero-based) as the figure, and
// writes outPath. Rows whose province cannot be resolved are skipped and
// counted; a value that repeats for a merged province keeps the first hit.
func (c *Converter) Convert(inPath, outPath string, valueCol int) error {
	f, err := excelize.OpenFile(inPath)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s has no sheets", inPath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	out := [][]string{{"province", "value"}}
	seen := map[string]bool{}
	skipped := 0
	for _, row := range rows {
		if len(row) <= valueCol {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}

		canonical := province.Normalize(name)
		if canonical == "" {
			skipped++
			continue
		}
		if seen[canonical] {
			continue
		}

		value, ok := parseNumber(row[valueCol])
		if !ok {
			skipped++
			continue
		}
		seen[canonical] = true
		out = append(out, []string{canonical, strconv.FormatFloat(value, 'f', -1, 64)})
	}

	if len(out) < 2 {
		return fmt.Errorf("workbook %s yielded no usable rows", inPath)
	}
	if err := csvio.WriteFile(outPath, out, csvio.Options{Delimiter: ';'}); err != nil {
		return err
	}
	c.logger.Info("workbook converted",
		"in", inPath, "out", outPath, "provinces", len(out)-1, "skipped", skipped)
	return nil
}

// parseNumber tolerates the thousands separators and spaces the statistics
// office sprinkles into figures.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || s == ".." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
