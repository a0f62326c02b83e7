// Package dataset bridges the checkpoint CSVs and the gota dataframes the
// merge stage joins over.
package dataset

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
)

// ReadCSV loads a checkpoint CSV into a dataframe, honoring the file's
// delimiter and encoding. All columns load as strings; stages convert what
// they need.
func ReadCSV(path string, opts csvio.Options) (dataframe.DataFrame, error) {
	records, err := csvio.ReadFile(path, opts)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(records) < 1 {
		return dataframe.DataFrame{}, fmt.Errorf("csv %s has no header", path)
	}
	df := dataframe.LoadRecords(records, dataframe.DefaultType(series.String), dataframe.DetectTypes(false))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", path, df.Err)
	}
	return df, nil
}

// WriteCSV saves a dataframe through the checkpoint writer. Records pass
// through Sanitize so unmatched join cells read back as missing values.
func WriteCSV(path string, df dataframe.DataFrame, opts csvio.Options) error {
	if df.Err != nil {
		return df.Err
	}
	return csvio.WriteFile(path, Sanitize(df.Records()), opts)
}

// Sanitize blanks, in place, the "NaN" markers gota leaves in cells that had
// no match during a join.
func Sanitize(records [][]string) [][]string {
	for _, row := range records {
		for i, v := range row {
			if v == "NaN" {
				row[i] = ""
			}
		}
	}
	return records
}

// CountBy tallies rows per distinct value of col, most frequent first.
func CountBy(df dataframe.DataFrame, col string) ([][2]string, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	idx := -1
	for i, name := range df.Names() {
		if name == col {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", col)
	}

	counts := map[string]int{}
	for _, v := range df.Col(col).Records() {
		counts[v]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, fmt.Sprintf("%d", counts[k])})
	}
	return out, nil
}
