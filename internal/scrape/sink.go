package scrape

import (
	"path/filepath"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
)

// CSVSink checkpoints scraped records to a semicolon-delimited, BOM-prefixed
// CSV so spreadsheet tools open the Vietnamese text correctly.
type CSVSink struct {
	path string
}

// NewCSVSink writes the source's checkpoint file under dir.
func NewCSVSink(dir string, source Source) *CSVSink {
	return &CSVSink{path: filepath.Join(dir, source.OutputFile())}
}

// Path returns the checkpoint file location.
func (s *CSVSink) Path() string { return s.path }

// Write replaces the checkpoint file with the full record set.
func (s *CSVSink) Write(records []domain.DestinationRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, []string{"name", "province", "source"})
	for _, r := range records {
		rows = append(rows, []string{r.Name, r.RawProvince, r.Source})
	}
	return csvio.WriteFile(s.path, rows, csvio.Options{
		Delimiter: ';',
		Encoding:  csvio.EncodingUTF8BOM,
	})
}
