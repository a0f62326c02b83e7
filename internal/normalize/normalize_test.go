package normalize

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

func writeRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func newTestNormalizer(t *testing.T) (*Normalizer, string, string) {
	t.Helper()
	dataDir := t.TempDir()
	outDir := t.TempDir()
	n := New(dataDir, outDir, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	return n, dataDir, outDir
}

func TestNormalizerAddsCanonicalColumn(t *testing.T) {
	n, dataDir, outDir := newTestNormalizer(t)

	in := [][]string{
		{"name", "province", "source"},
		{"Vịnh Hạ Long", "Quảng Ninh", "tourism"},
		{"Phố cổ Hội An", "Quang Nam", "tourism"}, // merged away in 2025
		{"Nhà hàng X", "???", "tourism"},
	}
	require.NoError(t, csvio.WriteFile(filepath.Join(dataDir, "vietnam_tourism.csv"), in,
		csvio.Options{Delimiter: ';'}))

	results, err := n.Run([]FileSpec{{
		Name:        "vietnam_tourism.csv",
		ProvinceCol: "province",
		Options:     csvio.Options{Delimiter: ';'},
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Rows)
	assert.Equal(t, 2, results[0].Resolved)
	assert.Equal(t, 1, results[0].Unresolved)

	out, err := csvio.ReadFile(filepath.Join(outDir, "vietnam_tourism.csv"), csvio.Options{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, "province_normalized", out[0][3])
	assert.Equal(t, "Quảng Ninh", out[1][3])
	assert.Equal(t, "TP. Đà Nẵng", out[2][3])
	assert.Equal(t, "", out[3][3])
}

func TestNormalizerSkipsMissingFiles(t *testing.T) {
	n, dataDir, _ := newTestNormalizer(t)

	in := [][]string{{"name", "province"}, {"x", "Hà Nội"}}
	require.NoError(t, csvio.WriteFile(filepath.Join(dataDir, "vietnam_tourism.csv"), in,
		csvio.Options{Delimiter: ';'}))

	specs := []FileSpec{
		{Name: "vietnam_tourism.csv", ProvinceCol: "province", Options: csvio.Options{Delimiter: ';'}},
		{Name: "does_not_exist.csv", ProvinceCol: "province", Options: csvio.Options{Delimiter: ';'}},
	}
	results, err := n.Run(specs)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestNormalizerNoInputs(t *testing.T) {
	n, _, _ := newTestNormalizer(t)
	_, err := n.Run(DefaultFiles())
	assert.ErrorContains(t, err, "no input files")
}

func TestNormalizerWritesSummary(t *testing.T) {
	n, dataDir, outDir := newTestNormalizer(t)

	// Two rows resolve to the same province, so unique_provinces stays 1.
	in := [][]string{{"name", "province"}, {"x", "Hà Nội"}, {"z", "Ha Noi"}, {"y", "nope"}}
	require.NoError(t, csvio.WriteFile(filepath.Join(dataDir, "vietnam_tourism.csv"), in,
		csvio.Options{Delimiter: ';'}))

	_, err := n.Run([]FileSpec{{Name: "vietnam_tourism.csv", ProvinceCol: "province",
		Options: csvio.Options{Delimiter: ';'}}})
	require.NoError(t, err)

	summary, err := csvio.ReadFile(filepath.Join(outDir, SummaryFile), csvio.Options{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"file", "rows", "resolved", "unresolved", "unique_provinces", "resolved_pct"}, summary[0])
	assert.Equal(t, []string{"vietnam_tourism.csv", "3", "2", "1", "1", "66.7"}, summary[1])
}

func TestNormalizerLatin1Input(t *testing.T) {
	n, dataDir, outDir := newTestNormalizer(t)

	// Simulate the historical dump: latin-1 bytes with a mangled name.
	raw := "province,temp\nB\xafc Ninh,20\n"
	require.NoError(t, writeRaw(filepath.Join(dataDir, "weather_history.csv"), raw))

	results, err := n.Run([]FileSpec{{
		Name:        "weather_history.csv",
		ProvinceCol: "province",
		Options:     csvio.Options{Delimiter: ',', Encoding: csvio.EncodingLatin1},
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Resolved)

	out, err := csvio.ReadFile(filepath.Join(outDir, "weather_history.csv"), csvio.Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, "Bắc Ninh", out[1][2])
}
