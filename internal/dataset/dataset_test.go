package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
)

func writeTempCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'}))
	return path
}

func TestReadCSVKeepsStrings(t *testing.T) {
	path := writeTempCSV(t, [][]string{
		{"name", "province"},
		{"Vịnh Hạ Long", "Quảng Ninh"},
		{"0123", "Hà Nội"}, // leading zero must survive
	})

	df, err := ReadCSV(path, csvio.Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, "0123", df.Col("name").Records()[1])
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := writeTempCSV(t, [][]string{
		{"a", "b"},
		{"1", "x"},
	})
	df, err := ReadCSV(path, csvio.Options{Delimiter: ';'})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(out, df, csvio.Options{Delimiter: ';'}))

	df2, err := ReadCSV(out, csvio.Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, df.Records(), df2.Records())
}

func TestCountBy(t *testing.T) {
	path := writeTempCSV(t, [][]string{
		{"name", "province"},
		{"a", "Quảng Ninh"},
		{"b", "Quảng Ninh"},
		{"c", "Hà Nội"},
	})
	df, err := ReadCSV(path, csvio.Options{Delimiter: ';'})
	require.NoError(t, err)

	counts, err := CountBy(df, "province")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, [2]string{"Quảng Ninh", "2"}, counts[0])
	assert.Equal(t, [2]string{"Hà Nội", "1"}, counts[1])

	_, err = CountBy(df, "missing")
	assert.Error(t, err)
}

func TestSanitizeBlanksJoinMarkers(t *testing.T) {
	records := [][]string{
		{"province", "views"},
		{"Quảng Ninh", "NaN"},
		{"Hà Nội", "120"},
	}
	out := Sanitize(records)
	assert.Equal(t, "", out[1][1])
	assert.Equal(t, "120", out[2][1])
	assert.Equal(t, "Quảng Ninh", out[1][0])
}
