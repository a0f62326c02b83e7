// Package csvio reads and writes the pipeline's checkpoint CSVs. Input files
// vary in delimiter and encoding: scraped directories use semicolons with a
// UTF-8 BOM (so Excel opens them correctly), while the historical weather
// dumps were saved as latin-1 with a stray 0xFF lead byte.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names accepted in file configs.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingLatin1  = "latin1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options describe how a CSV file on disk is shaped.
type Options struct {
	Delimiter rune   // default ','
	Encoding  string // default EncodingUTF8BOM
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o Options) encoding() string {
	if o.Encoding == "" {
		return EncodingUTF8BOM
	}
	return o.Encoding
}

// ReadFile reads a whole CSV file into records, header first. Fields per
// record may vary across malformed scraped rows; the reader is lenient.
func ReadFile(path string, opts Options) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return Read(f, opts)
}

// Read decodes CSV records from r according to opts.
func Read(r io.Reader, opts Options) ([][]string, error) {
	decoded, err := decodeReader(r, opts.encoding())
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch encoding {
	case EncodingUTF8, EncodingUTF8BOM:
		return stripBOM(r)
	case EncodingLatin1:
		// Historical weather CSVs carry a stray 0xFF byte up front; latin-1
		// decoding maps it to ÿ which is then dropped with the BOM check.
		decoded := transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
		return stripLeadingJunk(decoded)
	default:
		return nil, fmt.Errorf("unsupported csv encoding %q", encoding)
	}
}

func stripBOM(r io.Reader) (io.Reader, error) {
	head := make([]byte, len(utf8BOM))
	n, err := io.ReadFull(r, head)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return bytes.NewReader(head[:n]), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv head: %w", err)
	}
	if bytes.Equal(head, utf8BOM) {
		return r, nil
	}
	return io.MultiReader(bytes.NewReader(head), r), nil
}

func stripLeadingJunk(r io.Reader) (io.Reader, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	all = bytes.TrimLeft(all, "\u00ff\ufeff") // stray-byte ÿ, or a BOM
	return bytes.NewReader(all), nil
}

// WriteFile writes records to path, creating parent directories. Output is
// always UTF-8; a BOM is prepended for EncodingUTF8BOM so spreadsheet tools
// detect the encoding.
func WriteFile(path string, records [][]string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	if opts.encoding() == EncodingUTF8BOM {
		if _, err := f.Write(utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}

	w := csv.NewWriter(f)
	w.Comma = opts.delimiter()
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Column returns the index of name in the header, or -1.
func Column(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
