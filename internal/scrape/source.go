// Package scrape walks the paginated listings of the national tourism
// database (csdl.vietnamtourism.gov.vn) and writes name/province checkpoint
// CSVs. The walk is organized as a fetch/parse/sink triad driven by a Runner
// that retries transient failures with exponential backoff and stops after
// two consecutive empty pages.
package scrape

import "fmt"

// Source identifies one directory section of the tourism database.
type Source struct {
	Name string // output slug, e.g. "tourism"
	Slug string // URL path, e.g. "dest"
}

// Sources lists the scraped directory sections.
var Sources = []Source{
	{Name: "tourism", Slug: "dest"},
	{Name: "accommodation", Slug: "cslt"},
	{Name: "entertainment", Slug: "vcgt"},
	{Name: "healthcare", Slug: "cssk"},
	{Name: "restaurants", Slug: "csan"},
	{Name: "shops", Slug: "csms"},
}

// SourceByName returns the source with the given output slug.
func SourceByName(name string) (Source, error) {
	for _, s := range Sources {
		if s.Name == name {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("unknown scrape source %q", name)
}

// OutputFile is the checkpoint CSV filename for a source.
func (s Source) OutputFile() string {
	return "vietnam_" + s.Name + ".csv"
}
