package scrape

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/vietdata/tourism-pipeline/internal/domain"
)

// ListingParser extracts destination records from a directory listing page.
// Each entry is an <h4><a>name</a></h4> heading followed, before the next
// heading, by a block holding a map-marker icon with the address text.
type ListingParser struct {
	Source string
}

// Parse returns the records found on one page. Malformed entries are skipped;
// an empty slice means the page holds no listings (end of pagination).
func (p *ListingParser) Parse(page string) []domain.DestinationRecord {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var records []domain.DestinationRecord
	for _, h4 := range findAll(root, "h4") {
		name := strings.Join(strings.Fields(text(firstTag(h4, "a"))), " ")
		if name == "" {
			continue
		}
		raw := addressAfter(h4)
		records = append(records, domain.DestinationRecord{
			Name:        name,
			RawProvince: ExtractProvince(raw),
			Source:      p.Source,
		})
	}
	return records
}

// addressAfter scans the siblings following a heading until the next <h4>,
// returning the text of the first block that carries a map-marker icon.
func addressAfter(h4 *html.Node) string {
	for sib := h4.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == "h4" {
			break
		}
		if hasMapMarker(sib) {
			s := strings.ReplaceAll(text(sib), " ", " ")
			return strings.Join(strings.Fields(s), " ")
		}
	}
	return ""
}

// ExtractProvince pulls the trailing comma-segment out of a listed address,
// dropping the "Địa chỉ:" label when present.
func ExtractProvince(addr string) string {
	s := strings.TrimSpace(addr)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "địa chỉ:") {
		s = strings.TrimSpace(s[len("địa chỉ:"):])
	}
	parts := strings.Split(s, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if part := strings.TrimSpace(parts[i]); part != "" {
			return part
		}
	}
	return ""
}

func hasMapMarker(n *html.Node) bool {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "class" && strings.Contains(a.Val, "map-marker") {
				return true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasMapMarker(c) {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func firstTag(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := firstTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
