package scrape

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdata/tourism-pipeline/internal/domain"
)

const listingPage = `<!DOCTYPE html>
<html><body>
<div class="list-item">
  <h4><a href="/dest/123">
      Vịnh Hạ Long
  </a></h4>
  <p><i class="fa fa-map-marker"></i> Địa chỉ: TP Hạ Long, Quảng Ninh</p>
</div>
<div class="list-item">
  <h4><a href="/dest/124">Chùa Một Cột</a></h4>
  <p><i class="fa fa-map-marker"></i> Quận Ba Đình, Hà Nội</p>
</div>
<div class="list-item">
  <h4><a href="/dest/125">Không có địa chỉ</a></h4>
  <p>no marker here</p>
</div>
</body></html>`

func TestListingParserParse(t *testing.T) {
	p := &ListingParser{Source: "tourism"}
	got := p.Parse(listingPage)

	want := []domain.DestinationRecord{
		{Name: "Vịnh Hạ Long", RawProvince: "Quảng Ninh", Source: "tourism"},
		{Name: "Chùa Một Cột", RawProvince: "Hà Nội", Source: "tourism"},
		{Name: "Không có địa chỉ", RawProvince: "", Source: "tourism"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestListingParserEmptyPage(t *testing.T) {
	p := &ListingParser{Source: "tourism"}
	assert.Empty(t, p.Parse("<html><body><p>Không tìm thấy kết quả</p></body></html>"))
}

func TestListingParserSkipsHeadingsWithoutLink(t *testing.T) {
	p := &ListingParser{Source: "tourism"}
	got := p.Parse(`<html><body><h4>Tiêu đề trần</h4></body></html>`)
	require.Empty(t, got)
}

func TestExtractProvince(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"label and commas", "Địa chỉ: Phường Bãi Cháy, TP Hạ Long, Quảng Ninh", "Quảng Ninh"},
		{"no label", "Huyện Sa Pa, Lào Cai", "Lào Cai"},
		{"trailing comma", "Thành phố Huế,", "Thành phố Huế"},
		{"single segment", "Đà Nẵng", "Đà Nẵng"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractProvince(tt.addr))
		})
	}
}

func TestSourceByName(t *testing.T) {
	s, err := SourceByName("accommodation")
	require.NoError(t, err)
	assert.Equal(t, "cslt", s.Slug)
	assert.Equal(t, "vietnam_accommodation.csv", s.OutputFile())

	_, err = SourceByName("nope")
	assert.Error(t, err)
}
