// Package province maps raw, inconsistently formatted Vietnamese province and
// city names onto the canonical 34-unit list in force since the 2025
// administrative merger. Raw names arrive accented, abbreviated, prefixed
// with administrative ranks, under pre-merger names, or mojibake-corrupted
// from CSVs saved with the wrong encoding.
package province

// Info carries the static attributes of one canonical province.
type Info struct {
	Name   string
	Region string
	Lat    float64
	Lon    float64
}

// Regions used in the merged dataset.
const (
	RegionRedRiverDelta = "Đồng bằng sông Hồng"
	RegionNorthern      = "Trung du và miền núi phía Bắc"
	RegionCentralCoast  = "Bắc Trung Bộ và Duyên hải miền Trung"
	RegionHighlands     = "Tây Nguyên"
	RegionSoutheast     = "Đông Nam Bộ"
	RegionMekongDelta   = "Đồng bằng sông Cửu Long"
)

// canonical lists the 34 provinces and centrally-run cities with a
// representative coordinate each. Major cities carry the "TP." prefix,
// matching the government directory listings.
var canonical = []Info{
	{"TP. Hà Nội", RegionRedRiverDelta, 21.0285, 105.8542},
	{"TP. Hải Phòng", RegionRedRiverDelta, 20.8449, 106.6881},
	{"TP. Huế", RegionCentralCoast, 16.4637, 107.5909},
	{"TP. Đà Nẵng", RegionCentralCoast, 16.0471, 108.2068},
	{"TP. Hồ Chí Minh", RegionSoutheast, 10.8231, 106.6297},
	{"TP. Cần Thơ", RegionMekongDelta, 10.0452, 105.7469},
	{"An Giang", RegionMekongDelta, 10.3861, 105.4359},
	{"Bắc Ninh", RegionRedRiverDelta, 21.1861, 106.0763},
	{"Cà Mau", RegionMekongDelta, 9.1768, 105.1524},
	{"Cao Bằng", RegionNorthern, 22.6663, 106.2522},
	{"Điện Biên", RegionNorthern, 21.3860, 103.0230},
	{"Đắk Lắk", RegionHighlands, 12.6662, 108.0383},
	{"Đồng Nai", RegionSoutheast, 10.9574, 106.8427},
	{"Đồng Tháp", RegionMekongDelta, 10.4938, 105.6882},
	{"Gia Lai", RegionHighlands, 13.9718, 108.0146},
	{"Hà Tĩnh", RegionCentralCoast, 18.3428, 105.9057},
	{"Hưng Yên", RegionRedRiverDelta, 20.6464, 106.0511},
	{"Khánh Hòa", RegionCentralCoast, 12.2388, 109.1967},
	{"Lai Châu", RegionNorthern, 22.3964, 103.4582},
	{"Lâm Đồng", RegionHighlands, 11.9404, 108.4583},
	{"Lạng Sơn", RegionNorthern, 21.8537, 106.7615},
	{"Lào Cai", RegionNorthern, 22.4856, 103.9707},
	{"Nghệ An", RegionCentralCoast, 18.6796, 105.6813},
	{"Ninh Bình", RegionRedRiverDelta, 20.2506, 105.9745},
	{"Phú Thọ", RegionNorthern, 21.3227, 105.4024},
	{"Quảng Ngãi", RegionCentralCoast, 15.1214, 108.8044},
	{"Quảng Ninh", RegionRedRiverDelta, 21.0064, 107.2925},
	{"Quảng Trị", RegionCentralCoast, 16.7403, 107.1854},
	{"Sơn La", RegionNorthern, 21.3256, 103.9188},
	{"Tây Ninh", RegionSoutheast, 11.3352, 106.1099},
	{"Thái Nguyên", RegionNorthern, 21.5942, 105.8482},
	{"Thanh Hóa", RegionCentralCoast, 19.8067, 105.7852},
	{"Tuyên Quang", RegionNorthern, 21.8183, 105.2119},
	{"Vĩnh Long", RegionMekongDelta, 10.2537, 105.9722},
}

// mergedInto maps pre-2025 province names to the unit that absorbed them.
// Provinces that kept their name map to themselves via the alias table and
// are not listed here.
var mergedInto = map[string]string{
	"Hà Giang":          "Tuyên Quang",
	"Bắc Kạn":           "Thái Nguyên",
	"Yên Bái":           "Lào Cai",
	"Hòa Bình":          "Phú Thọ",
	"Vĩnh Phúc":         "Phú Thọ",
	"Bắc Giang":         "Bắc Ninh",
	"Thái Bình":         "Hưng Yên",
	"Hải Dương":         "TP. Hải Phòng",
	"Hà Nam":            "Ninh Bình",
	"Nam Định":          "Ninh Bình",
	"Quảng Bình":        "Quảng Trị",
	"Thừa Thiên Huế":    "TP. Huế",
	"Quảng Nam":         "TP. Đà Nẵng",
	"Kon Tum":           "Quảng Ngãi",
	"Bình Định":         "Gia Lai",
	"Phú Yên":           "Đắk Lắk",
	"Ninh Thuận":        "Khánh Hòa",
	"Bình Thuận":        "Lâm Đồng",
	"Đắk Nông":          "Lâm Đồng",
	"Bình Phước":        "Đồng Nai",
	"Bà Rịa – Vũng Tàu": "TP. Hồ Chí Minh",
	"Bình Dương":        "TP. Hồ Chí Minh",
	"Long An":           "Tây Ninh",
	"Tiền Giang":        "Đồng Tháp",
	"Bến Tre":           "Vĩnh Long",
	"Trà Vinh":          "Vĩnh Long",
	"Sóc Trăng":         "TP. Cần Thơ",
	"Hậu Giang":         "TP. Cần Thơ",
	"Kiên Giang":        "An Giang",
	"Bạc Liêu":          "Cà Mau",
}

// Canonical returns the 34 canonical provinces, sorted as declared (cities
// first, provinces alphabetical).
func Canonical() []Info {
	out := make([]Info, len(canonical))
	copy(out, canonical)
	return out
}

// Lookup returns the static attributes of a canonical province.
func Lookup(name string) (Info, bool) {
	for _, p := range canonical {
		if p.Name == name {
			return p, true
		}
	}
	return Info{}, false
}

// IsCanonical reports whether name is one of the 34 canonical names.
func IsCanonical(name string) bool {
	_, ok := Lookup(name)
	return ok
}
