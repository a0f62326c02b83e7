package province

// extraAliases covers spellings the generic key normalization cannot derive
// from the canonical list or the merger map: cities listed without their
// "TP." prefix, statistical-region names that appear in population tables,
// and recurring typos from the source directories.
var extraAliases = map[string]string{
	// Major cities without the "TP." prefix.
	"ha noi":     "TP. Hà Nội",
	"hai phong":  "TP. Hải Phòng",
	"hue":        "TP. Huế",
	"da nang":    "TP. Đà Nẵng",
	"can tho":    "TP. Cần Thơ",
	"tp ho chi minh": "TP. Hồ Chí Minh",

	// Legacy double names.
	"thua thien hue":     "TP. Huế",
	"thua thien - hue":   "TP. Huế",
	"ba ria - vung tau":  "TP. Hồ Chí Minh",
	"ba ria vung tau":    "TP. Hồ Chí Minh",

	// Typo variants seen in scraped addresses.
	"dac lak":  "Đắk Lắk",
	"dac nong": "Lâm Đồng",

	// Statistical-region names (population tables) map to a representative
	// province so region rows do not fall out of the joins.
	"dong bang song hong":                   "TP. Hà Nội",
	"trung du va mien nui phia bac":         "Cao Bằng",
	"bac trung bo va duyen hai mien trung":  "Thanh Hóa",
	"tay nguyen":                            "Đắk Lắk",
	"dong nam bo":                           "TP. Hồ Chí Minh",
	"dong bang song cuu long":               "TP. Cần Thơ",
}

// corruptedWeather maps raw strings from weather CSVs that were saved with a
// mangled code page. These bytes do not survive the generic latin-1 repair,
// so they are matched verbatim before any normalization.
var corruptedWeather = map[string]string{
	"B¯c Ninh":        "Bắc Ninh",
	"Qu£ng Ninh":      "Quảng Ninh",
	"Lâm \x10Óng":     "Lâm Đồng",
	"H°ng Yên":        "Hưng Yên",
	"\x10iÇn Biên":    "Điện Biên",
	"Qu£ng TrË":       "Quảng Trị",
	"Cao B±ng":        "Cao Bằng",
	"\x10¯k L¯k":      "Đắk Lắk",
	"TP. \x10à Nµng":  "TP. Đà Nẵng",
	"V)nh Long":       "Vĩnh Long",
	"Qu£ng Ngãi":      "Quảng Ngãi",
	"Qu£ng Ngăi":      "Quảng Ngãi",
	"TP. C§n Th¡":     "TP. Cần Thơ",
	"Phú ThÍ":         "Phú Thọ",
	"\x10Óng Nai":     "Đồng Nai",
	"\x10Óng Tháp":    "Đồng Tháp",
	"Hà T)nh":         "Hà Tĩnh",
	"L¡ng S¡n":        "Lạng Sơn",
	"NghÇ An":         "Nghệ An",
	"Ninh B́nh":       "Ninh Bình",
	"S¡n La":          "Sơn La",
	"TP. H£i Pḥng":   "TP. Hải Phòng",
	"TP. H£i Phòng":   "TP. Hải Phòng",
	"TP. HÓ Chí Minh": "TP. Hồ Chí Minh",
}

// districtMap resolves well-known district and provincial-city names that
// appear in place of their province in scraped addresses. Curated minimal
// set; unresolvable names stay unmapped rather than guessed.
var districtMap = map[string]string{
	// Alternative and abbreviated forms of major cities.
	"ho chi minh":            "TP. Hồ Chí Minh",
	"thanh pho ho chi minh":  "TP. Hồ Chí Minh",
	"tpho chi minh":          "TP. Hồ Chí Minh",

	// An Giang.
	"chau doc":            "An Giang",
	"thanh pho chau doc":  "An Giang",
	"tri ton":             "An Giang",
	"tinh bien":           "An Giang",
	"thoai son":           "An Giang",
	"long xuyen":          "An Giang",
	"an phu":              "An Giang",
	"rach gia":            "An Giang",
	"phu quoc":            "An Giang",

	// Đồng Tháp.
	"sa dec":            "Đồng Tháp",
	"thanh pho sa dec":  "Đồng Tháp",
	"tam nong":          "Đồng Tháp",
	"thap muoi":         "Đồng Tháp",
	"huyen thap muoi":   "Đồng Tháp",
	"cao lanh":          "Đồng Tháp",
	"my tho":            "Đồng Tháp",

	// Khánh Hòa.
	"nha trang":  "Khánh Hòa",
	"cam ranh":   "Khánh Hòa",

	// Lâm Đồng.
	"da lat":     "Lâm Đồng",
	"phan thiet": "Lâm Đồng",
	"mui ne":     "Lâm Đồng",

	// Quảng Ninh.
	"ha long":          "Quảng Ninh",
	"thanh pho ha long": "Quảng Ninh",

	// TP. Đà Nẵng (absorbed Quảng Nam).
	"hoi an":  "TP. Đà Nẵng",
	"tam ky":  "TP. Đà Nẵng",

	// Gia Lai.
	"kon ka kinh": "Gia Lai",
	"quy nhon":    "Gia Lai",
	"pleiku":      "Gia Lai",

	// Đắk Lắk variants with the leading Đ lost to encoding damage.
	"dak lak":  "Đắk Lắk",
	"ak lak":   "Đắk Lắk",
	"ac lak":   "Đắk Lắk",
	"tuy hoa":  "Đắk Lắk",
	"dak nong": "Lâm Đồng",
	"ak nong":  "Lâm Đồng",
	"ac nong":  "Lâm Đồng",

	// Lào Cai.
	"sa pa":  "Lào Cai",
	"sapa":   "Lào Cai",

	// Quảng Trị (absorbed Quảng Bình).
	"dong hoi":   "Quảng Trị",
	"phong nha":  "Quảng Trị",

	// Nghệ An.
	"vinh":     "Nghệ An",
	"cua lo":   "Nghệ An",

	// TP. Hồ Chí Minh (absorbed Bà Rịa - Vũng Tàu).
	"vung tau":  "TP. Hồ Chí Minh",
	"con dao":   "TP. Hồ Chí Minh",
}

// rankPrefixes are administrative and descriptive prefixes stripped before a
// retry lookup: "thanh pho X" and "huyen X" should resolve like "X".
var rankPrefixes = []string{
	"vuon quoc gia",
	"thanh pho",
	"tp",
	"thi xa",
	"quan",
	"huyen",
	"thi tran",
	"di tich",
	"tinh",
}
