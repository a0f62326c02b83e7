package province

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	allowedRe = regexp.MustCompile(`[^a-z0-9\s\-]`)

	// stripMarks decomposes to NFD and drops combining marks, turning
	// "Quảng Trị" into "Quang Tri". Đ/đ is a stroked letter, not a
	// mark composition, so it is replaced before the transform runs.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	aliasOnce sync.Once
	aliasMap  map[string]string
)

// Key reduces a raw name to its lookup key: lowercase, accents stripped,
// dashes unified, whitespace collapsed, non-alphanumerics removed.
func Key(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "đ", "d")
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = spaceRe.ReplaceAllString(s, " ")
	s = allowedRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// aliases builds the key -> canonical map once: canonical names themselves,
// pre-merger names mapped to their successor, and the curated extras.
func aliases() map[string]string {
	aliasOnce.Do(func() {
		aliasMap = make(map[string]string, len(canonical)+len(mergedInto)+len(extraAliases))
		for _, p := range canonical {
			if k := Key(p.Name); k != "" {
				aliasMap[k] = p.Name
			}
		}
		for old, successor := range mergedInto {
			k := Key(old)
			if k == "" {
				continue
			}
			if _, taken := aliasMap[k]; !taken {
				aliasMap[k] = successor
			}
		}
		for k, v := range extraAliases {
			aliasMap[k] = v
		}
	})
	return aliasMap
}

// Normalize maps a raw province/city name to one of the 34 canonical names.
// Returns "" when the name cannot be resolved; it never guesses.
//
// Resolution order: verbatim corrupted-encoding table, latin-1 mojibake
// repair, alias table, district table, then administrative-prefix stripping
// with an alias/district retry.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if fixed, ok := corruptedWeather[raw]; ok {
		return fixed
	}

	if repaired := repairMojibake(raw); repaired != "" && repaired != raw {
		if hit := lookupKey(Key(repaired)); hit != "" {
			return hit
		}
	}

	key := Key(raw)
	if hit := lookupKey(key); hit != "" {
		return hit
	}

	for _, prefix := range rankPrefixes {
		var rest string
		switch {
		case strings.HasPrefix(key, prefix+" "):
			rest = key[len(prefix)+1:]
		case strings.HasPrefix(key, prefix+"-"):
			rest = key[len(prefix)+1:]
		default:
			continue
		}
		rest = strings.TrimSpace(strings.ReplaceAll(rest, "-", " "))
		if hit := lookupKey(rest); hit != "" {
			return hit
		}
	}
	return ""
}

func lookupKey(key string) string {
	if key == "" {
		return ""
	}
	if hit, ok := aliases()[key]; ok {
		return hit
	}
	if hit, ok := districtMap[key]; ok {
		return hit
	}
	return ""
}

// repairMojibake undoes the classic UTF-8-read-as-latin-1 corruption:
// each rune below U+0100 is reinterpreted as a single byte, and the byte
// sequence is accepted if it forms valid UTF-8. Returns "" when the string
// is not a candidate (contains runes outside latin-1) or the repair fails.
func repairMojibake(s string) string {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return ""
		}
		buf = append(buf, byte(r))
	}
	if !utf8.Valid(buf) {
		return ""
	}
	return string(buf)
}
