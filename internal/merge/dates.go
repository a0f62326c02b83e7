package merge

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseMonthLabel parses the month labels found in collected files. Search
// interest exports label months the Vietnamese way ("thg 8 2025"); files
// written by this pipeline use ISO dates.
func ParseMonthLabel(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty month label")
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "thg ") {
		fields := strings.Fields(lower)
		if len(fields) != 3 {
			return time.Time{}, fmt.Errorf("bad month label %q", s)
		}
		month, err := strconv.Atoi(fields[1])
		if err != nil || month < 1 || month > 12 {
			return time.Time{}, fmt.Errorf("bad month in label %q", s)
		}
		year, err := strconv.Atoi(fields[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("bad year in label %q", s)
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
	}

	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized month label %q", s)
}
