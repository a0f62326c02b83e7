package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/province"
)

// CoordsFile is the resolved province coordinates table.
const CoordsFile = "province_coords.csv"

// ProvinceCoord pairs a canonical province with its geocoded centre.
type ProvinceCoord struct {
	Province string
	Point    Point
}

// ResolveProvinces geocodes every canonical province. Provinces the geocoder
// cannot place keep their built-in coordinate, so failures are logged and
// skipped rather than aborting the run.
func ResolveProvinces(ctx context.Context, geocoder domain.Geocoder, logger *slog.Logger) ([]ProvinceCoord, error) {
	var out []ProvinceCoord
	failed := 0
	for _, info := range province.Canonical() {
		result, err := geocoder.Geocode(ctx, info.Name+", Việt Nam")
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			logger.Warn("geocode failed", "province", info.Name, "error", err)
			continue
		}
		if result.DisplayName == "" {
			failed++
			logger.Warn("province not found", "province", info.Name)
			continue
		}
		out = append(out, ProvinceCoord{
			Province: info.Name,
			Point:    Point{Lat: result.Lat, Lon: result.Lon},
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no province could be geocoded (%d failures)", failed)
	}
	if failed > 0 {
		logger.Warn("some provinces keep built-in coordinates", "failed", failed)
	}
	return out, nil
}

// WriteCoords stores the resolved coordinates as a semicolon CSV.
func WriteCoords(path string, coords []ProvinceCoord) error {
	rows := [][]string{{"province", "lat", "lon"}}
	for _, c := range coords {
		rows = append(rows, []string{
			c.Province,
			strconv.FormatFloat(c.Point.Lat, 'f', 6, 64),
			strconv.FormatFloat(c.Point.Lon, 'f', 6, 64),
		})
	}
	return csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'})
}

// ReadCoords loads a coordinates table keyed by canonical province name.
func ReadCoords(path string) (map[string]Point, error) {
	rows, err := csvio.ReadFile(path, csvio.Options{Delimiter: ';'})
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	header := rows[0]
	provCol := csvio.Column(header, "province")
	latCol := csvio.Column(header, "lat")
	lonCol := csvio.Column(header, "lon")
	if provCol < 0 || latCol < 0 || lonCol < 0 {
		return nil, fmt.Errorf("%s misses province/lat/lon columns", path)
	}

	out := make(map[string]Point, len(rows)-1)
	for _, row := range rows[1:] {
		lat, err := strconv.ParseFloat(row[latCol], 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat for %s: %w", row[provCol], err)
		}
		lon, err := strconv.ParseFloat(row[lonCol], 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon for %s: %w", row[provCol], err)
		}
		out[row[provCol]] = Point{Lat: lat, Lon: lon}
	}
	return out, nil
}
