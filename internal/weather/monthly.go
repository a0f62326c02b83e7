package weather

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/vietdata/tourism-pipeline/internal/domain"
)

// rainyDayThreshold is the WMO cutoff for counting a day as rainy.
const rainyDayThreshold = 1.0 // mm

// Monthly folds daily observations into per (province, year, month)
// aggregates, sorted by province then month.
func Monthly(days []domain.WeatherDay) []domain.MonthlyWeather {
	type key struct {
		province    string
		year, month int
	}
	grouped := map[key][]domain.WeatherDay{}
	for _, d := range days {
		k := key{d.Province, d.Date.Year(), int(d.Date.Month())}
		grouped[k] = append(grouped[k], d)
	}

	out := make([]domain.MonthlyWeather, 0, len(grouped))
	for k, ds := range grouped {
		temps := make([]float64, len(ds))
		rains := make([]float64, len(ds))
		for i, d := range ds {
			temps[i] = d.TempAvg
			rains[i] = d.Rainfall
		}

		m := domain.MonthlyWeather{
			Province: k.province,
			Year:     k.year,
			Month:    k.month,
			TempMean: stat.Mean(temps, nil),
			TempMin:  temps[0],
			TempMax:  temps[0],
			Lat:      ds[0].Lat,
			Lon:      ds[0].Lon,
		}
		if len(temps) > 1 {
			m.TempStd = stat.StdDev(temps, nil)
		}
		for _, t := range temps {
			if t < m.TempMin {
				m.TempMin = t
			}
			if t > m.TempMax {
				m.TempMax = t
			}
		}
		m.TempAmplitude = m.TempMax - m.TempMin

		for _, r := range rains {
			m.RainfallTotal += r
			if r > m.RainfallMaxDaily {
				m.RainfallMaxDaily = r
			}
			if r >= rainyDayThreshold {
				m.RainfallDays++
			}
		}
		m.RainfallMeanDaily = m.RainfallTotal / float64(len(rains))

		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Province != out[j].Province {
			return out[i].Province < out[j].Province
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
