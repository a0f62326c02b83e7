package domain

import "time"

// DestinationRecord is one entry scraped from a government directory page:
// a place name plus the raw address tail it was listed under.
type DestinationRecord struct {
	Name        string
	RawProvince string // last comma-segment of the listed address
	Province    string // canonical province, "" until normalized
	Source      string // directory slug, e.g. "tourism", "accommodation"
}

// TrafficPoint is the monthly search-interest score (0-100) for one
// destination keyword.
type TrafficPoint struct {
	Destination string
	Date        time.Time // first day of the month
	Traffic     float64
}

// WeatherDay is one day of weather at a province's representative coordinate.
type WeatherDay struct {
	Province string
	Date     time.Time
	TempAvg  float64
	Rainfall float64
	Lat      float64
	Lon      float64
}

// MonthlyWeather aggregates daily weather per (province, year, month).
type MonthlyWeather struct {
	Province          string
	Year              int
	Month             int
	TempMean          float64
	TempMin           float64
	TempMax           float64
	TempAmplitude     float64
	TempStd           float64
	RainfallTotal     float64
	RainfallMaxDaily  float64
	RainfallMeanDaily float64
	RainfallDays      int
	Lat               float64
	Lon               float64
}

// FirstOfMonth returns the first day of the aggregate's month in UTC.
func (m MonthlyWeather) FirstOfMonth() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// VideoStat holds per-video statistics from the YouTube Data API.
type VideoStat struct {
	VideoID     string
	Province    string
	Title       string
	PublishedAt time.Time
	Views       int64
	Likes       int64
	Comments    int64
}

// ProvinceVideoAggregate sums video statistics per province.
type ProvinceVideoAggregate struct {
	Province string
	Videos   int
	Views    int64
	Likes    int64
	Comments int64
}

// Prediction is one scored destination row exported by the model.
type Prediction struct {
	Destination      string
	Province         string
	Region           string
	Traffic          float64
	PredictedTraffic float64
	PredictedChange  float64 // percent vs current traffic
}
