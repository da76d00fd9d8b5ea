package meteo

import "time"

// PlaceCandidate is a single geocoding match, in provider relevance order.
type PlaceCandidate struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location identifies the resolved place a Forecast belongs to.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Current holds the current-conditions block of a forecast.
type Current struct {
	Temperature         float64 `json:"temperatureC"`
	ApparentTemperature float64 `json:"apparentTemperatureC"`
	Humidity            float64 `json:"humidityPercent"`
	Precipitation       float64 `json:"precipitationMm"`
	WeatherCode         int     `json:"weatherCode"`
	WindSpeed           float64 `json:"windSpeedKph"`
	WindDirection       float64 `json:"windDirectionDeg"`
}

// Hourly carries the hourly precipitation probability series.
// Time and PrecipitationProbability always have equal length; index i of
// one corresponds to index i of the other.
type Hourly struct {
	Time                     []time.Time `json:"time"`
	PrecipitationProbability []int       `json:"precipitationProbability"`
}

// Forecast is the normalized result of one successful lookup. It is built
// atomically and replaced wholesale on the next fetch, never mutated.
type Forecast struct {
	Location Location `json:"location"`
	Current  Current  `json:"current"`
	Hourly   Hourly   `json:"hourly"`
}
