// Package derive maps raw weather values (WMO weather codes, wind degrees,
// temperatures) to display categories. All functions are pure and total:
// unknown codes fall back to a documented default.
package derive

import (
	"math"
	"time"

	"weathernow/internal/meteo"
)

const (
	defaultIcon        = "🌤️"
	defaultDescription = "Unknown"
)

var icons = map[int]string{
	0:  "☀️",
	1:  "🌤️",
	2:  "⛅",
	3:  "☁️",
	45: "🌫️",
	48: "🌫️",
	51: "🌦️",
	53: "🌦️",
	55: "🌦️",
	61: "🌧️",
	63: "🌧️",
	65: "🌧️",
	71: "❄️",
	73: "❄️",
	75: "❄️",
	77: "❄️",
	80: "🌦️",
	81: "🌦️",
	82: "🌦️",
	85: "🌨️",
	86: "🌨️",
	95: "⛈️",
	96: "⛈️",
	99: "⛈️",
}

var descriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// compassPoints starts at North and proceeds clockwise.
var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Icon returns the pictogram for a weather code.
func Icon(code int) string {
	if icon, ok := icons[code]; ok {
		return icon
	}
	return defaultIcon
}

// Description returns the human label for a weather code.
func Description(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return defaultDescription
}

// CompassLabel maps wind direction degrees to one of the 16 compass points.
func CompassLabel(degrees float64) string {
	idx := int(math.Round(degrees/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// Gradient returns the background gradient token for a weather code.
// The ladder is evaluated highest threshold first.
func Gradient(code int) string {
	switch {
	case code >= 95:
		return "from-purple-600 via-purple-700 to-indigo-800" // thunderstorm
	case code >= 80:
		return "from-blue-500 via-blue-600 to-blue-700" // rain showers
	case code >= 60:
		return "from-gray-500 via-gray-600 to-gray-700" // rain
	case code >= 50:
		return "from-slate-500 via-slate-600 to-slate-700" // drizzle
	case code >= 40:
		return "from-gray-400 via-gray-500 to-gray-600" // fog
	case code >= 20:
		return "from-blue-300 via-blue-400 to-blue-500" // partly cloudy
	default:
		return "from-yellow-400 via-orange-500 to-red-500" // clear
	}
}

// BackgroundColors returns a hex color triple for a weather code.
func BackgroundColors(code int) string {
	switch {
	case code >= 95:
		return "#8b5cf6, #7c3aed, #6d28d9"
	case code >= 80:
		return "#0ea5e9, #0284c7, #0369a1"
	case code >= 60:
		return "#64748b, #475569, #334155"
	case code >= 50:
		return "#94a3b8, #64748b, #475569"
	case code >= 40:
		return "#cbd5e1, #94a3b8, #64748b"
	case code >= 20:
		return "#60a5fa, #3b82f6, #2563eb"
	default:
		return "#fbbf24, #f59e0b, #d97706"
	}
}

// AccentColor returns the subtle overlay color for a temperature in Celsius.
func AccentColor(temperature float64) string {
	switch {
	case temperature >= 35:
		return "rgba(255, 69, 0, 0.1)"
	case temperature >= 30:
		return "rgba(255, 140, 0, 0.1)"
	case temperature >= 25:
		return "rgba(255, 215, 0, 0.1)"
	case temperature >= 20:
		return "rgba(152, 251, 152, 0.1)"
	case temperature >= 15:
		return "rgba(135, 206, 235, 0.1)"
	case temperature >= 10:
		return "rgba(65, 105, 225, 0.1)"
	case temperature >= 5:
		return "rgba(30, 144, 255, 0.1)"
	case temperature >= 0:
		return "rgba(0, 191, 255, 0.1)"
	default:
		return "rgba(25, 25, 112, 0.1)"
	}
}

// TemperatureColor returns the text color token for a temperature in Celsius.
func TemperatureColor(temperature float64) string {
	switch {
	case temperature >= 30:
		return "text-red-400"
	case temperature >= 20:
		return "text-orange-400"
	case temperature >= 10:
		return "text-yellow-400"
	case temperature >= 0:
		return "text-blue-400"
	default:
		return "text-cyan-400"
	}
}

// ThemeLabel returns the coarse temperature theme shown next to the reading.
func ThemeLabel(temperature float64) string {
	switch {
	case temperature >= 30:
		return "Hot Weather"
	case temperature >= 20:
		return "Warm Weather"
	case temperature >= 10:
		return "Cool Weather"
	default:
		return "Cold Weather"
	}
}

// RainChance is the next-hour precipitation probability with its hour label.
type RainChance struct {
	ProbabilityPercent int    `json:"probabilityPercent"`
	Label              string `json:"label"`
}

// NextHourRainChance scans the hourly series for the first entry whose
// hour-of-day strictly exceeds now's hour-of-day. If every entry is earlier
// in the day it wraps to the first available hour; that is a deliberate
// "next available" fallback, not an error. The second return is false only
// when the hourly data is missing entirely.
func NextHourRainChance(hourly meteo.Hourly, now time.Time) (RainChance, bool) {
	n := len(hourly.Time)
	if len(hourly.PrecipitationProbability) < n {
		n = len(hourly.PrecipitationProbability)
	}
	if n == 0 {
		return RainChance{}, false
	}

	currentHour := now.Hour()
	for i := 0; i < n; i++ {
		if hourly.Time[i].Hour() > currentHour {
			return RainChance{
				ProbabilityPercent: hourly.PrecipitationProbability[i],
				Label:              hourLabel(hourly.Time[i]),
			}, true
		}
	}

	return RainChance{
		ProbabilityPercent: hourly.PrecipitationProbability[0],
		Label:              hourLabel(hourly.Time[0]),
	}, true
}

// hourLabel formats an instant as a 12-hour clock label, e.g. "3 PM".
func hourLabel(t time.Time) string {
	return t.Format("3 PM")
}
