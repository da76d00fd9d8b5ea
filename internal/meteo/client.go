package meteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastBaseURL  = "https://api.open-meteo.com/v1/forecast"

	defaultSuggestLimit = 5

	// minQueryLen is the shortest query worth geocoding; anything shorter
	// returns an empty candidate list without a network call.
	minQueryLen = 2

	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m,wind_direction_10m"
	hourlyFields  = "precipitation_probability"

	notFoundMessage       = "City not found. Please check the spelling and try again."
	genericFailureMessage = "Failed to fetch weather data"
)

// hourlyTimeLayout is the local-time layout Open-Meteo uses with timezone=auto.
const hourlyTimeLayout = "2006-01-02T15:04"

// ClientConfig overrides Client defaults. Zero values keep the defaults.
type ClientConfig struct {
	GeocodingBaseURL string
	ForecastBaseURL  string
	SuggestLimit     int
}

// Client talks to the Open-Meteo geocoding and forecast APIs. It implements
// both the suggestion lookup (best-effort autocomplete candidates) and the
// two-stage geocode-then-forecast city lookup.
type Client struct {
	geocodingURL string
	forecastURL  string
	suggestLimit int
	httpClient   *http.Client
	geoCircuit   *gobreaker.CircuitBreaker
	fcCircuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Client using the given HTTP client for outbound calls.
func NewClient(httpClient *http.Client, cfg ClientConfig) *Client {
	geocodingURL := cfg.GeocodingBaseURL
	if geocodingURL == "" {
		geocodingURL = defaultGeocodingBaseURL
	}
	forecastURL := cfg.ForecastBaseURL
	if forecastURL == "" {
		forecastURL = defaultForecastBaseURL
	}
	suggestLimit := cfg.SuggestLimit
	if suggestLimit <= 0 {
		suggestLimit = defaultSuggestLimit
	}

	newCircuit := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &Client{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		suggestLimit: suggestLimit,
		httpClient:   httpClient,
		geoCircuit:   newCircuit("geocoding"),
		fcCircuit:    newCircuit("forecast"),
	}
}

// Suggest returns up to the configured number of place candidates for an
// autocomplete query, in provider relevance order. Suggestions are a
// best-effort enhancement: every failure degrades to an empty list and is
// never surfaced to the user.
func (c *Client) Suggest(ctx context.Context, query string) []PlaceCandidate {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLen {
		return nil
	}

	matches, err := c.geocode(ctx, query, c.suggestLimit)
	if err != nil {
		log.Printf("meteo: suggestion lookup failed for %q: %v", query, err)
		return nil
	}
	return matches
}

// Lookup resolves a city name to coordinates, fetches current conditions plus
// hourly precipitation probability for the first match, and merges the two
// into one Forecast. A blank name is a no-op. Zero geocoding matches fail
// with NotFoundError; provider-reported failures with ProviderError.
func (c *Client) Lookup(ctx context.Context, cityName string) (*Forecast, error) {
	cityName = strings.TrimSpace(cityName)
	if cityName == "" {
		return nil, nil
	}

	matches, err := c.geocode(ctx, cityName, 1)
	if err != nil {
		return nil, &ProviderError{Reason: genericFailureMessage, Err: err}
	}
	if len(matches) == 0 {
		return nil, &NotFoundError{Message: notFoundMessage}
	}
	place := matches[0]

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", place.Latitude))
		values.Set("longitude", fmt.Sprintf("%f", place.Longitude))
		values.Set("current", currentFields)
		values.Set("hourly", hourlyFields)
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", c.forecastURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, c.httpClient, c.fcCircuit, buildRequest)
	if err != nil {
		return nil, &ProviderError{Reason: genericFailureMessage, Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		Error   bool   `json:"error"`
		Reason  string `json:"reason"`
		Current struct {
			Temperature         float64 `json:"temperature_2m"`
			Humidity            float64 `json:"relative_humidity_2m"`
			ApparentTemperature float64 `json:"apparent_temperature"`
			Precipitation       float64 `json:"precipitation"`
			WeatherCode         int     `json:"weather_code"`
			WindSpeed           float64 `json:"wind_speed_10m"`
			WindDirection       float64 `json:"wind_direction_10m"`
		} `json:"current"`
		Hourly struct {
			Time                     []string `json:"time"`
			PrecipitationProbability []int    `json:"precipitation_probability"`
		} `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Reason: genericFailureMessage, Err: err}
	}
	if payload.Error {
		reason := payload.Reason
		if reason == "" {
			reason = genericFailureMessage
		}
		return nil, &ProviderError{Reason: reason}
	}

	return &Forecast{
		Location: Location{
			Name:      place.Name,
			Country:   place.Country,
			Latitude:  place.Latitude,
			Longitude: place.Longitude,
		},
		Current: Current{
			Temperature:         payload.Current.Temperature,
			ApparentTemperature: payload.Current.ApparentTemperature,
			Humidity:            payload.Current.Humidity,
			Precipitation:       payload.Current.Precipitation,
			WeatherCode:         payload.Current.WeatherCode,
			WindSpeed:           payload.Current.WindSpeed,
			WindDirection:       payload.Current.WindDirection,
		},
		Hourly: parseHourly(payload.Hourly.Time, payload.Hourly.PrecipitationProbability),
	}, nil
}

// geocode queries the geocoding endpoint for up to count candidates.
func (c *Client) geocode(ctx context.Context, name string, count int) ([]PlaceCandidate, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("name", name)
		values.Set("count", strconv.Itoa(count))
		values.Set("language", "en")
		values.Set("format", "json")

		u := fmt.Sprintf("%s?%s", c.geocodingURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, c.httpClient, c.geoCircuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Error   bool             `json:"error"`
		Reason  string           `json:"reason"`
		Results []PlaceCandidate `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error {
		reason := payload.Reason
		if reason == "" {
			reason = "geocoding failed"
		}
		return nil, fmt.Errorf("geocoding error: %s", reason)
	}

	return payload.Results, nil
}

// parseHourly aligns the two hourly series, truncating to the shorter one so
// the equal-length invariant holds even on ragged provider data.
func parseHourly(times []string, probabilities []int) Hourly {
	n := len(times)
	if len(probabilities) < n {
		n = len(probabilities)
	}

	out := Hourly{
		Time:                     make([]time.Time, 0, n),
		PrecipitationProbability: make([]int, 0, n),
	}
	for i := 0; i < n; i++ {
		ts, err := time.Parse(hourlyTimeLayout, times[i])
		if err != nil {
			if ts, err = time.Parse(time.RFC3339, times[i]); err != nil {
				continue
			}
		}
		out.Time = append(out.Time, ts)
		out.PrecipitationProbability = append(out.PrecipitationProbability, probabilities[i])
	}
	return out
}
