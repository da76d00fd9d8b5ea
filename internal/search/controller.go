// Package search owns the search-and-forecast state machine: the debounced
// autocomplete pipeline, the submit path, and the recent-search list.
package search

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"weathernow/internal/meteo"
)

const (
	// DefaultDebounce is the quiet period before a suggestion fetch fires.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultRecentLimit caps the recent-search list.
	DefaultRecentLimit = 5

	defaultFetchTimeout = 10 * time.Second

	// minQueryLen mirrors the suggestion service precondition: shorter
	// queries clear the suggestion list without scheduling a fetch.
	minQueryLen = 2
)

// ErrIndexOutOfRange is returned when a selection refers to a missing entry.
var ErrIndexOutOfRange = errors.New("selection index out of range")

// Suggester provides autocomplete candidates. Failures degrade to an empty
// list inside the implementation and are never surfaced here.
type Suggester interface {
	Suggest(ctx context.Context, query string) []meteo.PlaceCandidate
}

// ForecastLookup resolves a city name into a full Forecast.
type ForecastLookup interface {
	Lookup(ctx context.Context, cityName string) (*meteo.Forecast, error)
}

// State is the observable controller state. The presentation layer reads it
// through Snapshot and never mutates it.
type State struct {
	Query              string                 `json:"query"`
	Suggestions        []meteo.PlaceCandidate `json:"suggestions"`
	SuggestionsVisible bool                   `json:"suggestionsVisible"`
	SuggestLoading     bool                   `json:"suggestLoading"`
	ForecastLoading    bool                   `json:"forecastLoading"`
	Forecast           *meteo.Forecast        `json:"forecast,omitempty"`
	ErrorMessage       string                 `json:"errorMessage,omitempty"`
	RecentSearches     []string               `json:"recentSearches"`
}

// Config overrides Controller defaults. Zero values keep the defaults.
type Config struct {
	Debounce     time.Duration
	RecentLimit  int
	FetchTimeout time.Duration
}

// Controller sequences suggestion and forecast fetches over mutable search
// state. All transitions are serialized by the mutex; in-flight fetches are
// tagged with a sequence number captured at dispatch, and a completion whose
// tag no longer matches the live sequence is discarded. That last-query-wins
// discipline is what keeps a slow early response from overwriting a fresher
// one.
type Controller struct {
	suggester    Suggester
	lookup       ForecastLookup
	debounce     time.Duration
	recentLimit  int
	fetchTimeout time.Duration

	mu          sync.Mutex
	state       State
	timer       *time.Timer
	suggestSeq  uint64
	forecastSeq uint64
	lastSuccess string
	closed      bool
}

// NewController creates a Controller over the given services.
func NewController(suggester Suggester, lookup ForecastLookup, cfg Config) *Controller {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	recentLimit := cfg.RecentLimit
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	return &Controller{
		suggester:    suggester,
		lookup:       lookup,
		debounce:     debounce,
		recentLimit:  recentLimit,
		fetchTimeout: fetchTimeout,
	}
}

// SetQuery records a text edit. The query updates immediately; the suggestion
// fetch is debounced, so at most one timer is pending and it fires only after
// a quiet period. Queries shorter than two characters clear the suggestion
// list without any network activity.
func (c *Controller) SetQuery(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.state.Query = text
	c.suggestSeq++
	seq := c.suggestSeq

	if c.timer != nil {
		c.timer.Stop()
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minQueryLen {
		c.state.Suggestions = nil
		c.state.SuggestionsVisible = false
		c.state.SuggestLoading = false
		return
	}

	c.timer = time.AfterFunc(c.debounce, func() {
		c.fetchSuggestions(trimmed, seq)
	})
}

// Submit runs the forecast lookup for the current query. Blank queries are a
// no-op.
func (c *Controller) Submit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.submitLocked()
}

// SelectSuggestion composes "{name}, {country}" from the indexed suggestion,
// makes it the query, hides the dropdown, and submits it.
func (c *Controller) SelectSuggestion(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if index < 0 || index >= len(c.state.Suggestions) {
		return ErrIndexOutOfRange
	}

	s := c.state.Suggestions[index]
	c.state.Query = s.Name + ", " + s.Country

	// Invalidate any pending or in-flight suggestion fetch.
	c.suggestSeq++
	if c.timer != nil {
		c.timer.Stop()
	}
	c.state.SuggestLoading = false
	c.state.SuggestionsVisible = false

	c.submitLocked()
	return nil
}

// SelectRecent re-submits a stored recent search.
func (c *Controller) SelectRecent(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if index < 0 || index >= len(c.state.RecentSearches) {
		return ErrIndexOutOfRange
	}

	c.state.Query = c.state.RecentSearches[index]
	c.submitLocked()
	return nil
}

// Refresh silently re-runs the last successful submission. It keeps the last
// good forecast on failure and never toggles the loading flag, so a
// background refresh is invisible unless it succeeds. No-op before the first
// success or while a user-triggered fetch is in flight.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.closed || c.lastSuccess == "" || c.state.ForecastLoading {
		c.mu.Unlock()
		return
	}
	c.forecastSeq++
	seq := c.forecastSeq
	city := c.lastSuccess
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()
	forecast, err := c.lookup.Lookup(ctx, city)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.forecastSeq {
		return
	}
	if err != nil || forecast == nil {
		log.Printf("search: background refresh failed for %q: %v", city, err)
		return
	}
	c.state.Forecast = forecast
	c.state.ErrorMessage = ""
}

// Snapshot returns a copy of the current state. Slice headers are copied;
// the Forecast pointer is shared, which is safe because a Forecast is never
// mutated after it is set.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.state
	snap.Suggestions = append([]meteo.PlaceCandidate(nil), c.state.Suggestions...)
	snap.RecentSearches = append([]string(nil), c.state.RecentSearches...)
	return snap
}

// Close stops the debounce timer and makes every later transition a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// submitLocked starts the forecast fetch for the current query. Caller holds mu.
func (c *Controller) submitLocked() {
	query := strings.TrimSpace(c.state.Query)
	if query == "" {
		return
	}

	c.forecastSeq++
	seq := c.forecastSeq
	c.state.ForecastLoading = true
	c.state.ErrorMessage = ""
	c.state.SuggestionsVisible = false

	go c.fetchForecast(query, seq)
}

func (c *Controller) fetchSuggestions(query string, seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.suggestSeq {
		c.mu.Unlock()
		return
	}
	c.state.SuggestLoading = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()
	items := c.suggester.Suggest(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	// Superseded while in flight: a newer keystroke owns the list now.
	if c.closed || seq != c.suggestSeq {
		return
	}
	c.state.SuggestLoading = false
	c.state.Suggestions = items
	c.state.SuggestionsVisible = len(items) > 0
}

func (c *Controller) fetchForecast(city string, seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()
	forecast, err := c.lookup.Lookup(ctx, city)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.forecastSeq {
		return
	}

	c.state.ForecastLoading = false
	if err != nil {
		c.state.ErrorMessage = err.Error()
		c.state.Forecast = nil
		return
	}
	if forecast == nil {
		return
	}

	c.state.Forecast = forecast
	c.state.ErrorMessage = ""
	c.lastSuccess = city
	c.pushRecentLocked(city)
}

// pushRecentLocked prepends city to the recent list, deduplicated by exact
// match and capped at the configured limit. Caller holds mu.
func (c *Controller) pushRecentLocked(city string) {
	recents := make([]string, 0, c.recentLimit)
	recents = append(recents, city)
	for _, r := range c.state.RecentSearches {
		if r == city {
			continue
		}
		recents = append(recents, r)
		if len(recents) == c.recentLimit {
			break
		}
	}
	c.state.RecentSearches = recents
}
