package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"weathernow/internal/meteo"
)

const testDebounce = 25 * time.Millisecond

// stubSuggester records calls and can block per query to control completion
// order.
type stubSuggester struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]meteo.PlaceCandidate
	gates   map[string]chan struct{}
	started chan string
}

func newStubSuggester() *stubSuggester {
	return &stubSuggester{
		results: make(map[string][]meteo.PlaceCandidate),
		gates:   make(map[string]chan struct{}),
	}
}

func (s *stubSuggester) Suggest(ctx context.Context, query string) []meteo.PlaceCandidate {
	s.mu.Lock()
	s.calls = append(s.calls, query)
	gate := s.gates[query]
	res := s.results[query]
	started := s.started
	s.mu.Unlock()

	if started != nil {
		started <- query
	}
	if gate != nil {
		<-gate
	}
	return res
}

func (s *stubSuggester) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// stubLookup serves canned forecasts or errors per city.
type stubLookup struct {
	mu        sync.Mutex
	calls     []string
	forecasts map[string]*meteo.Forecast
	errs      map[string]error
	gates     map[string]chan struct{}
	started   chan string
}

func newStubLookup() *stubLookup {
	return &stubLookup{
		forecasts: make(map[string]*meteo.Forecast),
		errs:      make(map[string]error),
		gates:     make(map[string]chan struct{}),
	}
}

func (s *stubLookup) Lookup(ctx context.Context, cityName string) (*meteo.Forecast, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cityName)
	gate := s.gates[cityName]
	forecast := s.forecasts[cityName]
	err := s.errs[cityName]
	started := s.started
	s.mu.Unlock()

	if started != nil {
		started <- cityName
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return forecast, nil
}

func (s *stubLookup) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubLookup) setForecast(city string, temperature float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts[city] = &meteo.Forecast{
		Location: meteo.Location{Name: city},
		Current:  meteo.Current{Temperature: temperature},
	}
}

func newTestController(sug *stubSuggester, lookup *stubLookup) *Controller {
	return NewController(sug, lookup, Config{Debounce: testDebounce})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// submitAndWait submits city and waits for that lookup call to settle.
func submitAndWait(t *testing.T, c *Controller, lookup *stubLookup, city string) {
	t.Helper()
	before := lookup.callCount()
	c.SetQuery(city)
	c.Submit()
	waitFor(t, func() bool {
		return lookup.callCount() > before && !c.Snapshot().ForecastLoading
	})
}

func TestShortQueryClearsSuggestionsWithoutFetch(t *testing.T) {
	sug := newStubSuggester()
	c := newTestController(sug, newStubLookup())
	defer c.Close()

	c.SetQuery("L")
	time.Sleep(10 * testDebounce)

	if n := sug.callCount(); n != 0 {
		t.Fatalf("expected no suggestion fetches, got %d", n)
	}
	snap := c.Snapshot()
	if len(snap.Suggestions) != 0 || snap.SuggestionsVisible {
		t.Errorf("expected empty hidden suggestions, got %+v", snap)
	}
	if snap.Query != "L" {
		t.Errorf("query = %q, want %q", snap.Query, "L")
	}
}

func TestDebounceCollapsesRapidKeystrokes(t *testing.T) {
	sug := newStubSuggester()
	sug.results["Lond"] = []meteo.PlaceCandidate{{Name: "London", Country: "GB"}}
	c := newTestController(sug, newStubLookup())
	defer c.Close()

	c.SetQuery("Lo")
	c.SetQuery("Lon")
	c.SetQuery("Lond")

	waitFor(t, func() bool { return sug.callCount() > 0 })
	time.Sleep(5 * testDebounce)

	sug.mu.Lock()
	calls := append([]string(nil), sug.calls...)
	sug.mu.Unlock()
	if len(calls) != 1 || calls[0] != "Lond" {
		t.Fatalf("expected one fetch for final query, got %v", calls)
	}
}

func TestSuggestionVisibilityTracksEmptiness(t *testing.T) {
	sug := newStubSuggester()
	sug.results["london"] = []meteo.PlaceCandidate{{Name: "London", Country: "GB"}}
	c := newTestController(sug, newStubLookup())
	defer c.Close()

	c.SetQuery("london")
	waitFor(t, func() bool { return c.Snapshot().SuggestionsVisible })

	c.SetQuery("zzzzzz")
	waitFor(t, func() bool { return sug.callCount() == 2 })
	waitFor(t, func() bool {
		snap := c.Snapshot()
		return !snap.SuggestionsVisible && len(snap.Suggestions) == 0
	})
}

func TestStaleSuggestionResponseDiscarded(t *testing.T) {
	sug := newStubSuggester()
	sug.started = make(chan string, 2)
	sug.gates["Lon"] = make(chan struct{})
	sug.results["Lon"] = []meteo.PlaceCandidate{{Name: "Lon-stale", Country: "XX"}}
	sug.results["London"] = []meteo.PlaceCandidate{{Name: "London", Country: "GB"}}
	c := newTestController(sug, newStubLookup())
	defer c.Close()

	c.SetQuery("Lon")
	if got := <-sug.started; got != "Lon" {
		t.Fatalf("first fetch = %q, want Lon", got)
	}

	// Newer query completes first.
	c.SetQuery("London")
	if got := <-sug.started; got != "London" {
		t.Fatalf("second fetch = %q, want London", got)
	}
	waitFor(t, func() bool {
		snap := c.Snapshot()
		return len(snap.Suggestions) == 1 && snap.Suggestions[0].Name == "London"
	})

	// The stale "Lon" response arrives afterwards and must not overwrite.
	close(sug.gates["Lon"])
	time.Sleep(10 * testDebounce)

	snap := c.Snapshot()
	if len(snap.Suggestions) != 1 || snap.Suggestions[0].Name != "London" {
		t.Fatalf("stale response overwrote fresh suggestions: %+v", snap.Suggestions)
	}
}

func TestSubmitBlankQueryIsNoop(t *testing.T) {
	lookup := newStubLookup()
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	c.SetQuery("   ")
	c.Submit()
	time.Sleep(10 * testDebounce)

	if n := lookup.callCount(); n != 0 {
		t.Fatalf("expected no lookups for blank query, got %d", n)
	}
	if c.Snapshot().ForecastLoading {
		t.Error("loading flag set for blank submit")
	}
}

func TestSubmitSuccess(t *testing.T) {
	lookup := newStubLookup()
	lookup.setForecast("Paris", 18)
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	submitAndWait(t, c, lookup, "Paris")

	snap := c.Snapshot()
	if snap.Forecast == nil || snap.Forecast.Location.Name != "Paris" {
		t.Fatalf("forecast = %+v", snap.Forecast)
	}
	if snap.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", snap.ErrorMessage)
	}
	if len(snap.RecentSearches) != 1 || snap.RecentSearches[0] != "Paris" {
		t.Errorf("recents = %v, want [Paris]", snap.RecentSearches)
	}
}

func TestSubmitFailureClearsForecast(t *testing.T) {
	lookup := newStubLookup()
	lookup.setForecast("Paris", 18)
	lookup.errs["Zzxyqq"] = &meteo.NotFoundError{
		Message: "City not found. Please check the spelling and try again.",
	}
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	submitAndWait(t, c, lookup, "Paris")
	submitAndWait(t, c, lookup, "Zzxyqq")

	snap := c.Snapshot()
	if snap.Forecast != nil {
		t.Error("forecast should be cleared on failure")
	}
	if snap.ErrorMessage != "City not found. Please check the spelling and try again." {
		t.Errorf("error message = %q", snap.ErrorMessage)
	}
	// Failed submissions never enter the recent list.
	if len(snap.RecentSearches) != 1 || snap.RecentSearches[0] != "Paris" {
		t.Errorf("recents = %v, want [Paris]", snap.RecentSearches)
	}
}

func TestForecastAndErrorAreMutuallyExclusive(t *testing.T) {
	lookup := newStubLookup()
	lookup.setForecast("Paris", 18)
	lookup.errs["Nope"] = &meteo.ProviderError{Reason: "Failed to fetch weather data"}
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	submitAndWait(t, c, lookup, "Nope")
	snap := c.Snapshot()
	if snap.Forecast != nil && snap.ErrorMessage != "" {
		t.Fatal("forecast and error present simultaneously")
	}

	submitAndWait(t, c, lookup, "Paris")
	snap = c.Snapshot()
	if snap.Forecast == nil || snap.ErrorMessage != "" {
		t.Fatalf("forecast = %v, error = %q", snap.Forecast, snap.ErrorMessage)
	}
}

func TestRecentSearchesDeduplicated(t *testing.T) {
	lookup := newStubLookup()
	lookup.setForecast("Paris", 18)
	lookup.setForecast("Oslo", 4)
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	submitAndWait(t, c, lookup, "Paris")
	submitAndWait(t, c, lookup, "Oslo")
	submitAndWait(t, c, lookup, "Paris")

	snap := c.Snapshot()
	want := []string{"Paris", "Oslo"}
	if len(snap.RecentSearches) != len(want) {
		t.Fatalf("recents = %v, want %v", snap.RecentSearches, want)
	}
	for i := range want {
		if snap.RecentSearches[i] != want[i] {
			t.Fatalf("recents = %v, want %v", snap.RecentSearches, want)
		}
	}
}

func TestRecentSearchesCappedAtFive(t *testing.T) {
	lookup := newStubLookup()
	cities := []string{"Paris", "Oslo", "Lima", "Rome", "Cairo", "Tokyo"}
	for _, city := range cities {
		lookup.setForecast(city, 10)
	}
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	for _, city := range cities {
		submitAndWait(t, c, lookup, city)
	}

	snap := c.Snapshot()
	want := []string{"Tokyo", "Cairo", "Rome", "Lima", "Oslo"}
	if len(snap.RecentSearches) != 5 {
		t.Fatalf("recents = %v, want 5 entries", snap.RecentSearches)
	}
	for i := range want {
		if snap.RecentSearches[i] != want[i] {
			t.Fatalf("recents = %v, want %v", snap.RecentSearches, want)
		}
	}
}

func TestSelectSuggestionComposesQueryAndSubmits(t *testing.T) {
	sug := newStubSuggester()
	sug.results["Par"] = []meteo.PlaceCandidate{{Name: "Paris", Country: "FR"}}
	lookup := newStubLookup()
	lookup.setForecast("Paris, FR", 18)
	c := newTestController(sug, lookup)
	defer c.Close()

	c.SetQuery("Par")
	waitFor(t, func() bool { return c.Snapshot().SuggestionsVisible })

	if err := c.SelectSuggestion(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := c.Snapshot()
	if snap.Query != "Paris, FR" {
		t.Errorf("query = %q, want %q", snap.Query, "Paris, FR")
	}
	if snap.SuggestionsVisible {
		t.Error("suggestions still visible after selection")
	}

	waitFor(t, func() bool {
		snap := c.Snapshot()
		return snap.Forecast != nil && !snap.ForecastLoading
	})
	if got := c.Snapshot().RecentSearches[0]; got != "Paris, FR" {
		t.Errorf("recent = %q, want %q", got, "Paris, FR")
	}
}

func TestSelectSuggestionOutOfRange(t *testing.T) {
	c := newTestController(newStubSuggester(), newStubLookup())
	defer c.Close()

	if err := c.SelectSuggestion(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestSelectRecentResubmits(t *testing.T) {
	lookup := newStubLookup()
	lookup.setForecast("Paris", 18)
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	submitAndWait(t, c, lookup, "Paris")

	before := lookup.callCount()
	if err := c.SelectRecent(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return lookup.callCount() > before })

	if got := c.Snapshot().Query; got != "Paris" {
		t.Errorf("query = %q, want Paris", got)
	}
}

func TestStaleForecastResponseDiscarded(t *testing.T) {
	lookup := newStubLookup()
	lookup.started = make(chan string, 2)
	lookup.gates["Slowtown"] = make(chan struct{})
	lookup.setForecast("Slowtown", 1)
	lookup.setForecast("Fastville", 2)
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	c.SetQuery("Slowtown")
	c.Submit()
	if got := <-lookup.started; got != "Slowtown" {
		t.Fatalf("first lookup = %q", got)
	}

	c.SetQuery("Fastville")
	c.Submit()
	if got := <-lookup.started; got != "Fastville" {
		t.Fatalf("second lookup = %q", got)
	}
	waitFor(t, func() bool {
		snap := c.Snapshot()
		return snap.Forecast != nil && snap.Forecast.Location.Name == "Fastville"
	})

	close(lookup.gates["Slowtown"])
	time.Sleep(10 * testDebounce)

	snap := c.Snapshot()
	if snap.Forecast.Location.Name != "Fastville" {
		t.Fatalf("stale forecast overwrote fresh one: %+v", snap.Forecast.Location)
	}
	if len(snap.RecentSearches) != 1 || snap.RecentSearches[0] != "Fastville" {
		t.Errorf("recents = %v, want [Fastville]", snap.RecentSearches)
	}
}

func TestRefreshNoopBeforeFirstSuccess(t *testing.T) {
	lookup := newStubLookup()
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	c.Refresh()
	if n := lookup.callCount(); n != 0 {
		t.Fatalf("expected no lookups, got %d", n)
	}
}

func TestRefreshUpdatesForecastSilently(t *testing.T) {
	lookup := newStubLookup()
	lookup.setForecast("Paris", 18)
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	submitAndWait(t, c, lookup, "Paris")

	lookup.setForecast("Paris", 21)
	c.Refresh()

	snap := c.Snapshot()
	if snap.Forecast.Current.Temperature != 21 {
		t.Errorf("temperature = %v, want refreshed 21", snap.Forecast.Current.Temperature)
	}
	if snap.ForecastLoading {
		t.Error("refresh must not toggle the loading flag")
	}
}

func TestRefreshKeepsLastGoodForecastOnFailure(t *testing.T) {
	lookup := newStubLookup()
	lookup.setForecast("Paris", 18)
	c := newTestController(newStubSuggester(), lookup)
	defer c.Close()

	submitAndWait(t, c, lookup, "Paris")

	lookup.mu.Lock()
	lookup.errs["Paris"] = &meteo.ProviderError{Reason: "Failed to fetch weather data"}
	lookup.mu.Unlock()

	c.Refresh()

	snap := c.Snapshot()
	if snap.Forecast == nil || snap.Forecast.Current.Temperature != 18 {
		t.Errorf("forecast = %+v, want last good kept", snap.Forecast)
	}
	if snap.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty after failed background refresh", snap.ErrorMessage)
	}
}
