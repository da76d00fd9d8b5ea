// Package refresh periodically re-runs the last successful search of every
// live session so a long-open view does not go stale.
package refresh

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"weathernow/internal/search"
	"weathernow/internal/session"
)

// Refresher schedules the periodic forecast refresh job.
type Refresher struct {
	scheduler *gocron.Scheduler
	sessions  *session.Store
	interval  time.Duration
}

// New creates a Refresher. An interval of zero disables it.
func New(sessions *session.Store, interval time.Duration) *Refresher {
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		sessions:  sessions,
		interval:  interval,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (r *Refresher) Start() error {
	if r.interval <= 0 {
		log.Println("refresh: disabled; no interval configured")
		return nil
	}

	_, err := r.scheduler.Every(r.interval).Do(func() {
		refreshed := 0
		r.sessions.Each(func(id string, c *search.Controller) {
			c.Refresh()
			refreshed++
		})
		if refreshed > 0 {
			log.Printf("refresh: completed forecast refresh for %d sessions", refreshed)
		}
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}
