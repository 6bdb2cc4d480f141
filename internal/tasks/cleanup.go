// Package tasks schedules the recurring maintenance jobs.  The only job at
// the moment is the expired-token reaper, which keeps the token tables from
// accumulating dead rows.  Expired tokens are already unusable, so a failed
// or missed run costs nothing but storage; the next tick simply tries again.
package tasks

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/iliyamo/online-cinema/internal/service"
)

// TokenReaper purges expired rows from the activation, password reset and
// refresh token stores.
type TokenReaper struct {
	Activation service.TokenStore
	Reset      service.TokenStore
	Refresh    service.TokenStore
}

// Start registers the hourly sweep on a new scheduler and launches it in
// the background.  The returned scheduler can be stopped on shutdown.
func (r *TokenReaper) Start() *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(1).Hour().Do(r.RunOnce); err != nil {
		log.Printf("token-reaper: schedule failed: %v", err)
	}
	s.StartAsync()
	return s
}

// RunOnce performs a single sweep over the three stores.  Each store is
// swept independently so one failing table does not block the others; the
// run is safe to execute concurrently with request traffic since the
// deletes are keyed by expiry predicates only.
func (r *TokenReaper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores := []struct {
		name  string
		store service.TokenStore
	}{
		{"activation", r.Activation},
		{"password_reset", r.Reset},
		{"refresh", r.Refresh},
	}

	for _, s := range stores {
		n, err := s.store.DeleteExpired(ctx)
		if err != nil {
			log.Printf("token-reaper: sweep of %s tokens failed: %v", s.name, err)
			continue
		}
		if n > 0 {
			log.Printf("token-reaper: removed %d expired %s tokens", n, s.name)
		}
	}
}
