package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler owns the periodic background jobs. Every job gets a cancellable
// handle, and Stop tears all of them down.
type Scheduler struct {
	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Every runs fn on a fixed interval until the returned cancel func or Stop is
// called. The first run happens after one interval, not immediately.
func (s *Scheduler) Every(interval time.Duration, name string, fn func(ctx context.Context)) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Debug().Str("job", name).Msg("Scheduler job stopped")
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()

	log.Info().Str("job", name).Dur("interval", interval).Msg("Scheduler job started")
	return cancel
}

// Stop cancels all jobs and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.mu.Unlock()
	s.wg.Wait()
}
