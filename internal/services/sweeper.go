package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweepable is a store that can drop records from completed days.
type Sweepable interface {
	DeleteBefore(ctx context.Context, day string) error
}

// Sweeper is the midnight reset: all pairing-scoped records are ephemeral
// and get wiped once their day is over everywhere. Users and ratings persist.
type Sweeper struct {
	stores []Sweepable
	now    Clock
}

// NewSweeper creates a sweeper over the given stores.
func NewSweeper(now Clock, stores ...Sweepable) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{stores: stores, now: now}
}

// Sweep deletes every record whose day key is behind the current day in the
// most-behind timezone, so no zone still living that day loses data. Pure
// delete-if-exists, safe to run concurrently from multiple instances.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.CutoffDay()
	for _, store := range s.stores {
		if err := store.DeleteBefore(ctx, cutoff); err != nil {
			log.Error().Err(err).Str("cutoff", cutoff).Msg("Midnight sweep failed")
		}
	}
	log.Debug().Str("cutoff", cutoff).Msg("Midnight sweep done")
}

// CutoffDay is today's day key in UTC-12, the last timezone to leave any
// given calendar day.
func (s *Sweeper) CutoffDay() string {
	return DayKey(s.now(), time.FixedZone("UTC-12", -12*60*60))
}
