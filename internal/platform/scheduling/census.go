// Package scheduling runs periodic ward jobs on a cron schedule.
package scheduling

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ehr/bedtracker/internal/domain/bed"
)

// CensusSource produces a head count of the ward.
type CensusSource interface {
	Census() bed.Census
}

// OccupancyPublisher receives the census result, typically the metrics
// collector.
type OccupancyPublisher interface {
	Occupancy(occupied, total int)
}

// Census logs a ward census and refreshes occupancy gauges on a cron
// schedule.
type Census struct {
	cron   *cron.Cron
	src    CensusSource
	pub    OccupancyPublisher
	logger zerolog.Logger
	runs   atomic.Int64
}

// NewCensus registers the census job under schedule, a standard cron expression
// or descriptor such as "@every 15m". pub may be nil.
func NewCensus(schedule string, src CensusSource, pub OccupancyPublisher, logger zerolog.Logger) (*Census, error) {
	c := &Census{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		src:    src,
		pub:    pub,
		logger: logger.With().Str("job", "census").Logger(),
	}
	if _, err := c.cron.AddFunc(schedule, c.Run); err != nil {
		return nil, fmt.Errorf("census schedule %q: %w", schedule, err)
	}
	return c, nil
}

func (c *Census) Start() {
	c.cron.Start()
	c.logger.Info().Msg("census scheduler started")
}

// Stop halts the scheduler and waits for a running census to finish, or for
// ctx to expire.
func (c *Census) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		c.logger.Info().Int64("runs", c.runs.Load()).Msg("census scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run takes one census.
func (c *Census) Run() {
	census := c.src.Census()
	c.runs.Add(1)

	if c.pub != nil {
		c.pub.Occupancy(census.OccupiedBeds, census.TotalBeds)
	}

	per := zerolog.Dict()
	for service, n := range census.OccupiedPerService {
		per = per.Int(service, n)
	}
	c.logger.Info().
		Int("occupied_beds", census.OccupiedBeds).
		Int("total_beds", census.TotalBeds).
		Float64("occupancy_rate", census.OccupancyRate).
		Dict("occupied_per_service", per).
		Msg("ward census")
}

// Runs reports how many censuses have been taken.
func (c *Census) Runs() int64 {
	return c.runs.Load()
}
