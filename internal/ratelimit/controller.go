package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultBaseInterval = 3 * time.Second
	defaultMaxInterval  = 30 * time.Second
	defaultGrowEvery    = 10
	defaultGrowthFactor = 1.5
)

// Controller enforces a minimum interval between requests to a single host and
// slowly widens that interval the longer a run goes on. It is not safe for
// concurrent use; the batch runs on one goroutine.
type Controller struct {
	name         string
	clock        Clock
	baseInterval time.Duration
	maxInterval  time.Duration
	growEvery    int
	growthFactor float64

	// state
	requestCount    int
	lastRequestTime time.Time
	interval        time.Duration
	totalWait       time.Duration
}

// ControllerOption is a functional option for configuring the Controller.
type ControllerOption func(*Controller)

// WithBaseInterval sets the starting minimum interval.
func WithBaseInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.baseInterval = d
		}
	}
}

// WithMaxInterval caps the interval.
func WithMaxInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.maxInterval = d
		}
	}
}

// WithGrowth sets how often (in requests) the interval grows and by how much.
func WithGrowth(every int, factor float64) ControllerOption {
	return func(c *Controller) {
		if every > 0 {
			c.growEvery = every
		}
		if factor >= 1 {
			c.growthFactor = factor
		}
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewController creates a Controller. The first request is measured from the
// moment of construction.
func NewController(name string, opts ...ControllerOption) *Controller {
	c := &Controller{
		name:         name,
		clock:        SystemClock{},
		baseInterval: defaultBaseInterval,
		maxInterval:  defaultMaxInterval,
		growEvery:    defaultGrowEvery,
		growthFactor: defaultGrowthFactor,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseInterval > c.maxInterval {
		c.baseInterval = c.maxInterval
	}
	c.interval = c.baseInterval
	c.lastRequestTime = c.clock.Now()
	return c
}

// Wait blocks until the current minimum interval has passed since the previous
// request, then registers a new request. Every growEvery-th request multiplies
// the interval by the growth factor, up to the maximum.
func (c *Controller) Wait(ctx context.Context) error {
	wait := c.interval - c.clock.Now().Sub(c.lastRequestTime)
	if wait > 0 {
		slog.Debug("Throttling request", "limiter", c.name, "wait", wait)
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("rate limit wait for %s: %w", c.name, err)
		}
		c.totalWait += wait
	}

	c.lastRequestTime = c.clock.Now()
	c.requestCount++

	if c.requestCount%c.growEvery == 0 {
		c.setInterval(scale(c.interval, c.growthFactor))
		slog.Info("Raised request interval",
			"limiter", c.name,
			"requests", c.requestCount,
			"interval", c.interval,
		)
	}
	return nil
}

// Escalate multiplies the interval by factor, capped at the maximum. The
// retrieval loop calls it after the site pushes back.
func (c *Controller) Escalate(factor float64) {
	if factor < 1 {
		return
	}
	c.setInterval(scale(c.interval, factor))
	slog.Debug("Escalated request interval", "limiter", c.name, "interval", c.interval)
}

// Interval returns the current minimum interval.
func (c *Controller) Interval() time.Duration { return c.interval }

// RequestCount returns the number of registered requests.
func (c *Controller) RequestCount() int { return c.requestCount }

// TotalWait returns the cumulative time spent waiting in Wait.
func (c *Controller) TotalWait() time.Duration { return c.totalWait }

// MaxInterval returns the configured cap.
func (c *Controller) MaxInterval() time.Duration { return c.maxInterval }

// Name returns the name of this controller.
func (c *Controller) Name() string { return c.name }

func (c *Controller) setInterval(d time.Duration) {
	if d > c.maxInterval {
		d = c.maxInterval
	}
	c.interval = d
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}
