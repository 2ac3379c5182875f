package barcode

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/sample"
	"github.com/arloliu/go-asc/status"
)

type config struct {
	// ttl is how long a resolution is served from the cache. Defaults to 30 seconds.
	ttl time.Duration

	layout sample.Layout
	states *status.Cache
	logger logger.Logger
	now    func() time.Time
}

func defaultConfig() *config {
	return &config{
		ttl:    30 * time.Second,
		layout: sample.DefaultLayout,
		logger: logger.GetLogger(),
		now:    time.Now,
	}
}

// Option represents a functional option for configuring a Cache.
type Option interface {
	apply(*config) error
}

type optFunc struct {
	name      string
	applyFunc func(*config) error
}

func (o *optFunc) apply(cfg *config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := o.applyFunc(cfg); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newOptFunc(name string, f func(*config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithTTL sets how long a resolution stays valid. It should be between 1 millisecond and 1 day.
//
// The default value is 30 seconds.
func WithTTL(d time.Duration) Option {
	return newOptFunc("WithTTL", func(cfg *config) error {
		if d < time.Millisecond || d > 24*time.Hour {
			return errors.New("ttl is out of range [1ms, 24h]")
		}
		cfg.ttl = d

		return nil
	})
}

// WithLayout sets the dewar layout used to decode the datamatrix table.
func WithLayout(layout sample.Layout) Option {
	return newOptFunc("WithLayout", func(cfg *config) error {
		if err := layout.Validate(); err != nil {
			return err
		}
		cfg.layout = layout

		return nil
	})
}

// WithStatus lets the cache prefer pucks reported present in the latest snapshot
// when a code appears more than once in the datamatrix table.
func WithStatus(states *status.Cache) Option {
	return newOptFunc("WithStatus", func(cfg *config) error {
		cfg.states = states
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

func withClock(now func() time.Time) Option {
	return newOptFunc("withClock", func(cfg *config) error {
		cfg.now = now
		return nil
	})
}
