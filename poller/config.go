package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/sample"
	"github.com/arloliu/go-asc/status"
)

// ErrConfigNil is returned when an option is applied to a nil config.
var ErrConfigNil = errors.New("poller config is nil")

type config struct {
	// interval between the start of two cycles. Defaults to 200 milliseconds.
	interval time.Duration

	// failureThreshold is the number of consecutive failed cycles that triggers
	// a reconnect. Defaults to 3.
	failureThreshold int

	decoder *status.Decoder
	logger  logger.Logger
	now     func() time.Time
}

func defaultConfig() *config {
	return &config{
		interval:         200 * time.Millisecond,
		failureThreshold: 3,
		decoder:          status.NewDecoder(sample.DefaultLayout),
		logger:           logger.GetLogger(),
		now:              time.Now,
	}
}

// Option represents a functional option for configuring a Poller.
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

// WithInterval sets the poll interval. It should be between 10 milliseconds and 1 minute.
//
// The default value is 200 milliseconds.
func WithInterval(d time.Duration) Option {
	return newOptFunc("WithInterval", func(cfg *config) error {
		if d < 10*time.Millisecond || d > time.Minute {
			return errors.New("interval is out of range [10ms, 1m]")
		}
		cfg.interval = d

		return nil
	})
}

// WithFailureThreshold sets how many consecutive failed cycles trigger a reconnect.
//
// The default value is 3.
func WithFailureThreshold(n int) Option {
	return newOptFunc("WithFailureThreshold", func(cfg *config) error {
		if n < 1 || n > 1000 {
			return errors.New("failure threshold is out of range [1, 1000]")
		}
		cfg.failureThreshold = n

		return nil
	})
}

// WithDecoder sets the decoder, for dewars that don't use the default layout.
func WithDecoder(d *status.Decoder) Option {
	return newOptFunc("WithDecoder", func(cfg *config) error {
		if d == nil {
			return errors.New("decoder is nil")
		}
		cfg.decoder = d

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

// withClock replaces the capture time source in tests.
func withClock(now func() time.Time) Option {
	return newOptFunc("withClock", func(cfg *config) error {
		cfg.now = now
		return nil
	})
}
