package trajectory

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/protocol"
)

type config struct {
	// timeout is the run deadline, counted from the acknowledgement. Defaults to 120 seconds.
	timeout time.Duration

	reasons *protocol.ReasonRegistry
	logger  logger.Logger
	now     func() time.Time
}

func defaultConfig() *config {
	return &config{
		timeout: 120 * time.Second,
		logger:  logger.GetLogger(),
		now:     time.Now,
	}
}

// Option represents a functional option for configuring a Controller.
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

// WithTimeout sets the run deadline. It should be between 10 milliseconds and 1 hour.
//
// The default value is 120 seconds.
func WithTimeout(d time.Duration) Option {
	return newOptFunc("WithTimeout", func(cfg *config) error {
		if d < 10*time.Millisecond || d > time.Hour {
			return errors.New("timeout is out of range [10ms, 1h]")
		}
		cfg.timeout = d

		return nil
	})
}

// WithReasons sets the registry used to classify rejections.
//
// The default is the package-level registry of the protocol package.
func WithReasons(r *protocol.ReasonRegistry) Option {
	return newOptFunc("WithReasons", func(cfg *config) error {
		if r == nil {
			return errors.New("reason registry is nil")
		}
		cfg.reasons = r

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
