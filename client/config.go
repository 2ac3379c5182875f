package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/sample"
)

const (
	// DefaultStatusPort is the controller port answering status queries.
	DefaultStatusPort = 1000
	// DefaultCommandPort is the controller port accepting commands.
	DefaultCommandPort = 10000
)

// Config represents the configuration of a Client.
type Config struct {
	host        string
	statusPort  int
	commandPort int

	// connectTimeout bounds each dial. Defaults to 3 seconds.
	connectTimeout time.Duration

	// replyTimeout bounds one request/reply round trip. Defaults to 5 seconds.
	replyTimeout time.Duration

	// pollInterval is the status poll period. Defaults to 200 milliseconds.
	pollInterval time.Duration

	// stalenessBound is the age after which the latest snapshot is stale. Defaults to 2 seconds.
	stalenessBound time.Duration

	// failureThreshold is the number of failed polls that triggers a reconnect. Defaults to 3.
	failureThreshold int

	// trajectoryTimeout is the run deadline of a trajectory. Defaults to 120 seconds.
	trajectoryTimeout time.Duration

	// barcodeTTL is how long a barcode resolution is cached. Defaults to 30 seconds.
	barcodeTTL time.Duration

	// readonly rejects trajectories and general commands. Defaults to true.
	readonly bool

	// autoToolChange mounts the tool a trajectory needs before submitting it. Defaults to false.
	autoToolChange bool

	layout  sample.Layout
	reasons *protocol.ReasonRegistry
	logger  logger.Logger
}

// NewConfig creates a client configuration for the controller at host.
func NewConfig(host string, opts ...Option) (*Config, error) {
	if host == "" {
		return nil, errors.New("host is empty")
	}

	cfg := &Config{
		host:              host,
		statusPort:        DefaultStatusPort,
		commandPort:       DefaultCommandPort,
		connectTimeout:    3 * time.Second,
		replyTimeout:      5 * time.Second,
		pollInterval:      200 * time.Millisecond,
		stalenessBound:    2 * time.Second,
		failureThreshold:  3,
		trajectoryTimeout: 120 * time.Second,
		barcodeTTL:        30 * time.Second,
		readonly:          true,
		layout:            sample.DefaultLayout,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Host returns the controller host.
func (cfg *Config) Host() string {
	return cfg.host
}

// StalenessBound returns the age after which the latest snapshot is stale.
func (cfg *Config) StalenessBound() time.Duration {
	return cfg.stalenessBound
}

// Readonly reports whether commands are rejected.
func (cfg *Config) Readonly() bool {
	return cfg.readonly
}

// AutoToolChange reports whether trajectories change the mounted tool first.
func (cfg *Config) AutoToolChange() bool {
	return cfg.autoToolChange
}

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := o.applyFunc(cfg); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.New("port is out of range [1, 65535]")
	}

	return nil
}

// WithStatusPort sets the status channel port.
//
// The default value is 1000.
func WithStatusPort(port int) Option {
	return newOptFunc("WithStatusPort", func(cfg *Config) error {
		if err := validPort(port); err != nil {
			return err
		}
		cfg.statusPort = port

		return nil
	})
}

// WithCommandPort sets the command channel port.
//
// The default value is 10000.
func WithCommandPort(port int) Option {
	return newOptFunc("WithCommandPort", func(cfg *Config) error {
		if err := validPort(port); err != nil {
			return err
		}
		cfg.commandPort = port

		return nil
	})
}

// WithConnectTimeout sets the dial timeout of both channels.
// The range is checked by the transport package.
//
// The default value is 3 seconds.
func WithConnectTimeout(d time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		cfg.connectTimeout = d
		return nil
	})
}

// WithReplyTimeout sets the round trip timeout of both channels.
// The range is checked by the transport package.
//
// The default value is 5 seconds.
func WithReplyTimeout(d time.Duration) Option {
	return newOptFunc("WithReplyTimeout", func(cfg *Config) error {
		cfg.replyTimeout = d
		return nil
	})
}

// WithPollInterval sets the status poll period.
//
// The default value is 200 milliseconds.
func WithPollInterval(d time.Duration) Option {
	return newOptFunc("WithPollInterval", func(cfg *Config) error {
		cfg.pollInterval = d
		return nil
	})
}

// WithStalenessBound sets the age after which the latest snapshot is reported stale.
// It must be longer than the poll interval.
//
// The default value is 2 seconds.
func WithStalenessBound(d time.Duration) Option {
	return newOptFunc("WithStalenessBound", func(cfg *Config) error {
		if d <= 0 {
			return errors.New("staleness bound must be positive")
		}
		cfg.stalenessBound = d

		return nil
	})
}

// WithFailureThreshold sets how many consecutive failed polls trigger a reconnect.
//
// The default value is 3.
func WithFailureThreshold(n int) Option {
	return newOptFunc("WithFailureThreshold", func(cfg *Config) error {
		cfg.failureThreshold = n
		return nil
	})
}

// WithTrajectoryTimeout sets the run deadline of trajectories.
//
// The default value is 120 seconds.
func WithTrajectoryTimeout(d time.Duration) Option {
	return newOptFunc("WithTrajectoryTimeout", func(cfg *Config) error {
		cfg.trajectoryTimeout = d
		return nil
	})
}

// WithBarcodeTTL sets how long barcode resolutions are cached.
//
// The default value is 30 seconds.
func WithBarcodeTTL(d time.Duration) Option {
	return newOptFunc("WithBarcodeTTL", func(cfg *Config) error {
		cfg.barcodeTTL = d
		return nil
	})
}

// WithLayout sets the dewar layout.
//
// The default value is sample.DefaultLayout.
func WithLayout(layout sample.Layout) Option {
	return newOptFunc("WithLayout", func(cfg *Config) error {
		if err := layout.Validate(); err != nil {
			return err
		}
		cfg.layout = layout

		return nil
	})
}

// WithReadonly sets whether the client refuses to send commands.
//
// The default value is true.
func WithReadonly(readonly bool) Option {
	return newOptFunc("WithReadonly", func(cfg *Config) error {
		cfg.readonly = readonly
		return nil
	})
}

// WithAutoToolChange sets whether Submit first runs a tool change when the
// trajectory needs a tool other than the mounted one.
//
// The default value is false.
func WithAutoToolChange(enabled bool) Option {
	return newOptFunc("WithAutoToolChange", func(cfg *Config) error {
		cfg.autoToolChange = enabled
		return nil
	})
}

// WithReasons sets the registry classifying controller rejections, for firmware
// with rejection messages of its own.
func WithReasons(r *protocol.ReasonRegistry) Option {
	return newOptFunc("WithReasons", func(cfg *Config) error {
		if r == nil {
			return errors.New("reason registry is nil")
		}
		cfg.reasons = r

		return nil
	})
}

// WithLogger sets the logger of the client and its components.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
