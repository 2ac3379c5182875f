package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-asc/logger"
)

// Config represents the configuration of a controller connection.
type Config struct {
	// host specifies the host of the controller.
	host string

	// port specifies the TCP port of the controller channel.
	port int

	// connectTimeout bounds each dial. It should be between 100 milliseconds and 30 seconds.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// replyTimeout bounds the wait for one reply. It should be between 50 milliseconds and 120 seconds.
	// Defaults to 5 seconds.
	replyTimeout time.Duration

	// writeTimeout bounds writing one frame.
	// Defaults to 5 seconds.
	writeTimeout time.Duration

	// maxFrameSize is the longest reply line accepted, in bytes.
	// Defaults to 8 KiB.
	maxFrameSize int

	// drainWindow is how long stray bytes are read and discarded after a timed out request.
	// Defaults to 20 milliseconds.
	drainWindow time.Duration

	logger logger.Logger
}

// NewConfig creates a connection configuration for host:port with the given options applied
// on top of the defaults.
func NewConfig(host string, port int, opts ...Option) (*Config, error) {
	cfg := &Config{
		connectTimeout: 3 * time.Second,
		replyTimeout:   5 * time.Second,
		writeTimeout:   5 * time.Second,
		maxFrameSize:   8 * 1024,
		drainWindow:    20 * time.Millisecond,
		logger:         logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Addr returns the host:port the transport dials.
func (cfg *Config) Addr() string {
	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

func (cfg *Config) ReplyTimeout() time.Duration {
	return cfg.replyTimeout
}

func (cfg *Config) Logger() logger.Logger {
	return cfg.logger
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

// withHost validates the host syntax. Names are not resolved here; resolution
// failures surface as connection errors when dialing.
func withHost(host string) Option {
	return newOptFunc("withHost", func(cfg *Config) error {
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		host = strings.Trim(host, ".")
		if !validHostname(host) {
			return errors.New("invalid host")
		}
		cfg.host = host

		return nil
	})
}

func validHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}

	return true
}

func withPort(port int) Option {
	return newOptFunc("withPort", func(cfg *Config) error {
		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithConnectTimeout sets the dial timeout.
//
// The default value is 3 seconds.
func WithConnectTimeout(d time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		if d < 100*time.Millisecond || d > 30*time.Second {
			return errors.New("connect timeout is out of range [100ms, 30s]")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithReplyTimeout sets how long a request waits for its reply.
//
// The default value is 5 seconds.
func WithReplyTimeout(d time.Duration) Option {
	return newOptFunc("WithReplyTimeout", func(cfg *Config) error {
		if d < 50*time.Millisecond || d > 120*time.Second {
			return errors.New("reply timeout is out of range [50ms, 120s]")
		}
		cfg.replyTimeout = d

		return nil
	})
}

// WithWriteTimeout sets the deadline for writing one frame.
//
// The default value is 5 seconds.
func WithWriteTimeout(d time.Duration) Option {
	return newOptFunc("WithWriteTimeout", func(cfg *Config) error {
		if d <= 0 || d > 60*time.Second {
			return errors.New("write timeout is out of range (0, 60s]")
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithMaxFrameSize sets the longest accepted reply line.
//
// The default value is 8 KiB.
func WithMaxFrameSize(size int) Option {
	return newOptFunc("WithMaxFrameSize", func(cfg *Config) error {
		if size < 16 || size > 1<<20 {
			return errors.New("max frame size is out of range [16, 1MiB]")
		}
		cfg.maxFrameSize = size

		return nil
	})
}

// WithDrainWindow sets how long late bytes are discarded after a timed out request.
//
// The default value is 20 milliseconds.
func WithDrainWindow(d time.Duration) Option {
	return newOptFunc("WithDrainWindow", func(cfg *Config) error {
		if d <= 0 || d > time.Second {
			return errors.New("drain window is out of range (0, 1s]")
		}
		cfg.drainWindow = d

		return nil
	})
}

// WithLogger sets the logger of the transport.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
