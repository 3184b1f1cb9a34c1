package goalarm

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// poller options
	evPollSize int

	// dispatcher options
	armLeeway time.Duration

	logger *zap.SugaredLogger
}

type Option func(*Options)

func setOptions(optL ...Option) *Options {
	//= default options
	opts := &Options{
		evPollSize: 8,
		armLeeway:  time.Microsecond,
	}
	for _, opt := range optL {
		opt(opts)
	}
	if opts.logger == nil {
		opts.logger = newLogger(zapcore.WarnLevel)
	}
	return opts
}

// EvPollSize sets how many ready events one epoll_wait round retrieves.
// The service only ever watches a couple of fds, so the default is small.
func EvPollSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.evPollSize = n
		}
	}
}

// ArmLeeway is added to every relative timerfd arm so microsecond truncation
// can never make the countdown expire before the true deadline. A tuning
// knob, not a correctness requirement.
func ArmLeeway(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.armLeeway = d
		}
	}
}

// Logger replaces the default warn-level console logger.
func Logger(l *zap.SugaredLogger) Option {
	return func(o *Options) {
		o.logger = l
	}
}
