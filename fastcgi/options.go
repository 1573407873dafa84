package fastcgi

import (
	"time"

	"github.com/fcgicore/fastcgi/fcgilog"
	"github.com/fcgicore/fastcgi/record"
	"github.com/sirupsen/logrus"
)

// Config holds the tunables for a Client's dispatcher and its pending
// requests. New starts from DefaultConfig and applies each Option on top
// of it.
type Config struct {
	// Logger receives per-record diagnostic entries. Defaults to a
	// discarding logger; injected, never a package-level global.
	Logger logrus.FieldLogger

	// Padding is applied to every outgoing frame. Defaults to
	// record.AutomaticPadding{}.
	Padding record.Padding

	// SendChannelLimit bounds the dispatcher's command, management and
	// application send queues.
	SendChannelLimit int

	// RecvChannelLimit bounds each pending request's inbound frame
	// channel.
	RecvChannelLimit int

	// MaxStreamPayloadSize caps a single response stream's accumulated
	// size (0 means defrag.DefaultMaxSize).
	MaxStreamPayloadSize int64

	// Timeout bounds how long a single Send's response may take to
	// arrive, measured from Send's call time.
	Timeout time.Duration

	// YieldSenderAfter is how many application frames the dispatcher
	// sends in a row before yielding to give other work a turn.
	YieldSenderAfter int
}

// Option mutates a Config under construction.
type Option func(*Config)

// DefaultConfig returns the Config used when no options are given,
// grounded on the reference client's defaults: 32-deep queues, 64 MiB
// stream cap, a 60 second per-request timeout and automatic padding.
func DefaultConfig() Config {
	return Config{
		Logger:               fcgilog.Discard(),
		Padding:              record.AutomaticPadding{},
		SendChannelLimit:     32,
		RecvChannelLimit:     32,
		MaxStreamPayloadSize: 0,
		Timeout:              60 * time.Second,
		YieldSenderAfter:     32,
	}
}

// WithLogger overrides the Client's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithPadding overrides the Client's outgoing padding policy.
func WithPadding(p record.Padding) Option {
	return func(c *Config) { c.Padding = p }
}

// WithSendChannelLimit overrides the dispatcher's queue depth.
func WithSendChannelLimit(n int) Option {
	return func(c *Config) { c.SendChannelLimit = n }
}

// WithRecvChannelLimit overrides a pending request's inbound channel
// depth.
func WithRecvChannelLimit(n int) Option {
	return func(c *Config) { c.RecvChannelLimit = n }
}

// WithMaxStreamPayloadSize overrides the response stream accumulation
// cap.
func WithMaxStreamPayloadSize(n int64) Option {
	return func(c *Config) { c.MaxStreamPayloadSize = n }
}

// WithTimeout overrides how long a Send may wait for its response.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithYieldSenderAfter overrides the dispatcher's cooperative yield
// threshold.
func WithYieldSenderAfter(n int) Option {
	return func(c *Config) { c.YieldSenderAfter = n }
}
