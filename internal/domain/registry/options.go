package registry

import "time"

// Option configures a Config via the functional-options pattern, the same
// shape the delivery-service registry this package descends from used for
// its Hub.
type Option func(*Config)

// WithMaxGroups bounds the number of groups (rooms) tracked concurrently.
func WithMaxGroups(n int) Option {
	return func(c *Config) { c.MaxGroups = n }
}

// WithMaxPeersPerGroup bounds the number of live mailboxes per group.
func WithMaxPeersPerGroup(n int) Option {
	return func(c *Config) { c.MaxPeersPerGroup = n }
}

// WithMailboxCapacity sets the per-mailbox backpressure threshold.
func WithMailboxCapacity(n int) Option {
	return func(c *Config) { c.MailboxCapacity = n }
}

// WithSessionPollTimeout sets the idle window after which an untouched
// mailbox becomes eviction-eligible.
func WithSessionPollTimeout(d time.Duration) Option {
	return func(c *Config) { c.SessionPollTimeout = d }
}

// WithSessionPollLatencyTolerance sets the safety margin long-poll requests
// subtract from SessionPollTimeout when computing their own ceiling.
func WithSessionPollLatencyTolerance(d time.Duration) Option {
	return func(c *Config) { c.SessionPollLatency = d }
}

// WithSessionBatchTimeout sets the long-poll coalescing window.
func WithSessionBatchTimeout(d time.Duration) Option {
	return func(c *Config) { c.SessionBatchTimeout = d }
}

// WithKeepAliveInterval sets the streaming transports' ping cadence.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(c *Config) { c.KeepAliveInterval = d }
}

// NewConfig builds a Config starting from DefaultConfig and applying opts.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
