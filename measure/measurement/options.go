package measurement

import "go.uber.org/zap"

// Option configures a Controller.
type Option func(*Controller)

// WithInput sets the audio input opened by SetActive(true).
func WithInput(in Input) Option {
	return func(c *Controller) { c.input = in }
}

// WithLoopback sets the source for channel indices the input lacks.
func WithLoopback(src LoopbackSource) Option {
	return func(c *Controller) { c.loop = src }
}

// WithLogger sets the logger. Default is zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithConfig sets the initial configuration. Default is DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}
