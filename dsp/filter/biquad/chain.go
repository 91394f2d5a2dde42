package biquad

// Chain is an ordered cascade of biquad sections processed in series
// behind a broadband input gain.
type Chain struct {
	sections []Section
	gain     float64
}

type chainConfig struct {
	gain float64
}

// ChainOption configures a Chain.
type ChainOption func(*chainConfig)

// WithGain sets an overall gain applied to the input before cascading.
// Default is 1.0 (unity gain).
func WithGain(g float64) ChainOption {
	return func(cfg *chainConfig) { cfg.gain = g }
}

// NewChain creates a cascade from zero or more coefficient sets. An empty
// chain passes its input through, scaled by the gain.
func NewChain(coeffs []Coefficients, opts ...ChainOption) *Chain {
	cfg := chainConfig{gain: 1}
	for _, o := range opts {
		o(&cfg)
	}

	c := &Chain{}
	c.Reconfigure(coeffs, cfg.gain)

	return c
}

// Reconfigure replaces every section and the gain, and zeroes all state.
// Coefficients derived for a new sample rate must not run on delay-line
// contents produced under the old one.
func (c *Chain) Reconfigure(coeffs []Coefficients, gain float64) {
	c.gain = gain

	if cap(c.sections) >= len(coeffs) {
		c.sections = c.sections[:len(coeffs)]
	} else {
		c.sections = make([]Section, len(coeffs))
	}

	for i := range coeffs {
		c.sections[i] = Section{Coefficients: coeffs[i]}
	}
}

// ProcessSample cascades input through all sections in order.
func (c *Chain) ProcessSample(x float64) float64 {
	x *= c.gain
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}

	return x
}

// ProcessBlock filters a block in place through the full cascade.
func (c *Chain) ProcessBlock(buf []float64) {
	if c.gain != 1 {
		for i, x := range buf {
			buf[i] = x * c.gain
		}
	}

	for i := range c.sections {
		c.sections[i].ProcessBlock(buf)
	}
}

// Reset clears all section states.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// NumSections returns the number of biquad sections.
func (c *Chain) NumSections() int {
	return len(c.sections)
}

// Gain returns the input gain applied before cascading.
func (c *Chain) Gain() float64 { return c.gain }

// Section returns a pointer to the i-th section for inspection.
func (c *Chain) Section(i int) *Section {
	return &c.sections[i]
}
