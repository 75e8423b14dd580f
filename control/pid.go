package control

// DefaultITermSize is the window of the leaky integral, in ticks.
const DefaultITermSize = 120

// PIDConfig holds the gains of a position loop.
type PIDConfig struct {
	P float64 `json:"p"`
	I float64 `json:"i"`
	// D is kept with the other gains but does not contribute to the output.
	D float64 `json:"d"`
}

// LeakyPID is a position controller whose integral term forgets old error geometrically over a
// window of N updates instead of accumulating without bound. It is not safe for concurrent use;
// the owning motor serializes access.
type LeakyPID struct {
	gains        PIDConfig
	windowSize   float64
	runningITerm float64
}

// NewLeakyPID returns a controller with the given gains. A non-positive window uses
// DefaultITermSize.
func NewLeakyPID(gains PIDConfig, windowSize int) *LeakyPID {
	if windowSize <= 0 {
		windowSize = DefaultITermSize
	}
	return &LeakyPID{gains: gains, windowSize: float64(windowSize)}
}

// Update folds the error between setpoint and measured into the integral and returns the
// unclamped effort.
func (p *LeakyPID) Update(setpoint, measured float64) float64 {
	err := setpoint - measured
	// shrink old values out of the sum
	p.runningITerm = p.runningITerm*((p.windowSize-1)/p.windowSize) + err
	return err*p.gains.P + (p.runningITerm/p.windowSize)*p.gains.I
}

// SetGains replaces the gains and clears the integral.
func (p *LeakyPID) SetGains(gains PIDConfig) {
	p.gains = gains
	p.runningITerm = 0
}

// Gains returns the current gains.
func (p *LeakyPID) Gains() PIDConfig {
	return p.gains
}

// ITerm returns the running integral sum.
func (p *LeakyPID) ITerm() float64 {
	return p.runningITerm
}

// WindowSize returns N.
func (p *LeakyPID) WindowSize() int {
	return int(p.windowSize)
}
