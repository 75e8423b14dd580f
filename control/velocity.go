package control

import "time"

// VelocityWindowTicks is how many loop ticks a velocity sample spans.
const VelocityWindowTicks = 50

// VelocityEstimator differentiates an encoder count over a fixed number of loop ticks. The
// reported speed is previous minus current count, so a rising count yields a negative speed.
type VelocityEstimator struct {
	window      time.Duration
	ticks       int
	prevCount   int64
	cachedSpeed float64
}

// NewVelocityEstimator returns an estimator for a loop ticking every tickPeriod.
func NewVelocityEstimator(tickPeriod time.Duration) *VelocityEstimator {
	return &VelocityEstimator{window: VelocityWindowTicks * tickPeriod}
}

// Update records one tick with the current count. It returns true when a new speed was
// computed.
func (v *VelocityEstimator) Update(count int64) bool {
	v.ticks++
	if v.ticks < VelocityWindowTicks {
		return false
	}
	v.ticks = 0
	v.cachedSpeed = float64(v.prevCount-count) / v.window.Seconds()
	v.prevCount = count
	return true
}

// Speed returns the last computed speed in counts per second.
func (v *VelocityEstimator) Speed() float64 {
	return v.cachedSpeed
}

// Window returns the time a sample spans.
func (v *VelocityEstimator) Window() time.Duration {
	return v.window
}
