package motion

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PIDConfig holds the gains of a PID block and the symmetric bound applied to
// both its integral term and its output.
type PIDConfig struct {
	Kp    float64
	Ki    float64
	Kd    float64
	Limit float64
}

// PID is a discrete PID block with integrator anti-windup.
type PID struct {
	mu      sync.Mutex
	cfg     PIDConfig
	error   float64
	int     float64
	sat     int
	primed  bool
	lastOut float64
}

// NewPID returns a PID block. At least one gain must be set and the limit must be
// positive.
func NewPID(cfg PIDConfig) (*PID, error) {
	if cfg.Kp == 0 && cfg.Ki == 0 && cfg.Kd == 0 {
		return nil, errors.New("pid block should have at least one of Kp, Ki or Kd")
	}
	if cfg.Limit <= 0 {
		return nil, errors.Errorf("pid block limit must be positive, got %v", cfg.Limit)
	}
	return &PID{cfg: cfg}, nil
}

// Next returns the output for the error measured dt after the previous call.
// It returns false when the integral is saturated in the direction of the
// error; the last valid output is returned in that case.
func (p *PID) Next(err float64, dt time.Duration) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dtS := dt.Seconds()
	if dtS <= 0 {
		return p.lastOut, false
	}
	if (p.sat > 0 && err > 0) || (p.sat < 0 && err < 0) {
		return p.lastOut, false
	}
	p.int += p.cfg.Ki * err * dtS
	switch {
	case p.int > p.cfg.Limit:
		p.int = p.cfg.Limit
		p.sat = 1
	case p.int < -p.cfg.Limit:
		p.int = -p.cfg.Limit
		p.sat = -1
	default:
		p.sat = 0
	}
	deriv := 0.0
	if p.primed {
		deriv = (err - p.error) / dtS
	}
	output := p.cfg.Kp*err + p.int + p.cfg.Kd*deriv
	p.error = err
	p.primed = true
	if output > p.cfg.Limit {
		output = p.cfg.Limit
	} else if output < -p.cfg.Limit {
		output = -p.cfg.Limit
	}
	p.lastOut = output
	return output, true
}

// Reset clears the integrator and derivative history.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.int = 0
	p.error = 0
	p.sat = 0
	p.primed = false
	p.lastOut = 0
}
