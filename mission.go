package gnc

import (
	"errors"
	"fmt"
	"os"

	kitlog "github.com/go-kit/kit/log"
)

const (
	// maxFrameDelta clamps a single wall-clock frame, in seconds. A stalled
	// caller must not force a huge burst of catch-up integration.
	maxFrameDelta = 0.25
	// defaultMaxFailures is how many consecutive rejected steps are tolerated
	// before the mission state is reset to the pad.
	defaultMaxFailures = 3
)

// Mission couples the truth trajectory (Ascent) with the navigation filter
// and drives both at a fixed internal timestep, decoupled from the caller's
// frame rate through a time accumulator.
type Mission struct {
	Ascent    *Ascent
	Filter    *NavigationFilter
	Noise     *MeasurementNoise
	StepSize  float64 // internal integration step, s
	TimeAccel float64 // simulated seconds per wall second

	MaxFailures int

	initPosVar, initVelVar float64
	accumulated            float64
	failures               int
	resets                 int
	histChan               chan<- LaunchState
	logger                 kitlog.Logger
}

// NewMission validates and assembles a mission driver. The filter and noise
// source may be nil, in which case the mission flies on truth alone.
func NewMission(ascent *Ascent, filter *NavigationFilter, noise *MeasurementNoise, stepSize, timeAccel, initPosVar, initVelVar float64) (*Mission, error) {
	if ascent == nil {
		return nil, errors.New("mission requires an ascent")
	}
	if stepSize <= 0 || stepSize > MaxStepSize {
		return nil, fmt.Errorf("step size %f s outside (0, %f]", stepSize, MaxStepSize)
	}
	if timeAccel <= 0 {
		return nil, fmt.Errorf("time acceleration must be strictly positive (got %f)", timeAccel)
	}
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "subsys", "mission", "vehicle", ascent.Vehicle.Name)
	return &Mission{
		Ascent:      ascent,
		Filter:      filter,
		Noise:       noise,
		StepSize:    stepSize,
		TimeAccel:   timeAccel,
		MaxFailures: defaultMaxFailures,
		initPosVar:  initPosVar,
		initVelVar:  initVelVar,
		logger:      klog,
	}, nil
}

// Elapsed returns the simulated mission time in seconds.
func (m *Mission) Elapsed() float64 {
	return m.Ascent.State.MissionTime
}

// Resets returns how many times the mission was reset after repeated
// divergence.
func (m *Mission) Resets() int {
	return m.resets
}

// RegisterStateChan registers a channel on which a copy of the state is sent
// after every internal step (cf. StreamStates). The mission closes it on
// CloseStateChan.
func (m *Mission) RegisterStateChan(ch chan<- LaunchState) {
	m.histChan = ch
}

// CloseStateChan closes the registered state channel, if any.
func (m *Mission) CloseStateChan() {
	if m.histChan != nil {
		close(m.histChan)
		m.histChan = nil
	}
}

// Step consumes one wall-clock frame of frameDelta seconds. The simulated
// time owed is accumulated and integrated in whole fixed steps; leftovers
// carry to the next frame so no simulated time is lost or double counted.
// The first divergence error encountered is returned after the frame's
// remaining accounting is settled.
func (m *Mission) Step(frameDelta float64) error {
	if frameDelta < 0 {
		return fmt.Errorf("frame delta must not be negative (got %f)", frameDelta)
	}
	m.accumulated += clamp(frameDelta, 0, maxFrameDelta) * m.TimeAccel
	var firstErr error
	for m.accumulated >= m.StepSize {
		m.accumulated -= m.StepSize
		if err := m.subStep(m.StepSize); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RunFor advances the mission by the given simulated duration in seconds.
func (m *Mission) RunFor(duration float64) error {
	target := m.Elapsed() + duration
	for m.Elapsed() < target {
		if err := m.Step(m.StepSize / m.TimeAccel); err != nil {
			var div NumericalDivergenceError
			if !errors.As(err, &div) {
				return err
			}
			// Divergence is survivable: the step was rejected or the state
			// reset, either way the mission keeps flying.
		}
	}
	return nil
}

func (m *Mission) subStep(dt float64) error {
	err := m.Ascent.Integrate(dt)
	var div NumericalDivergenceError
	if errors.As(err, &div) {
		// An isolated blow-up often passes at half the step. Two half steps
		// keep the mission clock consistent with the accumulator.
		if m.Ascent.Integrate(dt/2) == nil && m.Ascent.Integrate(dt/2) == nil {
			m.logger.Log("level", "warning", "status", "step recovered at half size", "t", m.Elapsed(), "err", err)
			err = nil
		} else {
			m.failures++
			m.logger.Log("level", "error", "status", "step rejected", "t", m.Elapsed(), "failures", m.failures, "err", err)
			if m.failures >= m.MaxFailures {
				m.Reset()
			}
			return err
		}
	} else if err != nil {
		return err
	}
	m.failures = 0

	if m.Filter != nil {
		m.Filter.Predict(dt)
		z := make([]float64, 6)
		copy(z[0:3], m.Ascent.State.R)
		copy(z[3:6], m.Ascent.State.V)
		if m.Noise != nil {
			z = m.Noise.Perturb(z)
		}
		if uerr := m.Filter.Update(z); uerr != nil {
			var fdiv FilterDivergenceError
			if !errors.As(uerr, &fdiv) {
				return uerr
			}
			// Dead-reckon on the prediction until the next good update.
		}
	}

	if m.histChan != nil {
		m.histChan <- m.Ascent.State.clone()
	}
	return nil
}

// Reset puts the vehicle back on the pad and re-centers the filter on it.
func (m *Mission) Reset() {
	m.resets++
	m.failures = 0
	m.accumulated = 0
	m.Ascent.Reset()
	if m.Filter != nil {
		m.Filter.Reset(m.Ascent.State.R, m.Ascent.State.V, m.initPosVar, m.initVelVar)
	}
	m.logger.Log("level", "warning", "status", "mission reset", "resets", m.resets)
}

// LogStatus emits a one-line summary of the mission state.
func (m *Mission) LogStatus() {
	s := m.Ascent.State
	skipped := 0
	if m.Filter != nil {
		skipped = m.Filter.SkippedUpdates()
	}
	m.logger.Log("level", "info", "phase", s.Phase, "t", s.MissionTime, "alt(m)", s.Altitude, "v(m/s)", s.VMag, "mass(kg)", s.Mass, "skippedUpdates", skipped, "resets", m.resets)
}
