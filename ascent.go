package gnc

import (
	"fmt"
	"math"
	"os"

	"github.com/ChristopherRabotin/ode"
	kitlog "github.com/go-kit/kit/log"
)

const (
	// MaxStepSize bounds the integration step for stability, in seconds.
	// Callers with larger frame deltas must sub-step (cf. Mission).
	MaxStepSize = 0.1
	// altitudeFloor is the altitude below which the state is physically
	// absurd and the step is rejected, in meters.
	altitudeFloor = -1000
	// radiusCeiling is the sanity bound on the position norm, in meters.
	radiusCeiling = 1e12
)

// NumericalDivergenceError reports a rejected integration step. The state is
// left untouched; retry and reset policy belongs to the caller.
type NumericalDivergenceError struct {
	Quantity string
	Value    float64
}

func (e NumericalDivergenceError) Error() string {
	return fmt.Sprintf("numerical divergence: %s=%v", e.Quantity, e.Value)
}

// LaunchState is the full vehicle state at one instant. It is owned by its
// Ascent and mutated only through Integrate; readers must treat it as
// immutable between steps.
type LaunchState struct {
	R               []float64 // inertial position, m
	V               []float64 // inertial velocity, m/s
	Phase           Phase
	MissionTime     float64 // s since liftoff
	Altitude        float64 // m, derived: |R| - planet radius
	VMag            float64 // m/s, derived
	FlightPathAngle float64 // rad, derived: asin(r̂·v̂)
	Heading         float64 // rad from local north toward east, derived
	Mass            float64   // kg
	Thrust          []float64 // N, current thrust vector
	Drag            []float64 // N, current drag vector
	Atmosphere      AtmosphereState
	Guidance        GuidanceCommand
}

// DynamicPressure returns q = ½ρv² in Pa.
func (s LaunchState) DynamicPressure() float64 {
	return 0.5 * s.Atmosphere.Density * s.VMag * s.VMag
}

// clone returns a deep copy safe to hand to another goroutine.
func (s LaunchState) clone() LaunchState {
	c := s
	c.R = append([]float64{}, s.R...)
	c.V = append([]float64{}, s.V...)
	c.Thrust = append([]float64{}, s.Thrust...)
	c.Drag = append([]float64{}, s.Drag...)
	return c
}

func (s LaunchState) String() string {
	return fmt.Sprintf("%s t=%.1f alt=%.0f m v=%.1f m/s m=%.0f kg", s.Phase, s.MissionTime, s.Altitude, s.VMag, s.Mass)
}

// Ascent propagates a powered launch trajectory one bounded step at a time.
// It implements ode.Integrable over the 7-vector [r v mass]; staging and
// guidance are evaluated once per step and held through the RK4 substeps.
type Ascent struct {
	State    *LaunchState
	Vehicle  *LaunchVehicle
	Guidance GuidanceLaw
	Planet   CelestialObject

	staging    StagingStateMachine
	active     []int // indices of ignited, non-jettisoned stages
	propLeft   []float64
	jettisoned []bool
	fairingOn  bool
	latitude   float64

	curDt     float64
	stepsLeft int
	logger    kitlog.Logger
}

// NewAscent returns an ascent on the pad at the given latitude (radians):
// surface position, velocity from planetary rotation only, full vehicle.
func NewAscent(v *LaunchVehicle, guidance GuidanceLaw, planet CelestialObject, latitude float64) *Ascent {
	sinφ, cosφ := math.Sincos(latitude)
	R := []float64{planet.Radius * cosφ, 0, planet.Radius * sinφ}
	V := Cross([]float64{0, 0, planet.RotationRate}, R)
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "subsys", "ascent", "vehicle", v.Name)
	a := &Ascent{
		State:      &LaunchState{R: R, V: V, Phase: Prelaunch, Mass: v.LiftoffMass(), Thrust: []float64{0, 0, 0}, Drag: []float64{0, 0, 0}},
		Vehicle:    v,
		Guidance:   guidance,
		Planet:     planet,
		propLeft:   make([]float64, len(v.Stages)),
		jettisoned: make([]bool, len(v.Stages)),
		fairingOn:  v.FairingMass > 0,
		latitude:   latitude,
		logger:     klog,
	}
	for i, s := range v.Stages {
		a.propLeft[i] = s.PropMass
	}
	a.refreshDerived()
	return a
}

// Phase returns the current mission phase.
func (a *Ascent) Phase() Phase {
	return a.staging.Phase()
}

// PropellantRemaining returns the unburned propellant of the named stage.
func (a *Ascent) PropellantRemaining(stage string) float64 {
	if idx := a.Vehicle.StageIndex(stage); idx >= 0 {
		return a.propLeft[idx]
	}
	return 0
}

// Integrate advances the state by one step of dt seconds. On divergence the
// step is fully rejected: the state is exactly as before the call.
func (a *Ascent) Integrate(dt float64) error {
	if dt <= 0 || dt > MaxStepSize {
		return fmt.Errorf("step size %f s outside (0, %f]", dt, MaxStepSize)
	}
	for _, ev := range a.staging.Evaluate(a.State.MissionTime, a.State.Altitude, a.Vehicle.StagingEvents) {
		a.applyEvent(ev)
	}
	a.State.Phase = a.staging.Phase()
	if a.State.Phase == Prelaunch {
		// Held on the pad: only the clock advances.
		a.State.MissionTime += dt
		a.refreshDerived()
		return nil
	}
	a.State.Guidance = a.Guidance.Command(*a.State)

	before := a.snapshot()
	a.curDt = dt
	a.stepsLeft = 1
	ode.NewRK4(0, dt, a).Solve()
	if err := a.checkState(); err != nil {
		a.restore(before)
		return err
	}
	return nil
}

// Reset replaces the state wholesale with the initial pad condition.
func (a *Ascent) Reset() {
	a.logger.Log("level", "warning", "status", "reset", "t", a.State.MissionTime)
	if gt, ok := a.Guidance.(*GravityTurn); ok {
		gt.Reset()
	}
	fresh := NewAscent(a.Vehicle, a.Guidance, a.Planet, a.latitude)
	*a.State = *fresh.State
	a.staging.Reset()
	copy(a.propLeft, fresh.propLeft)
	for i := range a.jettisoned {
		a.jettisoned[i] = false
	}
	a.active = nil
	a.fairingOn = a.Vehicle.FairingMass > 0
}

type ascentSnapshot struct {
	R, V       []float64
	mass, time float64
	propLeft   []float64
}

func (a *Ascent) snapshot() ascentSnapshot {
	return ascentSnapshot{
		R:        append([]float64{}, a.State.R...),
		V:        append([]float64{}, a.State.V...),
		mass:     a.State.Mass,
		time:     a.State.MissionTime,
		propLeft: append([]float64{}, a.propLeft...),
	}
}

func (a *Ascent) restore(s ascentSnapshot) {
	copy(a.State.R, s.R)
	copy(a.State.V, s.V)
	a.State.Mass = s.mass
	a.State.MissionTime = s.time
	copy(a.propLeft, s.propLeft)
	a.refreshDerived()
}

func (a *Ascent) checkState() error {
	s := a.State
	if !allFinite(s.R) {
		return NumericalDivergenceError{"r", math.NaN()}
	}
	if !allFinite(s.V) {
		return NumericalDivergenceError{"v", math.NaN()}
	}
	if math.IsNaN(s.Mass) || math.IsInf(s.Mass, 0) || s.Mass <= 0 {
		return NumericalDivergenceError{"mass", s.Mass}
	}
	if math.IsNaN(s.MissionTime) || math.IsInf(s.MissionTime, 0) {
		return NumericalDivergenceError{"mission_time", s.MissionTime}
	}
	if s.Altitude < altitudeFloor || math.IsNaN(s.Altitude) {
		return NumericalDivergenceError{"altitude", s.Altitude}
	}
	if Norm(s.R) > radiusCeiling {
		return NumericalDivergenceError{"|r|", Norm(s.R)}
	}
	return nil
}

func (a *Ascent) applyEvent(ev StagingEvent) {
	if ev.Jettison == FairingName {
		if a.fairingOn {
			a.State.Mass -= a.Vehicle.FairingMass
			a.fairingOn = false
		}
	} else if ev.Jettison != "" {
		if idx := a.Vehicle.StageIndex(ev.Jettison); idx >= 0 && !a.jettisoned[idx] {
			a.State.Mass -= a.Vehicle.Stages[idx].DryMass + a.propLeft[idx]
			a.propLeft[idx] = 0
			a.jettisoned[idx] = true
			a.deactivate(idx)
		}
	}
	if ev.Ignite != "" {
		if idx := a.Vehicle.StageIndex(ev.Ignite); idx >= 0 && !a.jettisoned[idx] {
			a.activate(idx)
			// Strap-on stages marked parallel light together with their core.
			for j := 0; j < idx; j++ {
				if a.Vehicle.Stages[j].Parallel && !a.jettisoned[j] && a.propLeft[j] > 0 {
					a.activate(j)
				}
			}
		}
	}
	a.logger.Log("level", "info", "event", ev.Phase, "t", a.State.MissionTime, "alt(m)", a.State.Altitude, "mass(kg)", a.State.Mass)
}

func (a *Ascent) activate(idx int) {
	for _, i := range a.active {
		if i == idx {
			return
		}
	}
	a.active = append(a.active, idx)
}

func (a *Ascent) deactivate(idx int) {
	for k, i := range a.active {
		if i == idx {
			a.active = append(a.active[:k], a.active[k+1:]...)
			return
		}
	}
}

// burning returns the stage indices currently producing thrust.
func (a *Ascent) burning() []int {
	var out []int
	for _, i := range a.active {
		if a.propLeft[i] > 0 {
			out = append(out, i)
		}
	}
	return out
}

// forces evaluates thrust, drag and total acceleration at an intermediate
// RK4 state, with the guidance command frozen for the step.
func (a *Ascent) forces(R, V []float64, m float64) (acc, thrust, drag []float64, mdot float64) {
	r := Norm(R)
	bodyAcc := -a.Planet.GM() / math.Pow(r, 3)
	atm := Atmosphere(r - a.Planet.Radius)
	pRatio := clamp(atm.Pressure/SeaLevelPressure, 0, 1)

	cmd := a.State.Guidance
	thrust = []float64{0, 0, 0}
	if cmd.Throttle > 0 {
		var mag float64
		for _, i := range a.burning() {
			st := a.Vehicle.Stages[i]
			F := (st.Thrust + (st.ThrustSeaLevel-st.Thrust)*pRatio) * cmd.Throttle
			if F <= 0 {
				continue
			}
			isp := st.Isp + (st.IspSeaLevel-st.Isp)*pRatio
			mag += F
			mdot += st.MassFlow(F, isp)
		}
		if mag > 0 {
			up, east, north := topocentricFrame(R)
			sinθ, cosθ := math.Sincos(cmd.Pitch)
			sinβ, cosβ := math.Sincos(cmd.Yaw)
			for i := 0; i < 3; i++ {
				thrust[i] = mag * (sinθ*up[i] + cosθ*(cosβ*north[i]+sinβ*east[i]))
			}
		}
	}

	drag = []float64{0, 0, 0}
	if vMag := Norm(V); vMag > 0 && atm.Density > 0 {
		fd := 0.5 * atm.Density * vMag * vMag * a.Vehicle.DragCoefficient * a.Vehicle.ReferenceArea
		for i := 0; i < 3; i++ {
			drag[i] = -fd * V[i] / vMag
		}
	}

	acc = make([]float64, 3)
	for i := 0; i < 3; i++ {
		acc[i] = bodyAcc*R[i] + (thrust[i]+drag[i])/m
	}
	return
}

// GetState implements the ode.Integrable interface.
func (a *Ascent) GetState() []float64 {
	s := make([]float64, 7)
	copy(s[0:3], a.State.R)
	copy(s[3:6], a.State.V)
	s[6] = a.State.Mass
	return s
}

// Func implements the ode.Integrable interface.
func (a *Ascent) Func(t float64, f []float64) []float64 {
	R := f[0:3]
	V := f[3:6]
	m := f[6]
	if m <= 0 {
		m = 1 // guards the division; the step will be rejected anyway
	}
	acc, _, _, mdot := a.forces(R, V, m)
	return []float64{V[0], V[1], V[2], acc[0], acc[1], acc[2], -mdot}
}

// SetState implements the ode.Integrable interface.
func (a *Ascent) SetState(t float64, s []float64) {
	newMass := s[6]
	Δm := a.State.Mass - newMass
	// Draw the burned mass from the thrusting stages' tanks, flooring each
	// stage at its dry mass. Whatever could not be drawn was never burned.
	for _, i := range a.burning() {
		if Δm <= 0 {
			break
		}
		take := math.Min(a.propLeft[i], Δm)
		a.propLeft[i] -= take
		Δm -= take
	}
	if Δm > 0 {
		newMass += Δm
	}
	copy(a.State.R, s[0:3])
	copy(a.State.V, s[3:6])
	a.State.Mass = newMass
	a.State.MissionTime += a.curDt
	a.refreshDerived()
}

// Stop implements the ode.Integrable interface: exactly one step per call to
// Integrate.
func (a *Ascent) Stop(t float64) bool {
	if a.stepsLeft <= 0 {
		return true
	}
	a.stepsLeft--
	return false
}

func (a *Ascent) refreshDerived() {
	s := a.State
	r := Norm(s.R)
	s.Altitude = r - a.Planet.Radius
	s.VMag = Norm(s.V)
	if s.VMag > 0 && r > 0 {
		s.FlightPathAngle = math.Asin(clamp(Dot(s.R, s.V)/(r*s.VMag), -1, 1))
		_, east, north := topocentricFrame(s.R)
		s.Heading = math.Atan2(Dot(s.V, east), Dot(s.V, north))
	} else {
		s.FlightPathAngle = 0
		s.Heading = 0
	}
	s.Atmosphere = Atmosphere(s.Altitude)
	_, thrust, drag, _ := a.forces(s.R, s.V, math.Max(s.Mass, 1))
	s.Thrust = thrust
	s.Drag = drag
}
