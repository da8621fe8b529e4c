package gnc

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// Stage defines one stage of a launch vehicle. All masses in kg, thrusts in
// N and specific impulses in seconds. Thrust and ThrustSeaLevel bracket the
// engine performance; the integrator interpolates between them with the
// local pressure ratio.
type Stage struct {
	Name           string
	DryMass        float64
	PropMass       float64
	Thrust         float64 // vacuum
	ThrustSeaLevel float64
	Isp            float64 // vacuum
	IspSeaLevel    float64
	Parallel       bool    // burns alongside the stage ignited after it
	GimbalRange    float64 // rad
}

// MassFlow returns the propellant mass flow rate in kg/s for the given local
// thrust and Isp.
func (s Stage) MassFlow(thrust, isp float64) float64 {
	if isp <= 0 {
		return 0
	}
	return thrust / (isp * G0)
}

// LaunchVehicle is the static configuration of a full launch vehicle. It is
// never mutated during a mission: all per-flight bookkeeping (propellant
// remaining, jettisoned stages) lives in the Ascent.
type LaunchVehicle struct {
	Name            string
	Stages          []Stage
	PayloadMass     float64
	FairingMass     float64
	StagingEvents   []StagingEvent
	DragCoefficient float64
	ReferenceArea   float64 // m^2
	logger          kitlog.Logger
}

// NewLaunchVehicle validates and returns a launch vehicle. Configuration
// errors are programmer errors and are reported before any simulation runs.
func NewLaunchVehicle(name string, stages []Stage, payloadMass, fairingMass float64, events []StagingEvent) (*LaunchVehicle, error) {
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "vehicle", name)
	v := &LaunchVehicle{Name: name, Stages: stages, PayloadMass: payloadMass, FairingMass: fairingMass,
		StagingEvents: events, DragCoefficient: 0.5, ReferenceArea: 10.0, logger: klog}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *LaunchVehicle) validate() error {
	if len(v.Stages) == 0 {
		return fmt.Errorf("%s: a launch vehicle needs at least one stage", v.Name)
	}
	if v.PayloadMass < 0 || v.FairingMass < 0 {
		return fmt.Errorf("%s: negative payload or fairing mass", v.Name)
	}
	names := make(map[string]bool, len(v.Stages))
	for _, s := range v.Stages {
		if s.Name == FairingName {
			return fmt.Errorf("%s: stage name %q is reserved", v.Name, FairingName)
		}
		if names[s.Name] {
			return fmt.Errorf("%s: duplicate stage %q", v.Name, s.Name)
		}
		names[s.Name] = true
		if s.DryMass <= 0 || s.PropMass < 0 {
			return fmt.Errorf("%s: stage %q has non-positive masses", v.Name, s.Name)
		}
		if s.Thrust < 0 || s.ThrustSeaLevel < 0 || s.Isp < 0 || s.IspSeaLevel < 0 {
			return fmt.Errorf("%s: stage %q has negative thrust or Isp", v.Name, s.Name)
		}
		if s.Thrust > 0 && s.Isp == 0 {
			return fmt.Errorf("%s: stage %q thrusts with zero Isp", v.Name, s.Name)
		}
	}
	var prevPhase Phase
	lastTrigger := map[StagingCondition]float64{}
	for i, ev := range v.StagingEvents {
		if i == 0 && ev.Phase != Liftoff {
			return fmt.Errorf("%s: first staging event must enter %s", v.Name, Liftoff)
		}
		if i > 0 && ev.Phase <= prevPhase {
			return fmt.Errorf("%s: staging event %d does not advance the phase (%s after %s)", v.Name, i, ev.Phase, prevPhase)
		}
		prevPhase = ev.Phase
		if ev.Condition != TriggerTime && ev.Condition != TriggerAltitude {
			return fmt.Errorf("%s: staging event %d has an unknown condition", v.Name, i)
		}
		if prev, seen := lastTrigger[ev.Condition]; seen && ev.Value <= prev {
			return fmt.Errorf("%s: staging event %d trigger %s=%f overlaps the previous one", v.Name, i, ev.Condition, ev.Value)
		}
		lastTrigger[ev.Condition] = ev.Value
		if ev.Jettison != "" && ev.Jettison != FairingName && !names[ev.Jettison] {
			return fmt.Errorf("%s: staging event %d jettisons unknown stage %q", v.Name, i, ev.Jettison)
		}
		if ev.Ignite != "" && !names[ev.Ignite] {
			return fmt.Errorf("%s: staging event %d ignites unknown stage %q", v.Name, i, ev.Ignite)
		}
	}
	return nil
}

// StageIndex returns the index of the named stage, or -1.
func (v *LaunchVehicle) StageIndex(name string) int {
	for i, s := range v.Stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// LiftoffMass returns the fully fueled mass on the pad, in kg.
func (v *LaunchVehicle) LiftoffMass() float64 {
	m := v.PayloadMass + v.FairingMass
	for _, s := range v.Stages {
		m += s.DryMass + s.PropMass
	}
	return m
}

func (v *LaunchVehicle) String() string {
	return fmt.Sprintf("%s (%d stages, %.0f kg at liftoff)", v.Name, len(v.Stages), v.LiftoffMass())
}

func mustVehicle(v *LaunchVehicle, err error) *LaunchVehicle {
	if err != nil {
		panic(err)
	}
	return v
}

/* Presets */

// Falcon9 is a two-stage kerolox medium-lift vehicle.
var Falcon9 = mustVehicle(NewLaunchVehicle("Falcon 9",
	[]Stage{
		{Name: "first stage", DryMass: 25600, PropMass: 395700, Thrust: 8227000, ThrustSeaLevel: 7607000, Isp: 311, IspSeaLevel: 282, GimbalRange: Deg2rad(5)},
		{Name: "second stage", DryMass: 3900, PropMass: 92670, Thrust: 934000, ThrustSeaLevel: 0, Isp: 348, IspSeaLevel: 300, GimbalRange: Deg2rad(5)},
	},
	13150, 1900,
	[]StagingEvent{
		{Phase: Liftoff, Condition: TriggerTime, Value: 0, Ignite: "first stage"},
		{Phase: Stage1Burn, Condition: TriggerTime, Value: 10},
		{Phase: MaxQ, Condition: TriggerTime, Value: 70},
		{Phase: Stage1Separation, Condition: TriggerTime, Value: 126, Jettison: "first stage"},
		{Phase: Stage2Ignition, Condition: TriggerTime, Value: 132, Ignite: "second stage"},
		{Phase: FairingJettison, Condition: TriggerTime, Value: 195, Jettison: FairingName},
		{Phase: Stage2Burn, Condition: TriggerTime, Value: 200},
		{Phase: OrbitalInsertion, Condition: TriggerTime, Value: 440},
		{Phase: OrbitCircularization, Condition: TriggerAltitude, Value: 390000},
	}))

// AtlasV is a two-stage vehicle with a long-burning hydrolox upper stage.
var AtlasV = mustVehicle(NewLaunchVehicle("Atlas V 401",
	[]Stage{
		{Name: "common core", DryMass: 21054, PropMass: 284089, Thrust: 4152000, ThrustSeaLevel: 3827000, Isp: 337.8, IspSeaLevel: 311.3, GimbalRange: Deg2rad(8)},
		{Name: "centaur", DryMass: 2243, PropMass: 20830, Thrust: 99200, ThrustSeaLevel: 0, Isp: 450.5, IspSeaLevel: 380, GimbalRange: Deg2rad(4)},
	},
	9800, 2127,
	[]StagingEvent{
		{Phase: Liftoff, Condition: TriggerTime, Value: 0, Ignite: "common core"},
		{Phase: Stage1Burn, Condition: TriggerTime, Value: 12},
		{Phase: MaxQ, Condition: TriggerTime, Value: 82},
		{Phase: Stage1Separation, Condition: TriggerTime, Value: 253, Jettison: "common core"},
		{Phase: Stage2Ignition, Condition: TriggerTime, Value: 263, Ignite: "centaur"},
		{Phase: FairingJettison, Condition: TriggerTime, Value: 275, Jettison: FairingName},
		{Phase: Stage2Burn, Condition: TriggerTime, Value: 280},
		{Phase: OrbitalInsertion, Condition: TriggerTime, Value: 840},
		{Phase: OrbitCircularization, Condition: TriggerAltitude, Value: 390000},
	}))

// LaunchVehicles lists the vehicle presets by name.
var LaunchVehicles = map[string]*LaunchVehicle{
	"Falcon 9":    Falcon9,
	"Atlas V 401": AtlasV,
}

// LaunchVehicleFromString returns the preset from its name.
func LaunchVehicleFromString(name string) (*LaunchVehicle, error) {
	if v, found := LaunchVehicles[name]; found {
		return v, nil
	}
	return nil, fmt.Errorf("undefined launch vehicle '%s'", name)
}
