package gnc

// Phase defines an enum of the discrete mission phases of a powered ascent.
// Phases only ever advance; there are no backward transitions.
type Phase uint8

const (
	// Prelaunch holds the vehicle on the pad; nothing integrates yet.
	Prelaunch Phase = iota
	// Liftoff is the initial vertical rise.
	Liftoff
	// Stage1Burn is the main first-stage burn.
	Stage1Burn
	// MaxQ is the region of maximum dynamic pressure.
	MaxQ
	// Stage1Separation drops the spent first stage.
	Stage1Separation
	// Stage2Ignition lights the upper stage.
	Stage2Ignition
	// FairingJettison drops the payload fairing.
	FairingJettison
	// Stage2Burn is the sustained upper-stage burn.
	Stage2Burn
	// OrbitalInsertion is the final push toward orbital velocity.
	OrbitalInsertion
	// OrbitCircularization is terminal; the ascent is done.
	OrbitCircularization
)

func (p Phase) String() string {
	switch p {
	case Prelaunch:
		return "PRELAUNCH"
	case Liftoff:
		return "LIFTOFF"
	case Stage1Burn:
		return "STAGE1_BURN"
	case MaxQ:
		return "MAX_Q"
	case Stage1Separation:
		return "STAGE1_SEPARATION"
	case Stage2Ignition:
		return "STAGE2_IGNITION"
	case FairingJettison:
		return "FAIRING_JETTISON"
	case Stage2Burn:
		return "STAGE2_BURN"
	case OrbitalInsertion:
		return "ORBITAL_INSERTION"
	case OrbitCircularization:
		return "ORBIT_CIRCULARIZATION"
	}
	panic("cannot stringify unknown phase")
}

// Terminal returns whether no further transition may occur from this phase.
func (p Phase) Terminal() bool {
	return p == OrbitCircularization
}

// StagingCondition defines what a staging event triggers on.
type StagingCondition uint8

const (
	// TriggerTime fires once mission time reaches the event value (seconds).
	TriggerTime StagingCondition = iota + 1
	// TriggerAltitude fires once altitude reaches the event value (meters).
	TriggerAltitude
)

func (c StagingCondition) String() string {
	switch c {
	case TriggerTime:
		return "time"
	case TriggerAltitude:
		return "altitude"
	}
	panic("cannot stringify unknown staging condition")
}

// StagingEvent moves the mission into a new phase and optionally jettisons
// mass or ignites a stage when it does.
type StagingEvent struct {
	Phase     Phase            // phase entered when the event fires
	Condition StagingCondition // what Value is compared against
	Value     float64          // seconds or meters depending on Condition
	Jettison  string           // stage name, or FairingName, or empty
	Ignite    string           // stage name to activate, or empty
}

// FairingName is the reserved jettison target for the payload fairing.
const FairingName = "fairing"

// StagingStateMachine walks a vehicle's ordered staging events. Events are
// applied exactly once: re-evaluating an already-applied event is a no-op, so
// mass can never be jettisoned twice.
type StagingStateMachine struct {
	phase   Phase
	applied int
}

// Phase returns the current mission phase.
func (sm *StagingStateMachine) Phase() Phase {
	return sm.phase
}

// met returns whether the event condition is satisfied by the given state.
func (e StagingEvent) met(missionTime, altitude float64) bool {
	switch e.Condition {
	case TriggerTime:
		return missionTime >= e.Value
	case TriggerAltitude:
		return altitude >= e.Value
	}
	panic("cannot evaluate unknown staging condition")
}

// Evaluate applies every pending staging event whose trigger has been
// reached, in order, and returns the events fired this step. The ascent
// applies their jettison/ignition side effects.
func (sm *StagingStateMachine) Evaluate(missionTime, altitude float64, events []StagingEvent) (fired []StagingEvent) {
	for sm.applied < len(events) {
		ev := events[sm.applied]
		if !ev.met(missionTime, altitude) {
			break
		}
		sm.phase = ev.Phase
		sm.applied++
		fired = append(fired, ev)
	}
	return
}

// Reset rewinds the machine to the pad.
func (sm *StagingStateMachine) Reset() {
	sm.phase = Prelaunch
	sm.applied = 0
}
