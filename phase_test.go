package gnc

import "testing"

func TestPhaseString(t *testing.T) {
	expected := map[Phase]string{
		Prelaunch:            "PRELAUNCH",
		Liftoff:              "LIFTOFF",
		Stage1Burn:           "STAGE1_BURN",
		MaxQ:                 "MAX_Q",
		Stage1Separation:     "STAGE1_SEPARATION",
		Stage2Ignition:       "STAGE2_IGNITION",
		FairingJettison:      "FAIRING_JETTISON",
		Stage2Burn:           "STAGE2_BURN",
		OrbitalInsertion:     "ORBITAL_INSERTION",
		OrbitCircularization: "ORBIT_CIRCULARIZATION",
	}
	for phase, name := range expected {
		if phase.String() != name {
			t.Fatalf("%d stringifies as %s", phase, phase)
		}
		if phase.Terminal() != (phase == OrbitCircularization) {
			t.Fatalf("%s terminal flag is wrong", phase)
		}
	}
	assertPanic(t, func() {
		_ = Phase(200).String()
	})
}

func TestStagingOrdering(t *testing.T) {
	var sm StagingStateMachine
	events := Falcon9.StagingEvents

	if fired := sm.Evaluate(-1, 0, events); len(fired) != 0 {
		t.Fatal("nothing may fire before liftoff")
	}
	if sm.Phase() != Prelaunch {
		t.Fatalf("phase is %s before liftoff", sm.Phase())
	}
	if fired := sm.Evaluate(0, 0, events); len(fired) != 1 || fired[0].Phase != Liftoff {
		t.Fatalf("liftoff must fire at t=0 (fired %+v)", fired)
	}
	if fired := sm.Evaluate(126, 40000, events); len(fired) != 3 {
		t.Fatalf("t=126 s must fire up to separation (fired %d events)", len(fired))
	}
	if sm.Phase() != Stage1Separation {
		t.Fatalf("phase is %s at separation", sm.Phase())
	}
	// Re-evaluating the same state is a no-op: events apply exactly once.
	if fired := sm.Evaluate(126, 40000, events); len(fired) != 0 {
		t.Fatal("already applied events fired again")
	}
	// The altitude-triggered final event must not fire on time alone.
	if fired := sm.Evaluate(1000, 200000, events); sm.Phase() != OrbitalInsertion {
		t.Fatalf("phase is %s below the circularization altitude (fired %+v)", sm.Phase(), fired)
	}
	if sm.Evaluate(1000, 390000, events); sm.Phase() != OrbitCircularization {
		t.Fatalf("phase is %s above the circularization altitude", sm.Phase())
	}
	sm.Reset()
	if sm.Phase() != Prelaunch {
		t.Fatal("reset must rewind to the pad")
	}
}

func TestStagingSkippedFrames(t *testing.T) {
	// A long stall must apply every overdue event in order in one call.
	var sm StagingStateMachine
	fired := sm.Evaluate(250, 100000, Falcon9.StagingEvents)
	if len(fired) != 7 {
		t.Fatalf("expected 7 events, got %d", len(fired))
	}
	for i := 1; i < len(fired); i++ {
		if fired[i].Phase <= fired[i-1].Phase {
			t.Fatal("events fired out of order")
		}
	}
	if sm.Phase() != Stage2Burn {
		t.Fatalf("phase is %s after catching up", sm.Phase())
	}
}
