package gnc

import (
	"fmt"
	"os"
	"time"
)

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Filename     string
	OutputDir    string // defaults to the working directory
	AsCSV        bool
	Timestamp    bool
	CSVAppend    func(st LaunchState) string // Custom export (do not include leading comma)
	CSVAppendHdr func() string               // Header for the custom export
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV
}

// createTelemetryCSVFile returns a file which requires a defer close statement!
func createTelemetryCSVFile(conf ExportConfig) *os.File {
	outputDir := conf.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	var filename string
	if conf.Timestamp {
		t := time.Now()
		filename = fmt.Sprintf("%s/launch-%s-%d-%02d-%02dT%02d.%02d.%02d.csv", outputDir, conf.Filename, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	} else {
		filename = fmt.Sprintf("%s/launch-%s.csv", outputDir, conf.Filename)
	}
	f, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	// Header
	f.WriteString(fmt.Sprintf(`# Creation date (UTC): %s
# Positions in m, velocities in m/s, angles in degrees, q in Pa.
t,phase,altitude,vmag,fpa,heading,mass,q,rx,ry,rz,vx,vy,vz`, time.Now().UTC()))
	if conf.CSVAppendHdr != nil {
		f.WriteString("," + conf.CSVAppendHdr())
	}
	return f
}

// StreamStates streams the output of the channel to the configured file.
// It returns when the channel is closed, so run it in its own goroutine.
func StreamStates(conf ExportConfig, stateChan <-chan LaunchState) {
	if conf.IsUseless() {
		for range stateChan {
			// Drain so the mission never blocks on a dead exporter.
		}
		return
	}
	f := createTelemetryCSVFile(conf)
	defer f.Close()
	var prevTime float64 = -1
	for state := range stateChan {
		// Only write one datapoint per simulated second.
		if prevTime >= 0 && state.MissionTime-prevTime < 1 {
			continue
		}
		prevTime = state.MissionTime
		asTxt := fmt.Sprintf("%.3f,%s,%.3f,%.3f,%.4f,%.4f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f",
			state.MissionTime, state.Phase, state.Altitude, state.VMag, Rad2deg180(state.FlightPathAngle), Rad2deg180(state.Heading), state.Mass, state.DynamicPressure(),
			state.R[0], state.R[1], state.R[2], state.V[0], state.V[1], state.V[2])
		if conf.CSVAppend != nil {
			asTxt += "," + conf.CSVAppend(state)
		}
		if _, err := f.WriteString("\n" + asTxt); err != nil {
			panic(err)
		}
	}
	f.WriteString("\n# Simulation end\n")
}
