package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"

	gnc "github.com/hkevin01/gnc-space-sim"
)

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", "", "path to the scenario TOML file")
	flag.BoolVar(&verbose, "v", false, "log the mission status every simulated minute")
}

func main() {
	flag.Parse()
	if scenario == "" {
		fmt.Fprintln(os.Stderr, "usage: launchsim -scenario <file.toml>")
		os.Exit(1)
	}
	viper.SetConfigFile(scenario)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "could not read scenario: %s\n", err)
		os.Exit(1)
	}

	vehicleName := viper.GetString("mission.vehicle")
	vehicle, err := gnc.LaunchVehicleFromString(vehicleName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	planetName := viper.GetString("mission.planet")
	if planetName == "" {
		planetName = "Earth"
	}
	planet, err := gnc.CelestialObjectFromString(planetName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	latitude := gnc.Deg2rad(viper.GetFloat64("mission.latitude"))
	targetAlt := viper.GetFloat64("mission.target_altitude")
	targetInc := gnc.Deg2rad(viper.GetFloat64("mission.target_inclination"))
	duration := viper.GetFloat64("mission.duration")
	if duration <= 0 {
		duration = 600
	}
	step := viper.GetFloat64("mission.step")
	if step <= 0 {
		step = 0.05
	}
	timeAccel := viper.GetFloat64("mission.time_accel")
	if timeAccel <= 0 {
		timeAccel = 1
	}

	guidance := gnc.NewGravityTurn(targetAlt, targetInc, latitude, planet)
	ascent := gnc.NewAscent(vehicle, guidance, planet, latitude)

	var filter *gnc.NavigationFilter
	var noise *gnc.MeasurementNoise
	initPosVar := viper.GetFloat64("filter.init_pos_var")
	initVelVar := viper.GetFloat64("filter.init_vel_var")
	if viper.GetBool("filter.enabled") {
		filter, err = gnc.NewNavigationFilter(ascent.State.R, ascent.State.V,
			initPosVar, initVelVar,
			viper.GetFloat64("filter.process_pos_std"), viper.GetFloat64("filter.process_vel_std"),
			viper.GetFloat64("filter.meas_pos_std"), viper.GetFloat64("filter.meas_vel_std"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "filter: %s\n", err)
			os.Exit(1)
		}
		noise, err = gnc.NewMeasurementNoise(viper.GetFloat64("filter.meas_pos_std"), viper.GetFloat64("filter.meas_vel_std"), rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			fmt.Fprintf(os.Stderr, "noise: %s\n", err)
			os.Exit(1)
		}
	}

	mission, err := gnc.NewMission(ascent, filter, noise, step, timeAccel, initPosVar, initVelVar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mission: %s\n", err)
		os.Exit(1)
	}

	export := gnc.ExportConfig{
		Filename:  viper.GetString("export.filename"),
		OutputDir: viper.GetString("export.output_dir"),
		AsCSV:     viper.GetBool("export.csv"),
		Timestamp: viper.GetBool("export.timestamp"),
	}
	var wg sync.WaitGroup
	if !export.IsUseless() {
		stateChan := make(chan gnc.LaunchState, 1024)
		mission.RegisterStateChan(stateChan)
		wg.Add(1)
		go func() {
			defer wg.Done()
			gnc.StreamStates(export, stateChan)
		}()
	}

	start := time.Now()
	if verbose {
		for elapsed := 0.0; elapsed < duration; elapsed += 60 {
			chunk := 60.0
			if duration-elapsed < chunk {
				chunk = duration - elapsed
			}
			if err = mission.RunFor(chunk); err != nil {
				break
			}
			mission.LogStatus()
		}
	} else {
		err = mission.RunFor(duration)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mission aborted: %s\n", err)
	}
	mission.LogStatus()
	mission.CloseStateChan()
	wg.Wait()
	fmt.Printf("simulated %.1f s of flight in %s\n", mission.Elapsed(), time.Since(start))
}
