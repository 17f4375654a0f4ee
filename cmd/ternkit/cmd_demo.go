package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ternkit/internal/config"
	"github.com/nvandessel/ternkit/internal/control"
	"github.com/nvandessel/ternkit/internal/format"
	"github.com/nvandessel/ternkit/internal/kernel"
	"github.com/nvandessel/ternkit/internal/logging"
	"github.com/nvandessel/ternkit/internal/pendulum"
)

// demoScenario is one canned closed-loop run: a starting plant state, a
// sensor rig, and an optional gyro failure time.
type demoScenario struct {
	Name       string
	Start      pendulum.State
	Duration   float64 // seconds
	Rig        pendulum.Rig
	GyroFailAt float64 // seconds; 0 means the gyro stays healthy
}

func demoScenarios() []demoScenario {
	return []demoScenario{
		{
			Name:     "small offset",
			Start:    pendulum.State{Theta1: 0.1, Theta2: 0.05},
			Duration: 10,
			Rig:      pendulum.Rig{EncoderNoise: 0.001, GyroNoise: 0.01, AccelNoise: 0.1},
		},
		{
			Name:     "large offset",
			Start:    pendulum.State{Theta1: 0.5, Theta2: -0.4},
			Duration: 15,
			Rig:      pendulum.Rig{EncoderNoise: 0.002, GyroNoise: 0.02, AccelNoise: 0.2},
		},
		{
			Name:     "high spin",
			Start:    pendulum.State{Theta1: 0.2, Omega1: 2.0, Theta2: 0.1, Omega2: 1.5},
			Duration: 20,
			Rig:      pendulum.Rig{EncoderNoise: 0.001, GyroNoise: 0.05, AccelNoise: 0.3},
		},
		{
			Name:       "gyro failure",
			Start:      pendulum.State{Theta1: 0.2, Theta2: 0.1},
			Duration:   10,
			Rig:        pendulum.Rig{EncoderNoise: 0.001, GyroNoise: 0.01, AccelNoise: 0.1},
			GyroFailAt: 2.5,
		},
	}
}

// demoResult summarizes one scenario run. Controller carries the full
// UUID so trace records can be matched to table rows.
type demoResult struct {
	Name          string  `json:"name"`
	Controller    string  `json:"controller"`
	Ticks         uint64  `json:"ticks"`
	FinalMode     string  `json:"final_mode"`
	Transitions   uint64  `json:"transitions"`
	AvgConfidence float64 `json:"avg_confidence"`
	MaxTheta1     float64 `json:"max_theta1"`
	MaxTheta2     float64 `json:"max_theta2"`
	Uncontrolled  int     `json:"uncontrolled_ticks"`
	FinalEnergy   float64 `json:"final_energy"`
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the double-pendulum control-loop demo",
		Long: `Run the double-pendulum control-loop demo.

Each scenario closes the loop: the sensor rig samples the plant, fusion
grades the readings, the mode controller picks an operating mode from
the fused confidence, and the confidence-driven output map commands a
torque that steps the plant. Scenarios:

  1. small offset   - near rest, healthy sensors
  2. large offset   - at the edge of the controllable envelope
  3. high spin      - fast rates degrade the gyros
  4. gyro failure   - a gyro dies mid-run; fusion rides through

Set logging.level to debug to trace mode transitions, or to trace for
per-decision JSONL records in logging.trace_dir.

Examples:
  ternkit demo
  ternkit demo --scenario 4 --json
  ternkit demo --scenario 2 --duration 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			pick, _ := cmd.Flags().GetInt("scenario")
			durationOverride, _ := cmd.Flags().GetFloat64("duration")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			modes, err := modeSet(cfg)
			if err != nil {
				return err
			}

			scenarios := demoScenarios()
			if pick < 0 || pick > len(scenarios) {
				return fmt.Errorf("scenario %d out of range 1..%d", pick, len(scenarios))
			}
			if pick > 0 {
				scenarios = scenarios[pick-1 : pick]
			}
			if durationOverride > 0 {
				for i := range scenarios {
					scenarios[i].Duration = durationOverride
				}
			}

			logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
			traceDir := cfg.Logging.TraceDir
			if traceDir == "" {
				traceDir = "."
			}
			trace := logging.NewTraceLogger(traceDir, cfg.Logging.Level)
			defer trace.Close()

			results := make([]demoResult, 0, len(scenarios))
			for _, sc := range scenarios {
				r, err := runDemoScenario(cfg, sc, modes, logger, trace)
				if err != nil {
					return err
				}
				results = append(results, r)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"dt":        cfg.Control.DT,
					"scenarios": results,
				})
			}

			out := cmd.OutOrStdout()
			tbl := format.NewTable(tableMode(cmd))
			tbl.Header("Scenario", "Controller", "Ticks", "Final Mode", "Transitions", "Avg Conf", "Max Theta1", "Max Theta2", "Uncontrolled")
			for _, r := range results {
				tbl.Row(r.Name, format.Truncate(r.Controller, 11), r.Ticks, r.FinalMode, r.Transitions,
					format.Confidence(r.AvgConfidence),
					fmt.Sprintf("%.3f", r.MaxTheta1),
					fmt.Sprintf("%.3f", r.MaxTheta2),
					r.Uncontrolled)
			}
			fmt.Fprintln(out, tbl.String())
			return nil
		},
	}

	cmd.Flags().IntP("scenario", "s", 0, "Scenario number to run (0 = all)")
	cmd.Flags().Float64P("duration", "d", 0, "Override scenario duration in seconds")

	return cmd
}

// runDemoScenario closes the loop for one scenario: rig -> controller ->
// plant, one plant step per controller tick.
func runDemoScenario(cfg *config.Config, sc demoScenario, modes control.ModeSet, logger *slog.Logger, trace *logging.TraceLogger) (demoResult, error) {
	plant, err := pendulum.NewPlant(pendulum.DefaultParams())
	if err != nil {
		return demoResult{}, err
	}
	plant.SetState(sc.Start)

	kctx, err := kernel.NewContext(kernelParams(cfg))
	if err != nil {
		return demoResult{}, err
	}

	dt := cfg.Control.DT
	limit := cfg.Control.ActuatorLimit
	if torqueMax := plant.Params().TorqueMax; limit > torqueMax {
		limit = torqueMax
	}

	ctrl, err := control.NewController(dt, limit, modes,
		control.WithKernel(kctx),
		control.WithFusion(fusionConfig(cfg)),
		control.WithLogger(logger),
		control.WithTrace(trace),
	)
	if err != nil {
		return demoResult{}, err
	}

	ticks := int(sc.Duration/dt + 0.5)
	failTick := -1
	if sc.GyroFailAt > 0 {
		failTick = int(sc.GyroFailAt / dt)
	}

	res := demoResult{Name: sc.Name}
	for tick := 0; tick < ticks; tick++ {
		readings := sc.Rig.Readings(plant)
		if failTick >= 0 && tick >= failTick {
			readings[pendulum.SensorGyro1].Confidence = 0
		}
		ctrl.SetReadings(readings)
		out := ctrl.Tick()
		if err := plant.Step(out, dt); err != nil {
			return demoResult{}, fmt.Errorf("plant step at tick %d: %w", tick, err)
		}

		s := plant.State()
		if a := math.Abs(s.Theta1); a > res.MaxTheta1 {
			res.MaxTheta1 = a
		}
		if a := math.Abs(s.Theta2); a > res.MaxTheta2 {
			res.MaxTheta2 = a
		}
		if !plant.Controllable() {
			res.Uncontrolled++
		}
	}

	stats := ctrl.Snapshot()
	res.Controller = stats.ID
	res.Ticks = stats.Tick
	res.FinalMode = stats.Mode.String()
	res.Transitions = stats.Transitions
	res.AvgConfidence = stats.AvgConfidence
	res.FinalEnergy = plant.Energy()
	return res, nil
}
