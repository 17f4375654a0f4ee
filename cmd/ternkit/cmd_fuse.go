package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/ternkit/internal/format"
	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/kernel"
	"github.com/nvandessel/ternkit/internal/ternary"
)

func newFuseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Fuse sensor readings into a single ternary decision",
		Long: `Fuse sensor readings into a single ternary decision.

Each reading carries a ternary value (true, false, unknown), a confidence
in [0,1], and an optional non-negative variance (default 0). Readings come
from repeated --reading flags, a YAML file, or both (flags first):

  readings:
    - value: true
      confidence: 0.95
      variance: 0.02
    - value: unknown
      confidence: 0.40

Fusion weights values by 1/(1+variance), combines confidences by
inclusion-exclusion, and coerces low-confidence outcomes toward UNKNOWN
through the adaptive threshold. Repeating the pass with --rounds shows
the threshold adapting to the observed outcomes.

Examples:
  ternkit fuse -r true:0.9 -r true:0.85 -r false:0.3
  ternkit fuse -r true:0.99:0.5 -r unknown:0.4:0.1
  ternkit fuse --input readings.yaml --rounds 10 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			specs, _ := cmd.Flags().GetStringArray("reading")
			input, _ := cmd.Flags().GetString("input")
			rounds, _ := cmd.Flags().GetInt("rounds")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			readings, err := collectReadings(specs, input)
			if err != nil {
				return err
			}
			if len(readings) == 0 {
				return fmt.Errorf("no readings given; use --reading or --input")
			}
			if rounds < 1 {
				rounds = 1
			}

			kctx, err := kernel.NewContext(kernelParams(cfg))
			if err != nil {
				return fmt.Errorf("kernel: %w", err)
			}
			fuser := fusion.New(kctx, fusionConfig(cfg))

			thetaBefore := kctx.Theta()
			var res fusion.Result
			for i := 0; i < rounds; i++ {
				res = fuser.Fuse(readings)
			}
			thetaAfter := kctx.Theta()

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"value":         res.Value.String(),
					"confidence":    res.Confidence,
					"mean_variance": res.MeanVariance,
					"readings":      res.Readings,
					"rounds":        rounds,
					"theta_before":  thetaBefore,
					"theta_after":   thetaAfter,
				})
			}

			out := cmd.OutOrStdout()
			tbl := format.NewTable(tableMode(cmd))
			tbl.Header("#", "Value", "Confidence", "Variance")
			for i, r := range readings {
				tbl.Row(i+1, r.Value.String(), format.Confidence(r.Confidence), fmt.Sprintf("%.3f", r.Variance))
			}
			fmt.Fprintln(out, tbl.String())
			fmt.Fprintf(out, "Fused: %s %s (confidence %s, mean variance %.3f, %d of %d readings)\n",
				format.ValueMark(res.Value), res.Value, format.Confidence(res.Confidence),
				res.MeanVariance, res.Readings, len(readings))
			if rounds > 1 {
				fmt.Fprintf(out, "Threshold: %.4f -> %.4f over %d rounds\n", thetaBefore, thetaAfter, rounds)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayP("reading", "r", nil, "Reading as value:confidence[:variance] (repeatable)")
	cmd.Flags().StringP("input", "i", "", "YAML file with a readings list")
	cmd.Flags().Int("rounds", 1, "Fusion passes over the same readings")

	return cmd
}

// collectReadings merges flag readings with file readings, flags first.
func collectReadings(specs []string, path string) ([]fusion.Reading, error) {
	readings := make([]fusion.Reading, 0, len(specs))
	for _, s := range specs {
		r, err := parseReading(s)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if path != "" {
		fromFile, err := readReadingsFile(path)
		if err != nil {
			return nil, err
		}
		readings = append(readings, fromFile...)
	}
	return readings, nil
}

// parseReading parses a "value:confidence[:variance]" spec.
func parseReading(spec string) (fusion.Reading, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fusion.Reading{}, fmt.Errorf("reading %q: want value:confidence[:variance]", spec)
	}
	v, err := parseValue(parts[0])
	if err != nil {
		return fusion.Reading{}, fmt.Errorf("reading %q: %w", spec, err)
	}
	conf, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || conf < 0 || conf > 1 {
		return fusion.Reading{}, fmt.Errorf("reading %q: confidence must be a number in [0,1]", spec)
	}
	var variance float64
	if len(parts) == 3 {
		variance, err = strconv.ParseFloat(parts[2], 64)
		if err != nil || variance < 0 {
			return fusion.Reading{}, fmt.Errorf("reading %q: variance must be a non-negative number", spec)
		}
	}
	return fusion.Reading{Value: v, Confidence: conf, Variance: variance}, nil
}

// parseValue maps a spelling to a ternary value.
func parseValue(s string) (ternary.Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1":
		return ternary.True, nil
	case "false", "f", "-1":
		return ternary.False, nil
	case "unknown", "u", "0", "?":
		return ternary.Unknown, nil
	default:
		return ternary.Unknown, fmt.Errorf("bad value %q (want true, false, or unknown)", s)
	}
}

// readingSpec is one entry in a --input file. Value accepts the same
// spellings as the --reading flag plus bare YAML booleans.
type readingSpec struct {
	Value      ternary.Value
	Confidence float64
	Variance   float64
}

func (r *readingSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Value      yaml.Node `yaml:"value"`
		Confidence float64   `yaml:"confidence"`
		Variance   float64   `yaml:"variance"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Confidence = raw.Confidence
	r.Variance = raw.Variance

	if raw.Value.IsZero() {
		return fmt.Errorf("reading missing value")
	}
	var s string
	if err := raw.Value.Decode(&s); err == nil {
		v, perr := parseValue(s)
		if perr != nil {
			return perr
		}
		r.Value = v
		return nil
	}
	var b bool
	if err := raw.Value.Decode(&b); err == nil {
		if b {
			r.Value = ternary.True
		} else {
			r.Value = ternary.False
		}
		return nil
	}
	return fmt.Errorf("reading value must be true, false, or unknown")
}

// readReadingsFile loads a YAML readings list.
func readReadingsFile(path string) ([]fusion.Reading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read readings file: %w", err)
	}
	var doc struct {
		Readings []readingSpec `yaml:"readings"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse readings file: %w", err)
	}
	readings := make([]fusion.Reading, len(doc.Readings))
	for i, spec := range doc.Readings {
		if spec.Confidence < 0 || spec.Confidence > 1 {
			return nil, fmt.Errorf("reading %d: confidence must be in [0,1]", i+1)
		}
		if spec.Variance < 0 {
			return nil, fmt.Errorf("reading %d: variance must be non-negative", i+1)
		}
		readings[i] = fusion.Reading{Value: spec.Value, Confidence: spec.Confidence, Variance: spec.Variance}
	}
	return readings, nil
}
