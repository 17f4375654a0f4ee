package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/ternkit/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ternkit configuration",
		Long: `View and modify ternkit configuration settings.

Configuration is stored in ~/.ternkit/config.yaml. Per-mode controller
overrides (control.nominal.*, control.degraded.*, control.safe.*) are
file-only; edit the YAML directly to set them.

Examples:
  ternkit config list                      # Show all settings
  ternkit config get kernel.theta          # Get a specific setting
  ternkit config set kernel.theta 0.6      # Set a setting
  ternkit config set solver.timeout 30s`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration (~/.ternkit/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Kernel Settings:")
			fmt.Fprintf(out, "  kernel.enabled:             %v\n", cfg.Kernel.Enabled)
			fmt.Fprintf(out, "  kernel.theta:               %.4f\n", cfg.Kernel.Theta)
			fmt.Fprintf(out, "  kernel.alpha:               %.2f\n", cfg.Kernel.Alpha)
			fmt.Fprintf(out, "  kernel.beta:                %.2f\n", cfg.Kernel.Beta)
			fmt.Fprintf(out, "  kernel.sigmoid_steepness:   %.2f\n", cfg.Kernel.SigmoidSteepness)
			fmt.Fprintf(out, "  kernel.sigmoid_offset:      %.2f\n", cfg.Kernel.SigmoidOffset)
			fmt.Fprintf(out, "  kernel.variance_threshold:  %.2f\n", cfg.Kernel.VarianceThreshold)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Fusion Settings:")
			fmt.Fprintf(out, "  fusion.fast_first_true:     %v\n", cfg.Fusion.FastFirstTrue)
			fmt.Fprintf(out, "  fusion.epsilon:             %g\n", cfg.Fusion.Epsilon)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Control Settings:")
			fmt.Fprintf(out, "  control.dt:                 %.4f\n", cfg.Control.DT)
			fmt.Fprintf(out, "  control.actuator_limit:     %.2f\n", cfg.Control.ActuatorLimit)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Solver Settings:")
			fmt.Fprintf(out, "  solver.timeout:             %v\n", cfg.Solver.Timeout)
			fmt.Fprintf(out, "  solver.workers:             %d\n", cfg.Solver.Workers)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging Settings:")
			fmt.Fprintf(out, "  logging.level:              %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  logging.format:             %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "  logging.trace_dir:          %s\n", valueOrDefault(cfg.Logging.TraceDir, "(working directory)"))

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Unknown configuration key: %s\n", key)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			}

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := setAndValidate(cfg, key, value); err != nil {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": err.Error(),
						"key":   key,
					})
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Error: %v\n", err)
				}
				return nil
			}

			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			}

			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (interface{}, bool) {
	switch key {
	case "kernel.enabled":
		return cfg.Kernel.Enabled, true
	case "kernel.theta":
		return cfg.Kernel.Theta, true
	case "kernel.alpha":
		return cfg.Kernel.Alpha, true
	case "kernel.beta":
		return cfg.Kernel.Beta, true
	case "kernel.sigmoid_steepness":
		return cfg.Kernel.SigmoidSteepness, true
	case "kernel.sigmoid_offset":
		return cfg.Kernel.SigmoidOffset, true
	case "kernel.variance_threshold":
		return cfg.Kernel.VarianceThreshold, true
	case "fusion.fast_first_true":
		return cfg.Fusion.FastFirstTrue, true
	case "fusion.epsilon":
		return cfg.Fusion.Epsilon, true
	case "control.dt":
		return cfg.Control.DT, true
	case "control.actuator_limit":
		return cfg.Control.ActuatorLimit, true
	case "solver.timeout":
		return cfg.Solver.Timeout.String(), true
	case "solver.workers":
		return cfg.Solver.Workers, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.format":
		return cfg.Logging.Format, true
	case "logging.trace_dir":
		return cfg.Logging.TraceDir, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks come from Config.Validate afterwards; this only parses.
func setConfigValue(cfg *config.Config, key, value string) error {
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number: %s", value)
		}
		return f, nil
	}

	switch key {
	case "kernel.enabled":
		cfg.Kernel.Enabled = value == "true" || value == "1"
	case "kernel.theta":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Kernel.Theta = f
	case "kernel.alpha":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Kernel.Alpha = f
	case "kernel.beta":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Kernel.Beta = f
	case "kernel.sigmoid_steepness":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Kernel.SigmoidSteepness = f
	case "kernel.sigmoid_offset":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Kernel.SigmoidOffset = f
	case "kernel.variance_threshold":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Kernel.VarianceThreshold = f
	case "fusion.fast_first_true":
		cfg.Fusion.FastFirstTrue = value == "true" || value == "1"
	case "fusion.epsilon":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Fusion.Epsilon = f
	case "control.dt":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Control.DT = f
	case "control.actuator_limit":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Control.ActuatorLimit = f
	case "solver.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Solver.Timeout = d
	case "solver.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid worker count: %s", value)
		}
		cfg.Solver.Workers = n
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	case "logging.trace_dir":
		cfg.Logging.TraceDir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// setAndValidate applies one key and runs the full range validation, so
// a bad value never reaches the file.
func setAndValidate(cfg *config.Config, key, value string) error {
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	return cfg.Validate()
}

// saveConfig writes the configuration to ~/.ternkit/config.yaml.
func saveConfig(cfg *config.Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	ternkitDir := filepath.Join(homeDir, ".ternkit")
	if err := os.MkdirAll(ternkitDir, 0700); err != nil {
		return fmt.Errorf("failed to create .ternkit directory: %w", err)
	}

	configPath := filepath.Join(ternkitDir, "config.yaml")
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
