package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/ternary"
)

func TestNewFuseCmd(t *testing.T) {
	cmd := newFuseCmd()
	if cmd.Use != "fuse" {
		t.Errorf("Use = %q, want %q", cmd.Use, "fuse")
	}
	for _, name := range []string{"reading", "input", "rounds"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    ternary.Value
		wantErr bool
	}{
		{"true", ternary.True, false},
		{"TRUE", ternary.True, false},
		{"t", ternary.True, false},
		{"1", ternary.True, false},
		{"false", ternary.False, false},
		{"f", ternary.False, false},
		{"-1", ternary.False, false},
		{"unknown", ternary.Unknown, false},
		{"u", ternary.Unknown, false},
		{"?", ternary.Unknown, false},
		{"0", ternary.Unknown, false},
		{" true ", ternary.True, false},
		{"yes", ternary.Unknown, true},
		{"", ternary.Unknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseValue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseValue(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseReading(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    fusion.Reading
		wantErr bool
	}{
		{"value and confidence", "true:0.9", fusion.Reading{Value: ternary.True, Confidence: 0.9}, false},
		{"with variance", "false:0.5:0.25", fusion.Reading{Value: ternary.False, Confidence: 0.5, Variance: 0.25}, false},
		{"too few parts", "true", fusion.Reading{}, true},
		{"too many parts", "true:0.9:0.1:5", fusion.Reading{}, true},
		{"confidence above one", "true:1.5", fusion.Reading{}, true},
		{"confidence not a number", "true:high", fusion.Reading{}, true},
		{"negative variance", "true:0.9:-0.1", fusion.Reading{}, true},
		{"bad value", "maybe:0.9", fusion.Reading{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseReading(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseReading(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseReading(%q) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestFuseCmdJSON(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newFuseCmd())
	rootCmd.SetArgs([]string{
		"fuse", "--json",
		"-r", "true:0.9", "-r", "true:0.9", "-r", "true:0.9", "-r", "true:0.9", "-r", "true:0.9",
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse fuse output: %v", err)
	}
	if got["value"] != "TRUE" {
		t.Errorf("value = %v, want TRUE", got["value"])
	}
	if conf, _ := got["confidence"].(float64); conf <= 0.999 {
		t.Errorf("confidence = %v, want > 0.999 for five agreeing sensors", got["confidence"])
	}
	if readings, _ := got["readings"].(float64); readings != 5 {
		t.Errorf("readings = %v, want 5", got["readings"])
	}
}

func TestFuseCmdNoReadings(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newFuseCmd())
	rootCmd.SetArgs([]string{"fuse"})
	rootCmd.SetOut(&bytes.Buffer{})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error with no readings")
	}
	if !strings.Contains(err.Error(), "no readings") {
		t.Errorf("expected 'no readings' error, got: %v", err)
	}
}

func TestFuseCmdInputFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	input := filepath.Join(tmpDir, "readings.yaml")
	doc := `readings:
  - value: true
    confidence: 0.95
    variance: 0.02
  - value: "unknown"
    confidence: 0.40
  - value: false
    confidence: 0.20
`
	if err := os.WriteFile(input, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newFuseCmd())
	rootCmd.SetArgs([]string{"fuse", "--json", "--input", input})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse fuse output: %v", err)
	}
	if readings, _ := got["readings"].(float64); readings != 3 {
		t.Errorf("readings = %v, want 3", got["readings"])
	}
	// Consensus lands just under the TRUE cutoff, so the mix fuses UNKNOWN
	if got["value"] != "UNKNOWN" {
		t.Errorf("value = %v, want UNKNOWN", got["value"])
	}
}

func TestFuseCmdBadInputFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	input := filepath.Join(tmpDir, "readings.yaml")
	doc := "readings:\n  - value: maybe\n    confidence: 0.5\n"
	if err := os.WriteFile(input, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newFuseCmd())
	rootCmd.SetArgs([]string{"fuse", "--input", input})
	rootCmd.SetOut(&bytes.Buffer{})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for unparseable reading value")
	}
	if !strings.Contains(err.Error(), "maybe") {
		t.Errorf("expected the bad value in the error, got: %v", err)
	}
}

func TestFuseCmdFastPathStopsEarly(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("fusion:\n  fast_first_true: true\n"), 0600); err != nil {
		t.Fatal(err)
	}

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newFuseCmd())
	rootCmd.SetArgs([]string{
		"fuse", "--json", "--config", cfgPath,
		"-r", "true:0.9", "-r", "true:0.9",
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse fuse output: %v", err)
	}
	if readings, _ := got["readings"].(float64); readings != 1 {
		t.Errorf("readings = %v, want 1 when the fast path stops at the first confident TRUE", got["readings"])
	}
}

func TestFuseCmdTableOutput(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newFuseCmd())
	rootCmd.SetArgs([]string{"fuse", "-r", "true:0.9", "-r", "false:0.2"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	output := out.String()
	// ASCII table headers render uppercased.
	if !strings.Contains(output, "CONFIDENCE") {
		t.Errorf("expected readings table header, got: %s", output)
	}
	if !strings.Contains(output, "Fused:") {
		t.Errorf("expected fused summary, got: %s", output)
	}
	if !strings.Contains(output, "TRUE") {
		t.Errorf("expected TRUE verdict, got: %s", output)
	}
}
