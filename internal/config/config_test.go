package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/solver"
)

func TestDefaultScenario(t *testing.T) {
	s := DefaultScenario()
	if err := s.Validate(); err != nil {
		t.Fatalf("default scenario invalid: %v", err)
	}
	if s.Name != "default" || len(s.DifferentialModules) == 0 {
		t.Errorf("unexpected default %+v", s)
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, group := range PresetGroups() {
		for _, name := range ListPresets(group) {
			s := GetPreset(group, name)
			if err := s.Validate(); err != nil {
				t.Errorf("%s/%s: %v", group, name, err)
			}
			if _, err := s.BuildDrivers(""); err != nil {
				t.Errorf("%s/%s drivers: %v", group, name, err)
			}
		}
	}
}

func TestGetPreset(t *testing.T) {
	s := GetPreset("harmonic", "released")
	if s == nil {
		t.Fatal("expected preset, got nil")
	}
	if s.InitialState["position"] != 1 {
		t.Errorf("expected position 1, got %f", s.InitialState["position"])
	}

	s.InitialState["position"] = 42
	if GetPreset("harmonic", "released").InitialState["position"] != 1 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("harmonic", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "released") != nil {
		t.Error("expected nil for nonexistent group")
	}
}

func TestListPresets(t *testing.T) {
	if diff := cmp.Diff([]string{"hourly", "mixed_libraries"}, ListPresets("thermal_time")); diff != "" {
		t.Errorf("ListPresets mismatch (-want +got):\n%s", diff)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent group")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Scenario)
	}{
		{"unknown mode", func(s *Scenario) { s.Mode = "sometimes" }},
		{"unknown method", func(s *Scenario) { s.Solver.Method = "leapfrog" }},
		{"empty driver", func(s *Scenario) { s.Drivers = map[string][]float64{"doy": {}} }},
		{"empty range", func(s *Scenario) { s.DriverRanges["elapsed"] = Range{Step: 1} }},
		{"blank module", func(s *Scenario) { s.DirectModules = append(s.DirectModules, "") }},
		{"no drivers", func(s *Scenario) { s.DriverRanges = nil }},
		{"step size too large", func(s *Scenario) { s.Solver.StepSize = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := GetPreset("harmonic", "released")
			tt.mutate(s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")

	want := GetPreset("thermal_time", "mixed_libraries")
	want.Solver = solver.DefaultConfig()
	want.Solver.Method = solver.MethodEuler
	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	doc := `
initial_state: {biomass: 1}
parameters: {growth_rate: 0.1, timestep: 1}
driver_ranges:
  doy: {start: 1, step: 1, count: 5}
differential_modules: [exponential_growth]
solver:
  method: rk45
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Mode != "reset" {
		t.Errorf("mode = %q, want reset", s.Mode)
	}
	want := solver.DefaultConfig()
	want.Method = solver.MethodRK45
	if diff := cmp.Diff(want, s.Solver); diff != "" {
		t.Errorf("solver defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("initial_state: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestBuildDrivers(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "weather.csv")
	if err := os.WriteFile(csvPath, []byte("# hourly weather\ntemp, rh\n20, 0.5\n22, 0.6\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := &Scenario{
		Drivers:      map[string][]float64{"doy": {100, 100}},
		DriverRanges: map[string]Range{"hour": {Start: 6, Step: 1, Count: 2}},
		DriversCSV:   "weather.csv",
	}
	drivers, err := s.BuildDrivers(dir)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	want := dynamo.Drivers{
		"doy":  {100, 100},
		"hour": {6, 7},
		"temp": {20, 22},
		"rh":   {0.5, 0.6},
	}
	if diff := cmp.Diff(want, drivers); diff != "" {
		t.Errorf("drivers mismatch (-want +got):\n%s", diff)
	}

	s.DriverRanges["temp"] = Range{Count: 2}
	if _, err := s.BuildDrivers(dir); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("expected ErrInvalidScenario for a driver defined twice, got %v", err)
	}
}

func TestReadDriversCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "header"},
		{"blank name", "a,\n1,2\n", "no name"},
		{"repeated name", "a,a\n1,2\n", "twice"},
		{"not a number", "a\nx\n", `column "a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDriversCSV(strings.NewReader(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("MODSIM_DATA_DIR", "/tmp/modsim")
	t.Setenv("MODSIM_STORE", "sqlite")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("load settings failed: %v", err)
	}
	want := Settings{DataDir: "/tmp/modsim", Store: "sqlite", LogLevel: "info", LogFormat: "console"}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("MODSIM_STORE", "postgres")
	if _, err := LoadSettings(); err == nil {
		t.Error("expected error for unknown store")
	}
}
