package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/modsim/internal/dynamo"
)

func sineResult(n, cycles int) dynamo.Result {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * float64(cycles) * (float64(i) + 0.5) / float64(n))
	}
	return dynamo.Result{"position": x}
}

func TestDrift(t *testing.T) {
	r := dynamo.Result{"total_energy": {2, 2.02, 1.99, 2.01}}
	values, err := Evaluate(r, NewDrift("total_energy"))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := values["drift(total_energy)"]; math.Abs(got-0.01) > 1e-12 {
		t.Errorf("drift = %v, want 0.01", got)
	}
}

func TestMeanAndReset(t *testing.T) {
	m := NewMean("temp")
	r := dynamo.Result{"temp": {10, 20, 30}}

	first, err := Evaluate(r, m)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Evaluate(r, m)
	if err != nil {
		t.Fatal(err)
	}
	if first["mean(temp)"] != 20 || second["mean(temp)"] != 20 {
		t.Errorf("Evaluate must reset metrics between calls: %v, %v", first, second)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero mean after reset")
	}
}

func TestStability(t *testing.T) {
	r := dynamo.Result{
		"x": {0, 1, 5, 1},
		"v": {0, 0, 0, math.NaN()},
	}
	values, err := Evaluate(r, NewStability(2, "x", "v"))
	if err != nil {
		t.Fatal(err)
	}
	if got := values["stability"]; got != 0.5 {
		t.Errorf("stability = %v, want 0.5", got)
	}
}

func TestCrossings(t *testing.T) {
	values, err := Evaluate(sineResult(400, 5), NewCrossings("position"))
	if err != nil {
		t.Fatal(err)
	}
	if got := values["crossings(position)"]; got != 9 {
		t.Errorf("crossings = %v, want 9", got)
	}
}

func TestFrequency(t *testing.T) {
	values, err := Evaluate(sineResult(64, 4), NewFrequency("position"))
	if err != nil {
		t.Fatal(err)
	}
	if got := values["frequency(position)"]; math.Abs(got-4.0/64.0) > 1e-12 {
		t.Errorf("frequency = %v, want %v", got, 4.0/64.0)
	}
}

func TestPowerSpectrum_Pads(t *testing.T) {
	ps, n := PowerSpectrum(make([]float64, 100))
	if n != 128 || len(ps) != 64 {
		t.Errorf("padded length %d bins %d, want 128 and 64", n, len(ps))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		wantErr bool
	}{
		{"mean:temp", "mean(temp)", false},
		{"drift:total_energy", "drift(total_energy)", false},
		{"crossings:position", "crossings(position)", false},
		{"frequency:position", "frequency(position)", false},
		{"stability:10:position,velocity", "stability", false},
		{"stability:abc:position", "", true},
		{"stability:10", "", true},
		{"median:temp", "", true},
		{"drift", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			m, err := Parse(tt.spec)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMetric) {
					t.Fatalf("expected ErrUnknownMetric, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", m.Name(), tt.name)
			}
		})
	}

	if _, err := ParseAll([]string{"mean:a", "bogus", "median:b"}); err == nil {
		t.Error("ParseAll should report bad specs")
	}
}

func TestEvaluate_MissingColumn(t *testing.T) {
	_, err := Evaluate(dynamo.Result{"x": {1}}, NewDrift("total_energy"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}
