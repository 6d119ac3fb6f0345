package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Float is a float64 whose JSON form also covers NaN and the infinities,
// written as the strings "NaN", "+Inf" and "-Inf".
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if s, ok := specialName(v); ok {
		return json.Marshal(s)
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := parseSpecial(s)
		if err != nil {
			return err
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// specialName returns the stored name of a non-finite value.
func specialName(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "NaN", true
	case math.IsInf(v, 1):
		return "+Inf", true
	case math.IsInf(v, -1):
		return "-Inf", true
	}
	return "", false
}

func parseSpecial(s string) (float64, error) {
	switch s {
	case "NaN", "+Inf", "-Inf":
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("invalid float %q", s)
}

// Metrics maps metric names to values. Non-finite values are kept.
type Metrics map[string]float64

func (m Metrics) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	out := make(map[string]Float, len(m))
	for k, v := range m {
		out[k] = Float(v)
	}
	return json.Marshal(out)
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	var in map[string]Float
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in == nil {
		*m = nil
		return nil
	}
	out := make(Metrics, len(in))
	for k, v := range in {
		out[k] = float64(v)
	}
	*m = out
	return nil
}

// jsonResult converts result columns to their JSON-safe form.
func jsonResult(result dynamo.Result) map[string][]Float {
	out := make(map[string][]Float, len(result))
	for name, col := range result {
		vals := make([]Float, len(col))
		for i, v := range col {
			vals[i] = Float(v)
		}
		out[name] = vals
	}
	return out
}
