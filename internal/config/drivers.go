package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/modsim/internal/dynamo"
)

// BuildDrivers merges explicit drivers, generated ranges and the drivers
// CSV file into one set. A relative CSV path is resolved against baseDir.
func (s *Scenario) BuildDrivers(baseDir string) (dynamo.Drivers, error) {
	drivers := make(dynamo.Drivers)
	add := func(name string, values []float64, source string) error {
		if _, exists := drivers[name]; exists {
			return fmt.Errorf("%w: driver %q defined again by %s", ErrInvalidScenario, name, source)
		}
		drivers[name] = values
		return nil
	}

	for name, values := range s.Drivers {
		if err := add(name, append([]float64(nil), values...), "drivers"); err != nil {
			return nil, err
		}
	}
	for name, r := range s.DriverRanges {
		if err := add(name, r.Values(), "driver_ranges"); err != nil {
			return nil, err
		}
	}
	if s.DriversCSV != "" {
		path := s.DriversCSV
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		fromFile, err := ReadDriversCSV(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for _, name := range fromFile.Names() {
			if err := add(name, fromFile[name], s.DriversCSV); err != nil {
				return nil, err
			}
		}
	}
	return drivers, nil
}

// ReadDriversCSV reads one driver per column. The first row holds the
// driver names.
func ReadDriversCSV(r io.Reader) (dynamo.Drivers, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	drivers := make(dynamo.Drivers, len(header))
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if _, dup := drivers[header[i]]; dup {
			return nil, fmt.Errorf("column %q appears twice", header[i])
		}
		drivers[header[i]] = nil
	}

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, header[i], err)
			}
			drivers[header[i]] = append(drivers[header[i]], v)
		}
	}
	return drivers, nil
}
