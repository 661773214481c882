package calibration

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// Measurement is one observed (frequency, velocity) point.
type Measurement struct {
	Omega float64
	V     float64
}

// Sample is one posterior draw of the coefficients and the noise level.
type Sample struct {
	Bmb   float64
	Cmb   float64
	Sigma float64
}

// Validate rejects samples the velocity model cannot evaluate: cmb must be
// positive and sigma non-negative, all finite.
func (s Sample) Validate() error {
	if math.IsNaN(s.Bmb) || math.IsInf(s.Bmb, 0) {
		return dynamo.Configf("bmb must be finite, got %g", s.Bmb)
	}
	if !(s.Cmb > 0) || math.IsInf(s.Cmb, 0) {
		return dynamo.Configf("cmb must be positive and finite, got %g", s.Cmb)
	}
	if !(s.Sigma >= 0) || math.IsInf(s.Sigma, 0) {
		return dynamo.Configf("sigma must be non-negative and finite, got %g", s.Sigma)
	}
	return nil
}

// LoadMeasurements reads a CSV file with a header row naming at least the
// columns "omega" and "V".
func LoadMeasurements(r io.Reader) ([]Measurement, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	wCol, vCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "omega":
			wCol = i
		case "V":
			vCol = i
		}
	}
	if wCol < 0 || vCol < 0 {
		return nil, dynamo.Configf("measurements need omega and V columns, got %v", header)
	}

	var out []Measurement
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read measurements: %w", err)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(rec[wCol]), 64)
		if err != nil {
			return nil, dynamo.Configf("line %d: omega: %v", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[vCol]), 64)
		if err != nil {
			return nil, dynamo.Configf("line %d: V: %v", line, err)
		}
		out = append(out, Measurement{Omega: w, V: v})
	}
	if len(out) == 0 {
		return nil, dynamo.Configf("no measurements")
	}
	return out, nil
}

type sampleFile struct {
	Results struct {
		SampleDatabase [][]float64 `json:"Sample Database"`
	} `json:"Results"`
}

// LoadSamples reads the "Results" / "Sample Database" rows of a sampler
// output file. Each row is (bmb, cmb, sigma).
func LoadSamples(r io.Reader) ([]Sample, error) {
	var f sampleFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}

	rows := f.Results.SampleDatabase
	if len(rows) == 0 {
		return nil, dynamo.Configf("sample database is empty")
	}
	out := make([]Sample, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, dynamo.Configf("sample %d has %d values, want 3", i, len(row))
		}
		out[i] = Sample{Bmb: row[0], Cmb: row[1], Sigma: row[2]}
		if err := out[i].Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return out, nil
}
