package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// ParseSwimmerFile reads the line-based rigid body description: one key
// per line followed by its whitespace-separated values. The keys m, A, B
// and C (three values each) are required; q and r (orientation and
// position) are accepted and ignored by the reduced model.
func ParseSwimmerFile(r io.Reader) (SwimmerConfig, error) {
	fields := make(map[string][]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		parts := strings.Fields(sc.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		fields[parts[0]] = parts[1:]
	}
	if err := sc.Err(); err != nil {
		return SwimmerConfig{}, err
	}

	var s SwimmerConfig
	for key, dst := range map[string]*[3]float64{"m": &s.Moment, "A": &s.A, "B": &s.B, "C": &s.C} {
		vals, ok := fields[key]
		if !ok {
			return SwimmerConfig{}, dynamo.Configf("swimmer file: missing key %q", key)
		}
		v, err := parseTriplet(key, vals)
		if err != nil {
			return SwimmerConfig{}, err
		}
		*dst = v
	}
	if s.Moment == [3]float64{} {
		return SwimmerConfig{}, dynamo.Configf("swimmer file: magnetic moment is zero")
	}
	return s, nil
}

func LoadSwimmerFile(path string) (SwimmerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return SwimmerConfig{}, err
	}
	defer f.Close()
	return ParseSwimmerFile(f)
}

func parseTriplet(key string, vals []string) ([3]float64, error) {
	var v [3]float64
	if len(vals) < 3 {
		return v, dynamo.Configf("swimmer file: key %q needs 3 values, got %d", key, len(vals))
	}
	for i := range v {
		f, err := strconv.ParseFloat(vals[i], 64)
		if err != nil {
			return v, dynamo.Configf("swimmer file: key %q: %v", key, err)
		}
		v[i] = f
	}
	return v, nil
}
