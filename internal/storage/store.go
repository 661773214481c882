package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

// Store keeps saved rollouts as one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Bmb        []float64          `json:"bmb"`
	Cmb        []float64          `json:"cmb"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and the trajectory of result to a new run directory and
// returns the run ID. ID, Timestamp and Metrics are filled in from the run.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	if len(result.Records) == 0 {
		return "", fmt.Errorf("%w: empty rollout", dynamo.ErrInvalidState)
	}

	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := writeTrajectory(w, result); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func writeTrajectory(w *csv.Writer, result *sim.Result) error {
	n := len(result.Records[0].X)

	header := []string{"time", "field_angle", "omega"}
	for _, prefix := range []string{"x", "theta", "w"} {
		for i := 0; i < n; i++ {
			header = append(header, fmt.Sprintf("%s%d", prefix, i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, rec := range result.Records {
		row := make([]string, 0, len(header))
		row = append(row, format(rec.Time), format(rec.FieldAngle), format(rec.Omega))
		for _, group := range [][]float64{rec.X, rec.Theta, rec.AngularVelocity} {
			for _, v := range group {
				row = append(row, format(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns saved runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrajectory reads a saved run back into records.
func (s *Store) LoadTrajectory(runID string) (*sim.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%w: %s has no header", dynamo.ErrInvalidState, trajectoryFile)
	}

	cols := len(records[0])
	if cols < 3 || (cols-3)%3 != 0 {
		return nil, fmt.Errorf("%w: unexpected %d trajectory columns", dynamo.ErrInvalidState, cols)
	}
	n := (cols - 3) / 3

	result := &sim.Result{Records: make([]sim.Record, 0, len(records)-1)}
	for line, row := range records[1:] {
		vals := make([]float64, len(row))
		for j, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
			}
			vals[j] = v
		}
		result.Records = append(result.Records, sim.Record{
			Time:            vals[0],
			FieldAngle:      vals[1],
			Omega:           vals[2],
			X:               vals[3 : 3+n],
			Theta:           vals[3+n : 3+2*n],
			AngularVelocity: vals[3+2*n:],
		})
	}

	if meta, err := s.Load(runID); err == nil {
		result.Metrics = meta.Metrics
	}
	return result, nil
}
