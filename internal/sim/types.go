package sim

// Config fixes the sampling interval and length of a rollout. Dt is the
// control and recording interval; the solver steps inside it.
type Config struct {
	Dt       float64
	Duration float64
}

// Record is the model state at one sampling time. Omega is the drive
// frequency applied from Time until the next record.
type Record struct {
	Time            float64   `json:"time"`
	FieldAngle      float64   `json:"field_angle"`
	Omega           float64   `json:"omega"`
	X               []float64 `json:"x"`
	Theta           []float64 `json:"theta"`
	AngularVelocity []float64 `json:"angular_velocity"`
}

type Result struct {
	Records []Record           `json:"records"`
	Metrics map[string]float64 `json:"metrics"`
}

// Times returns the sampling times.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Time
	}
	return out
}

// Positions returns swimmer i's trajectory.
func (r *Result) Positions(i int) []float64 {
	out := make([]float64, len(r.Records))
	for k, rec := range r.Records {
		out[k] = rec.X[i]
	}
	return out
}

// Final returns the last record.
func (r *Result) Final() Record {
	return r.Records[len(r.Records)-1]
}

// AngularVelocities returns swimmer i's angular velocity over time.
func (r *Result) AngularVelocities(i int) []float64 {
	out := make([]float64, len(r.Records))
	for k, rec := range r.Records {
		out[k] = rec.AngularVelocity[i]
	}
	return out
}
