package ledger

import (
	"context"
	"time"
)

// Episode is the outcome of one training episode served to an agent.
type Episode struct {
	SessionID       string        `json:"session_id"`
	Index           int           `json:"index"`
	Status          string        `json:"status"`
	Steps           int           `json:"steps"`
	Return          float64       `json:"return"`
	InitialDistance float64       `json:"initial_distance"`
	FinalDistance   float64       `json:"final_distance"`
	StartedAt       time.Time     `json:"started_at"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Ledger persists episode outcomes. Episodes returns records ordered by
// session start and index; an empty sessionID selects every session.
type Ledger interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, ep Episode) error
	Episodes(ctx context.Context, sessionID string) ([]Episode, error)
	Close() error
}

// Summary aggregates a slice of episodes.
type Summary struct {
	Episodes    int
	Successes   int
	MeanReturn  float64
	MeanSteps   float64
	SuccessRate float64
}

func Summarize(eps []Episode) Summary {
	var s Summary
	if len(eps) == 0 {
		return s
	}
	totalSteps := 0
	for _, ep := range eps {
		s.MeanReturn += ep.Return
		totalSteps += ep.Steps
		if ep.Status == "success" {
			s.Successes++
		}
	}
	s.Episodes = len(eps)
	s.MeanReturn /= float64(len(eps))
	s.MeanSteps = float64(totalSteps) / float64(len(eps))
	s.SuccessRate = float64(s.Successes) / float64(len(eps))
	return s
}
