package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/abfsim/internal/sim"
)

type ExportData struct {
	RunMetadata
	Steps   int          `json:"steps"`
	Records []sim.Record `json:"records"`
}

// ExportJSON writes meta and the full trajectory as a single JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	meta.Metrics = result.Metrics
	data := ExportData{
		RunMetadata: meta,
		Steps:       len(result.Records),
		Records:     result.Records,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
