package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/chaoslab/internal/analysis"
)

type ExportData struct {
	Metadata     RunMetadata        `json:"metadata"`
	Trajectories []TrajectoryRecord `json:"trajectories,omitempty"`
	Scan         []analysis.Record  `json:"scan,omitempty"`
}

// Bundle gathers everything stored for a run.
func (s *Store) Bundle(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{Metadata: *meta}
	switch meta.Kind {
	case KindScan:
		data.Scan, err = s.LoadScan(runID)
	default:
		data.Trajectories, err = s.LoadTrajectories(runID)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (s *Store) ExportJSON(runID, path string) error {
	data, err := s.Bundle(runID)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, data)
}

func (s *Store) ExportJSONStdout(runID string) error {
	data, err := s.Bundle(runID)
	if err != nil {
		return err
	}
	return WriteJSON(os.Stdout, data)
}
