package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	scanFile     = "scan.csv"
)

var ErrNoRuns = errors.New("no stored runs")

type Kind string

const (
	KindRun  Kind = "run"
	KindScan Kind = "scan"
)

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
	ID           string             `json:"id"`
	Kind         Kind               `json:"kind"`
	Model        string             `json:"model"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         uint64             `json:"seed"`
	Dt           float64            `json:"dt"`
	SubSteps     int                `json:"substeps"`
	Steps        int                `json:"steps"`
	Integrator   string             `json:"integrator"`
	Trajectories int                `json:"trajectories"`
	Params       dynamo.Params      `json:"params"`
	Metrics      map[string]float64 `json:"metrics"`
	Config       *config.Config     `json:"config,omitempty"`
}

// NewMetadata fills the run description from cfg and the field actually
// simulated.
func NewMetadata(kind Kind, cfg *config.Config, field dynamo.Field, metrics map[string]float64) RunMetadata {
	return RunMetadata{
		Kind:       kind,
		Model:      cfg.Model,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		SubSteps:   cfg.SubSteps,
		Steps:      cfg.Steps,
		Integrator: cfg.Integrator,
		Params:     field.Params(),
		Metrics:    metrics,
		Config:     cfg,
	}
}

func (s *Store) create(meta *RunMetadata) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Model, now.UnixNano())
	meta.Timestamp = now
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
	return runDir, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// Save persists an ensemble run: metadata.json and states.csv with one row
// per stored history entry.
func (s *Store) Save(meta RunMetadata, snaps []sim.Snapshot) (string, error) {
	meta.Trajectories = len(snaps)
	runDir, err := s.create(&meta)
	if err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)

	dim := 0
	for _, snap := range snaps {
		if len(snap.History) > 0 {
			dim = len(snap.History[0])
			break
		}
	}
	header := []string{"traj", "step"}
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, snap := range snaps {
		first := snap.Steps - len(snap.History) + 1
		for k, x := range snap.History {
			row := []string{strconv.Itoa(snap.Index), strconv.Itoa(first + k)}
			for _, v := range x {
				row = append(row, formatFloat(v))
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}

	w.Flush()
	return meta.ID, w.Error()
}

// SaveScan persists a bifurcation scan as scan.csv with one row per sample,
// keyed by record index. Records without samples keep a single row with an
// empty value.
func (s *Store) SaveScan(meta RunMetadata, recs []analysis.Record) (string, error) {
	runDir, err := s.create(&meta)
	if err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, scanFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"record", "param", "escaped", "period", "min_samples", "value"}); err != nil {
		return "", err
	}
	for i, r := range recs {
		prefix := []string{
			strconv.Itoa(i),
			formatFloat(r.Param),
			strconv.FormatBool(r.Escaped),
			strconv.Itoa(r.Period),
			strconv.Itoa(r.MinSamples),
		}
		if len(r.Samples) == 0 {
			if err := w.Write(append(prefix, "")); err != nil {
				return "", err
			}
			continue
		}
		for _, v := range r.Samples {
			if err := w.Write(append(slices.Clone(prefix), formatFloat(v))); err != nil {
				return "", err
			}
		}
	}

	w.Flush()
	return meta.ID, w.Error()
}

// List returns stored runs, oldest first.
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

	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

// Latest returns the most recent run of the given kind, or of any kind when
// kind is empty.
func (s *Store) Latest(kind Kind) (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if kind == "" || runs[i].Kind == kind {
			return &runs[i], nil
		}
	}
	return nil, ErrNoRuns
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// TrajectoryRecord is the stored history of one ensemble member.
type TrajectoryRecord struct {
	Index  int            `json:"index"`
	Steps  []int          `json:"steps"`
	States []dynamo.State `json:"states"`
}

// Last returns the final stored state.
func (t TrajectoryRecord) Last() dynamo.State {
	if len(t.States) == 0 {
		return nil
	}
	return t.States[len(t.States)-1]
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func (s *Store) LoadTrajectories(runID string) ([]TrajectoryRecord, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}

	var out []TrajectoryRecord
	byIndex := make(map[int]int)
	for line, record := range records {
		if line == 0 || len(record) < 2 {
			continue
		}
		idx, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", statesFile, line+1, err)
		}
		step, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", statesFile, line+1, err)
		}
		x := make(dynamo.State, 0, len(record)-2)
		for _, field := range record[2:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", statesFile, line+1, err)
			}
			x = append(x, v)
		}

		pos, ok := byIndex[idx]
		if !ok {
			pos = len(out)
			byIndex[idx] = pos
			out = append(out, TrajectoryRecord{Index: idx})
		}
		out[pos].Steps = append(out[pos].Steps, step)
		out[pos].States = append(out[pos].States, x)
	}
	return out, nil
}

func (s *Store) LoadScan(runID string) ([]analysis.Record, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, scanFile))
	if err != nil {
		return nil, err
	}

	var out []analysis.Record
	for line, record := range records {
		if line == 0 {
			continue
		}
		if len(record) != 6 {
			return nil, fmt.Errorf("%s line %d: expected 6 fields, got %d", scanFile, line+1, len(record))
		}
		idx, err0 := strconv.Atoi(record[0])
		p, err1 := strconv.ParseFloat(record[1], 64)
		escaped, err2 := strconv.ParseBool(record[2])
		period, err3 := strconv.Atoi(record[3])
		minSamples, err4 := strconv.Atoi(record[4])
		if err := errors.Join(err0, err1, err2, err3, err4); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", scanFile, line+1, err)
		}

		switch idx {
		case len(out):
			out = append(out, analysis.Record{Param: p, Escaped: escaped, Period: period, MinSamples: minSamples})
		case len(out) - 1:
		default:
			return nil, fmt.Errorf("%s line %d: record %d out of order", scanFile, line+1, idx)
		}
		if record[5] == "" {
			continue
		}
		v, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", scanFile, line+1, err)
		}
		last := &out[len(out)-1]
		last.Samples = append(last.Samples, v)
	}
	return out, nil
}
