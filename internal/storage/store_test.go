package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/physics"
	"github.com/san-kum/chaoslab/internal/sim"
)

func testMetadata() RunMetadata {
	cfg := config.DefaultConfig()
	cfg.Model = "pendulum"
	cfg.Seed = 42
	return NewMetadata(KindRun, cfg, physics.NewPendulum(), map[string]float64{"energy": 1.5})
}

func testSnapshots() []sim.Snapshot {
	return []sim.Snapshot{
		{Index: 0, History: []dynamo.State{{1.0, 0.0}, {0.9, -0.1}}, Steps: 1},
		{Index: 1, History: []dynamo.State{{0.5, 0.25}}, Steps: 7},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(testMetadata(), testSnapshots())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "pendulum" {
		t.Errorf("expected model 'pendulum', got '%s'", meta.Model)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", meta.Metrics["energy"])
	}
	if meta.Trajectories != 2 {
		t.Errorf("expected 2 trajectories, got %d", meta.Trajectories)
	}
	if meta.Params["g_over_l"] != 1 {
		t.Errorf("params not stored: %v", meta.Params)
	}

	trajs, err := st.LoadTrajectories(runID)
	if err != nil {
		t.Fatalf("load trajectories failed: %v", err)
	}
	if len(trajs) != 2 {
		t.Fatalf("expected 2 trajectories, got %d", len(trajs))
	}
	if len(trajs[0].States) != 2 || trajs[0].Steps[1] != 1 {
		t.Errorf("trajectory 0 = %+v", trajs[0])
	}
	if trajs[1].Steps[0] != 7 || trajs[1].Last()[1] != 0.25 {
		t.Errorf("trajectory 1 = %+v", trajs[1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(KindRun); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}

	first, _ := st.Save(testMetadata(), testSnapshots())
	second, _ := st.Save(testMetadata(), testSnapshots())

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != first {
		t.Errorf("expected 2 runs oldest first, got %+v", runs)
	}

	latest, err := st.Latest(KindRun)
	if err != nil || latest.ID != second {
		t.Errorf("Latest = %v, %v; want %s", latest, err, second)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(testMetadata(), testSnapshots())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{metadataFile, statesFile} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	data, _ := os.ReadFile(filepath.Join(runDir, statesFile))
	if !bytes.HasPrefix(data, []byte("traj,step,x0,x1\n")) {
		t.Errorf("unexpected header: %q", data)
	}
}

func TestStoreScan(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	recs := []analysis.Record{
		{Param: 3.2, Samples: []float64{0.51, 0.79}, Period: 2, MinSamples: 2},
		{Param: 4.4, Escaped: true, Period: -1, MinSamples: 2},
	}
	cfg := config.GetPreset("logistic", "bifurcation")
	runID, err := st.SaveScan(NewMetadata(KindScan, cfg, physics.NewLogistic(), nil), recs)
	if err != nil {
		t.Fatalf("save scan failed: %v", err)
	}

	got, err := st.LoadScan(runID)
	if err != nil {
		t.Fatalf("load scan failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if len(got[0].Samples) != 2 || got[0].Samples[1] != 0.79 || !got[0].Valid() {
		t.Errorf("record 0 = %+v", got[0])
	}
	if !got[1].Escaped || len(got[1].Samples) != 0 || got[1].Valid() {
		t.Errorf("record 1 = %+v", got[1])
	}

	latest, err := st.Latest(KindScan)
	if err != nil || latest.ID != runID {
		t.Errorf("Latest(scan) = %v, %v", latest, err)
	}
}

func TestStoreScanKeepsRecordsWithEqualParams(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	recs := []analysis.Record{
		{Param: 3.5, Samples: []float64{0.38, 0.83}, Period: 2, MinSamples: 2},
		{Param: 3.5, Samples: []float64{0.5, 0.87}, Period: 2, MinSamples: 2},
		{Param: 3.5, Escaped: true, Period: -1, MinSamples: 2},
	}
	cfg := config.GetPreset("logistic", "bifurcation")
	runID, err := st.SaveScan(NewMetadata(KindScan, cfg, physics.NewLogistic(), nil), recs)
	if err != nil {
		t.Fatalf("save scan failed: %v", err)
	}

	got, err := st.LoadScan(runID)
	if err != nil {
		t.Fatalf("load scan failed: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("expected %d records, got %d", len(recs), len(got))
	}
	for i := range recs {
		if len(got[i].Samples) != len(recs[i].Samples) || got[i].Escaped != recs[i].Escaped {
			t.Errorf("record %d = %+v, want %+v", i, got[i], recs[i])
		}
	}
}

func TestExportJSON(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	runID, _ := st.Save(testMetadata(), testSnapshots())

	path := filepath.Join(tmpDir, "out.json")
	if err := st.ExportJSON(runID, path); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if data.Metadata.ID != runID || len(data.Trajectories) != 2 {
		t.Errorf("unexpected export: %+v", data.Metadata)
	}
	if data.Metadata.Config == nil || data.Metadata.Config.Model != "pendulum" {
		t.Error("config not embedded in export")
	}
}
