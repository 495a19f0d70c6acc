package server

import (
	"fmt"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
)

// Request size limits. Ring buffers are allocated up front, so every size
// that reaches an allocation is bounded here before anything is built.
const (
	maxCapacity        = 100_000
	maxTrajectories    = 1_000
	maxSubSteps        = 10_000
	maxStepsPerRequest = 50_000_000
	maxScanSamples     = 2_000_000
	maxScanIterations  = 200_000_000
)

func checkRange(name string, v, limit int) error {
	if v > limit {
		return fmt.Errorf("%w: %s %d exceeds the server limit of %d", errBadRequest, name, v, limit)
	}
	return nil
}

// checkConfig rejects configs whose buffers or per-frame work are larger
// than a shared server should allocate.
func checkConfig(cfg *config.Config) error {
	checks := []error{
		checkRange("capacity", cfg.Capacity, maxCapacity),
		checkRange("steps", cfg.Steps, maxCapacity),
		checkRange("substeps", cfg.SubSteps, maxSubSteps),
		checkRange("ensemble.count", cfg.Ensemble.Count, maxTrajectories),
		checkRange("ensemble.initial", len(cfg.Ensemble.Initial), maxTrajectories),
		checkRange("divergence.window", cfg.Divergence.Window, maxCapacity),
	}
	if cfg.Section != nil {
		checks = append(checks, checkRange("section.capacity", cfg.Section.Capacity, maxCapacity))
	}
	if cfg.Scan != nil {
		checks = append(checks, checkScan(*cfg.Scan))
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func checkScan(sc analysis.ScanConfig) error {
	samples := int64(sc.Resolution) * int64(sc.Samples)
	if samples > maxScanSamples {
		return fmt.Errorf("%w: scan keeps %d samples, server limit is %d", errBadRequest, samples, maxScanSamples)
	}
	iters := int64(sc.Resolution) * (int64(sc.Transient) + int64(sc.Samples))
	if iters > maxScanIterations {
		return fmt.Errorf("%w: scan needs %d iterations, server limit is %d", errBadRequest, iters, maxScanIterations)
	}
	return nil
}

// checkWork bounds the integrator steps one frame request may perform.
func checkWork(frames, subSteps, trajectories int) error {
	work := int64(frames) * int64(subSteps) * int64(max(trajectories, 1))
	if work > maxStepsPerRequest {
		return fmt.Errorf("%w: %d frames of %d substeps over %d trajectories exceeds %d steps per request",
			errBadRequest, frames, subSteps, trajectories, maxStepsPerRequest)
	}
	return nil
}
