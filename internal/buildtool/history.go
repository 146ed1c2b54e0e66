package buildtool

import (
	"encoding/json"
	"os"
	"time"

	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
)

// Record is one configure or build invocation, kept so the tuner can see
// whether the build is trending faster or slower.
type Record struct {
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"` // configure or build
	Command   string  `json:"command"`
	Success   bool    `json:"success"`
	Duration  float64 `json:"duration"` // seconds
	ExitCode  int     `json:"returncode"`
}

// History is the append-only log stored in build_history.json.
type History []Record

// LoadHistory reads the history file, returning an empty log when the file
// is missing or unreadable.
func LoadHistory(path string) History {
	raw, err := os.ReadFile(path)
	if err != nil {
		return History{}
	}
	var h History
	_ = json.Unmarshal(raw, &h)
	return h
}

// SaveHistory writes the log as pretty-printed JSON. Failures only warn;
// losing history never fails a build.
func SaveHistory(path string, h History) {
	raw, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		logger.Error("[ERROR] Failed to marshal build history: %v\n", err)
		return
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		logger.Warn("[WARN] Failed to write build history %s: %v\n", path, err)
	}
}

// Append records one invocation.
func (h History) Append(kind, command string, success bool, duration time.Duration, exitCode int) History {
	return append(h, Record{
		Timestamp: time.Now().Format(time.RFC3339),
		Type:      kind,
		Command:   command,
		Success:   success,
		Duration:  duration.Seconds(),
		ExitCode:  exitCode,
	})
}

// TuneJobs nudges the parallel job count from the trend of recent
// successful builds: when the latest build beat the recent average it adds a
// job (capped at maxJobs), when it lagged it removes one. With fewer than
// three data points it leaves current alone.
func TuneJobs(h History, current, maxJobs int) int {
	var successes []Record
	start := len(h) - 10
	if start < 0 {
		start = 0
	}
	for _, r := range h[start:] {
		if r.Type == "build" && r.Success {
			successes = append(successes, r)
		}
	}
	if len(successes) < 3 {
		return current
	}

	var total float64
	for _, r := range successes {
		total += r.Duration
	}
	avg := total / float64(len(successes))
	last := successes[len(successes)-1].Duration

	switch {
	case last < avg*0.9 && current < maxJobs:
		return current + 1
	case last > avg*1.1 && current > 1:
		return current - 1
	default:
		return current
	}
}

// Tuning is the per-OS settings block persisted to build_optimizations.json
// between runs.
type Tuning struct {
	Generator    string `json:"generator,omitempty"`
	Compiler     string `json:"compiler,omitempty"`
	ParallelJobs int    `json:"parallel_jobs"`
	Optimization string `json:"optimization_level,omitempty"`
}

// Optimizations maps an OS name (linux, darwin, windows) to its tuning.
type Optimizations map[string]Tuning

// LoadOptimizations reads the optimizations file, returning an empty map on
// any failure.
func LoadOptimizations(path string) Optimizations {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Optimizations{}
	}
	var o Optimizations
	if json.Unmarshal(raw, &o) != nil || o == nil {
		return Optimizations{}
	}
	return o
}

// SaveOptimizations persists the map; failures only warn.
func SaveOptimizations(path string, o Optimizations) {
	raw, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		logger.Error("[ERROR] Failed to marshal optimizations: %v\n", err)
		return
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		logger.Warn("[WARN] Failed to write optimizations %s: %v\n", path, err)
	}
}
