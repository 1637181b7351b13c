package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"
)

type phaseStats struct {
	Name     string        `json:"name"`
	Total    time.Duration `json:"total_ns"`
	Ops      int           `json:"ops"`
	Denied   int64         `json:"denied"`
	Failures int64         `json:"failures"`
	P50      time.Duration `json:"p50_ns"`
	P95      time.Duration `json:"p95_ns"`
	P99      time.Duration `json:"p99_ns"`
	OpsPerS  float64       `json:"ops_per_sec"`
}

// computeStats sorts samples in place. Latency ranks use the nearest lower sample.
func computeStats(name string, total time.Duration, samples []time.Duration, denied, failures int64) phaseStats {
	s := phaseStats{Name: name, Total: total, Ops: len(samples), Denied: denied, Failures: failures}
	if len(samples) == 0 {
		return s
	}
	slices.Sort(samples)
	last := len(samples) - 1
	s.P50 = samples[last*50/100]
	s.P95 = samples[last*95/100]
	s.P99 = samples[last*99/100]
	if total > 0 {
		s.OpsPerS = float64(len(samples)) / total.Seconds()
	}
	return s
}

func printStats(w io.Writer, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d denied=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		s.Name,
		s.Ops,
		s.Denied,
		s.Failures,
		s.Total.Round(time.Millisecond),
		s.OpsPerS,
		s.P50.Round(time.Microsecond),
		s.P95.Round(time.Microsecond),
		s.P99.Round(time.Microsecond),
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
