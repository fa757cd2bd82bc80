package metrics

import (
	"fmt"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Snapshot is a point-in-time summary of the collector, served as JSON by
// the dashboard.
type Snapshot struct {
	Queries          uint64            `json:"queries"`
	RenderSeconds    float64           `json:"render_seconds"`
	CacheHits        uint64            `json:"cache_hits"`
	CacheMisses      uint64            `json:"cache_misses"`
	HeuristicMatches map[string]uint64 `json:"heuristic_matches"`
	Deliveries       uint64            `json:"deliveries"`
	DeliveryErrors   uint64            `json:"delivery_errors"`
	Goroutines       int               `json:"goroutines"`
	HeapAlloc        uint64            `json:"heap_alloc"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Snapshot gathers the registry and folds the families it knows about.
func (c *Collector) Snapshot() (Snapshot, error) {
	s := Snapshot{HeuristicMatches: make(map[string]uint64), Timestamp: time.Now()}
	if c == nil {
		return s, nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return s, fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		switch mf.GetName() {
		case namespace + "_queries_total":
			s.Queries = uint64(sum(mf))
		case namespace + "_render_seconds":
			for _, m := range mf.GetMetric() {
				s.RenderSeconds += m.GetHistogram().GetSampleSum()
			}
		case namespace + "_cache_lookups_total":
			byResult := byLabel(mf, "result")
			s.CacheHits = uint64(byResult["hit"])
			s.CacheMisses = uint64(byResult["miss"])
		case namespace + "_heuristic_matches_total":
			for kind, n := range byLabel(mf, "kind") {
				s.HeuristicMatches[kind] = uint64(n)
			}
		case namespace + "_deliveries_total":
			byStatus := byLabel(mf, "status")
			s.Deliveries = uint64(byStatus["ok"] + byStatus["error"])
			s.DeliveryErrors = uint64(byStatus["error"])
		case "go_goroutines":
			s.Goroutines = int(sum(mf))
		case "go_memstats_heap_alloc_bytes":
			s.HeapAlloc = uint64(sum(mf))
		}
	}
	return s, nil
}

func sample(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetUntyped() != nil:
		return m.GetUntyped().GetValue()
	}
	return 0
}

func sum(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		total += sample(m)
	}
	return total
}

// byLabel sums the samples of mf grouped by the value of one label.
func byLabel(mf *dto.MetricFamily, label string) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += sample(m)
			}
		}
	}
	return out
}
