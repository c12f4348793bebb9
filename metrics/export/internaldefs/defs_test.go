package internaldefs

import (
	"testing"

	goRisk "github.com/MrEthical07/goRisk"
)

func TestDefsCoverEveryMetric(t *testing.T) {
	seen := map[goRisk.MetricID]string{}
	names := map[string]bool{}
	for _, d := range CounterDefs {
		if goRisk.IsHistogram(d.ID) {
			t.Fatalf("%s: histogram id listed as counter", d.Name)
		}
		seen[d.ID] = d.Name
		if names[d.Name] {
			t.Fatalf("duplicate metric name %s", d.Name)
		}
		names[d.Name] = true
	}
	for _, d := range HistogramDefs {
		if !goRisk.IsHistogram(d.ID) {
			t.Fatalf("%s: counter id listed as histogram", d.Name)
		}
		seen[d.ID] = d.Name
	}

	for id := goRisk.MetricID(0); id <= goRisk.MetricAssessLatency; id++ {
		if _, ok := seen[id]; !ok {
			t.Fatalf("metric id %d has no exporter definition", id)
		}
	}
}

func TestBucketHelpers(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	bounds := HistogramUpperBounds()
	if len(bounds) != len(HistogramBounds)-1 || bounds[0] != 0.005 || bounds[len(bounds)-1] != 0.5 {
		t.Fatalf("unexpected bounds %v", bounds)
	}
}
