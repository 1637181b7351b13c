package internaldefs

import (
	"strings"
	"testing"
)

func TestBucketHelpers(t *testing.T) {
	n := NormalizeBuckets([]uint64{1, 2, 3})
	if n != [8]uint64{1, 2, 3, 0, 0, 0, 0, 0} {
		t.Fatalf("unexpected normalized buckets %v", n)
	}
	c := CumulativeBuckets([8]uint64{1, 1, 1, 1, 1, 1, 1, 1})
	if c[0] != 1 || c[7] != 8 {
		t.Fatalf("unexpected cumulative buckets %v", c)
	}
	if len(HistogramBounds) != len(HistogramBoundSuffix) || len(HistogramBounds) != 8 {
		t.Fatal("bounds and suffixes must match the engine bucket count")
	}
}

func TestDefinitionsAreUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true, AuditFailedName: true}
	ids := map[uint16]bool{}
	for _, d := range CounterDefs {
		if seen[d.Name] || ids[uint16(d.ID)] {
			t.Fatalf("duplicate counter %s", d.Name)
		}
		if !strings.HasPrefix(d.Name, "goguard_") || !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("counter %s breaks naming convention", d.Name)
		}
		seen[d.Name] = true
		ids[uint16(d.ID)] = true
	}
	for _, d := range HistogramDefs {
		if ids[uint16(d.ID)] {
			t.Fatalf("histogram %s shares an id with a counter", d.Name)
		}
	}
}
