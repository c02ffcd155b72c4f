package visit

import "testing"

func TestRecomputeCounters(t *testing.T) {
	agg := Recompute("CD3-9.5/YB-14")
	if agg.Total != 2 {
		t.Fatalf("expected total 2, got %d", agg.Total)
	}
	if agg.Morning != 1 || agg.Afternoon != 1 {
		t.Fatalf("expected 1 morning and 1 afternoon, got %d/%d", agg.Morning, agg.Afternoon)
	}
	want := map[string]int{"CD3": 1, "YB": 1, "CD5": 0, "CD7": 0, "MIS": 0}
	for typ, count := range want {
		if agg.PerType[typ] != count {
			t.Fatalf("expected %s=%d, got %d", typ, count, agg.PerType[typ])
		}
	}
}

func TestRecomputeEmptyHistory(t *testing.T) {
	agg := Recompute("")
	if agg.Total != 0 || agg.Morning != 0 || agg.Afternoon != 0 {
		t.Fatalf("expected zero aggregate, got %+v", agg)
	}
	for _, typ := range KnownTypes {
		if _, ok := agg.PerType[typ]; !ok {
			t.Fatalf("expected %s present in per-type map", typ)
		}
	}
}

func TestRecomputeUnknownTypeCountsTowardTotals(t *testing.T) {
	agg := Recompute("ZZ9-10")
	if agg.Total != 1 || agg.Morning != 1 {
		t.Fatalf("unknown type with valid time should count toward totals, got %+v", agg)
	}
	for _, typ := range KnownTypes {
		if agg.PerType[typ] != 0 {
			t.Fatalf("unknown type must not hit per-type counts, got %+v", agg.PerType)
		}
	}
}

func TestRecomputeMalformedTimeExcludedEverywhere(t *testing.T) {
	agg := Recompute("CD3-9.5/CD5-noon")
	if agg.Total != 1 {
		t.Fatalf("malformed time must not count toward total, got %d", agg.Total)
	}
	if agg.PerType["CD5"] != 0 {
		t.Fatalf("malformed time must not count per type, got %d", agg.PerType["CD5"])
	}
}

func TestAddSubInverse(t *testing.T) {
	a := Recompute("CD3-9.5/YB-14/MIS-8")
	b := Recompute("CD5-13/CD3-10")
	sum := a.Add(b)
	if sum.Total != 5 {
		t.Fatalf("expected summed total 5, got %d", sum.Total)
	}
	back := sum.Sub(b)
	if !back.Equal(a) {
		t.Fatalf("Add then Sub should round trip: %+v != %+v", back, a)
	}
}
