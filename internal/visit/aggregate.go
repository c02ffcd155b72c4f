package visit

// Aggregate holds the derived counters for one roster row (or the grand
// total). PerType always carries all five known types.
type Aggregate struct {
	Total     int
	Morning   int
	Afternoon int
	PerType   map[string]int
}

func ZeroAggregate() Aggregate {
	perType := make(map[string]int, len(KnownTypes))
	for _, t := range KnownTypes {
		perType[t] = 0
	}
	return Aggregate{PerType: perType}
}

// Recompute derives the counters from a raw history. It is a pure function of
// the history: tokens with an unparseable time contribute to nothing, tokens
// with an unknown type count toward the totals but not the per-type columns.
func Recompute(raw string) Aggregate {
	agg := ZeroAggregate()
	for _, entry := range Decode(raw) {
		if !entry.Parsed {
			continue
		}
		agg.Total++
		if entry.Morning() {
			agg.Morning++
		} else {
			agg.Afternoon++
		}
		if _, known := agg.PerType[entry.Type]; known {
			agg.PerType[entry.Type]++
		}
	}
	return agg
}

func (a Aggregate) Add(b Aggregate) Aggregate {
	sum := ZeroAggregate()
	sum.Total = a.Total + b.Total
	sum.Morning = a.Morning + b.Morning
	sum.Afternoon = a.Afternoon + b.Afternoon
	for _, t := range KnownTypes {
		sum.PerType[t] = a.PerType[t] + b.PerType[t]
	}
	return sum
}

func (a Aggregate) Sub(b Aggregate) Aggregate {
	diff := ZeroAggregate()
	diff.Total = a.Total - b.Total
	diff.Morning = a.Morning - b.Morning
	diff.Afternoon = a.Afternoon - b.Afternoon
	for _, t := range KnownTypes {
		diff.PerType[t] = a.PerType[t] - b.PerType[t]
	}
	return diff
}

func (a Aggregate) Equal(b Aggregate) bool {
	if a.Total != b.Total || a.Morning != b.Morning || a.Afternoon != b.Afternoon {
		return false
	}
	for _, t := range KnownTypes {
		if a.PerType[t] != b.PerType[t] {
			return false
		}
	}
	return true
}
