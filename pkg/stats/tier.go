package stats

import (
	"errors"
	"fmt"
	"math"
)

// TierRule assigns Label to every z-score <= UpperBound.
type TierRule struct {
	UpperBound float64
	Label      string
}

// TierTable is an ordered list of rules. It is evaluated top down, the first
// matching rule wins. The last rule catches everything that is left.
type TierTable []TierRule

var DefaultTierTable = TierTable{
	{UpperBound: -2, Label: "S"},
	{UpperBound: -1, Label: "A"},
	{UpperBound: 0, Label: "B"},
	{UpperBound: 1, Label: "C"},
	{UpperBound: math.Inf(1), Label: "D"},
}

var ErrInvalidTierTable = errors.New("invalid tier table")

// NewTierTable validates rules. Bounds must be strictly increasing.
// The last rule is always made the catch-all.
func NewTierTable(rules []TierRule) (TierTable, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", ErrInvalidTierTable)
	}
	ret := make(TierTable, len(rules))
	copy(ret, rules)
	for i := range ret {
		if ret[i].Label == "" {
			return nil, fmt.Errorf("%w: rule %d has no label", ErrInvalidTierTable, i)
		}
		if i > 0 && i < len(ret)-1 && ret[i].UpperBound <= ret[i-1].UpperBound {
			return nil, fmt.Errorf("%w: bounds not increasing at rule %d",
				ErrInvalidTierTable, i)
		}
	}
	ret[len(ret)-1].UpperBound = math.Inf(1)
	return ret, nil
}

func (t TierTable) Assign(z float64) string {
	for _, r := range t {
		if z <= r.UpperBound {
			return r.Label
		}
	}
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1].Label
}

func (t TierTable) Labels() []string {
	ret := make([]string, len(t))
	for i, r := range t {
		ret[i] = r.Label
	}
	return ret
}

type TierCount struct {
	Label string
	Count int
	Share float64 // percent of all entries
}

// Distribution counts assigned labels in table order.
func (t TierTable) Distribution(assigned []string) []TierCount {
	counts := make(map[string]int, len(t))
	for _, l := range assigned {
		counts[l]++
	}
	ret := make([]TierCount, 0, len(t))
	for _, r := range t {
		share := 0.0
		if len(assigned) > 0 {
			share = float64(counts[r.Label]) / float64(len(assigned)) * 100
		}
		ret = append(ret, TierCount{Label: r.Label, Count: counts[r.Label], Share: share})
	}
	return ret
}
