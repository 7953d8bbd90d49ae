// Package stats computes the lap time statistics used for rankings:
// central tendency, percentile thresholds, density mode ("meta time"),
// z-scores, tiers and war zones.
package stats

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMetaBins      = 20
	DefaultWarZoneBucket = 0.1
)

type Summary struct {
	Count    int
	Min      float64
	Max      float64
	Mean     float64
	Median   float64
	StdDev   float64 // sample std deviation, 0 for samples with less than 2 values
	Top1     float64 // 1st percentile time
	Top5     float64
	Top10    float64
	MetaTime float64
}

// Describe computes the summary of sample. An empty sample yields a zero Summary.
func Describe(sample []float64, metaBins int) Summary {
	if len(sample) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(sample)
	sort.Float64s(sorted)
	return Summary{
		Count:    len(sorted),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Mean:     stat.Mean(sorted, nil),
		Median:   Quantile(sorted, 0.5),
		StdDev:   StdDev(sorted),
		Top1:     Quantile(sorted, 0.01),
		Top5:     Quantile(sorted, 0.05),
		Top10:    Quantile(sorted, 0.10),
		MetaTime: MetaTime(sorted, metaBins),
	}
}

// StdDev returns the sample standard deviation (n-1 denominator).
// Samples with less than two values have no dispersion and yield 0.
func StdDev(sample []float64) float64 {
	if len(sample) < 2 {
		return 0
	}
	sd := stat.StdDev(sample, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// Quantile returns the p-quantile of an ascending sorted sample using linear
// interpolation between the closest ranks (inclusive method).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	p = math.Max(0, math.Min(1, p))
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// MetaTime splits [min,max] into bins equal-width bins and returns the
// midpoint of the most populated one. Bins are closed on the right, the first
// bin also includes min. On ties the lowest bin wins.
func MetaTime(sample []float64, bins int) float64 {
	if len(sample) == 0 {
		return math.NaN()
	}
	if bins < 1 {
		bins = DefaultMetaBins
	}
	lowest, highest := floats.Min(sample), floats.Max(sample)
	if lowest == highest {
		return lowest
	}
	edges := floats.Span(make([]float64, bins+1), lowest, highest)
	counts := make([]int, bins)
	upper := edges[1:]
	for _, v := range sample {
		idx := sort.SearchFloat64s(upper, v)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	best := 0
	for i := 1; i < bins; i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return (edges[best] + edges[best+1]) / 2
}

// ZScore returns (t-mean)/std. A degenerate dispersion yields 0.
func ZScore(t, mean, std float64) float64 {
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return 0
	}
	return (t - mean) / std
}

// PercentileFromRank maps a 1-based rank within n entries to a percentile.
// Rank 1 yields 100.
func PercentileFromRank(rank, n int) float64 {
	if n <= 0 {
		return 0
	}
	p := (1 - float64(rank-1)/float64(n)) * 100
	return math.Max(0, math.Min(100, p))
}

type WarZone struct {
	Start float64
	End   float64
	Count int
}

// FindWarZone rounds every time to the nearest multiple of bucket and returns
// the most populated band [Start, Start+bucket). Ties go to the lowest band.
func FindWarZone(sample []float64, bucket float64) WarZone {
	if len(sample) == 0 {
		return WarZone{}
	}
	if bucket <= 0 {
		bucket = DefaultWarZoneBucket
	}
	counts := make(map[int64]int)
	for _, v := range sample {
		counts[int64(math.Round(v/bucket))]++
	}
	var bestKey int64
	bestCount := -1
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < bestKey) {
			bestKey, bestCount = k, c
		}
	}
	start := roundMillis(float64(bestKey) * bucket)
	return WarZone{
		Start: start,
		End:   roundMillis(start + bucket),
		Count: bestCount,
	}
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}
