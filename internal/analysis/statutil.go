// SPDX-License-Identifier: MIT

package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

func median(v []float64) float64 {
	return percentile(v, 50)
}

// stdBiased is the population standard deviation (divisor N).
func stdBiased(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	m := mean(v)
	var ss float64
	for _, x := range v {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)))
}

// percentile uses linear interpolation between closest ranks.
func percentile(v []float64, p float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// skewness is the biased sample skewness m3 / m2^1.5.
func skewness(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var m2, m3 float64
	for _, x := range v {
		d := x - m
		m2 += d * d
		m3 += d * d * d
	}
	n := float64(len(v))
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// kurtosis is the biased excess kurtosis m4 / m2^2 - 3.
func kurtosis(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var m2, m4 float64
	for _, x := range v {
		d := x - m
		m2 += d * d
		m4 += d * d * d * d
	}
	n := float64(len(v))
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}

func minMax(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

// diff returns consecutive differences v[i+1]-v[i].
func diff(v []float64) []float64 {
	if len(v) < 2 {
		return nil
	}
	out := make([]float64, len(v)-1)
	for i := 1; i < len(v); i++ {
		out[i-1] = v[i] - v[i-1]
	}
	return out
}

func absSlice(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}

// pearson returns Pearson's r with its two-tailed p-value from the
// t-distribution with n-2 degrees of freedom.
func pearson(x, y []float64) (float64, float64) {
	if len(x) < 3 || len(x) != len(y) {
		return 0, 1
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0, 1
	}
	return r, correlationP(r, len(x))
}

// spearman ranks both series (ties averaged) and correlates the ranks.
func spearman(x, y []float64) (float64, float64) {
	if len(x) < 3 || len(x) != len(y) {
		return 0, 1
	}
	return pearson(ranks(x), ranks(y))
}

func correlationP(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	df := float64(n - 2)
	denom := 1 - r*r
	if denom <= 0 {
		return 0
	}
	t := math.Abs(r) * math.Sqrt(df/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(t)
	if p > 1 {
		p = 1
	}
	return p
}

// ranks assigns 1-based ranks with ties averaged.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// normalizeUnit scales a non-negative series into [0,1] by its own extent.
// A flat series maps to all zeros.
func normalizeUnit(v []float64) []float64 {
	lo, hi := minMax(v)
	out := make([]float64, len(v))
	if hi == lo {
		return out
	}
	for i, x := range v {
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}

// localExtrema returns indices of local maxima (sign=+1) or minima (sign=-1)
// with at least minSep samples between reported extrema. An interior plateau
// counts as one candidate at its first sample, a trailing plateau at its
// last sample. Interior runs and the trailing run are candidates; the
// leading run is not.
func localExtrema(v []float64, sign float64, minSep int) []int {
	if len(v) < 2 {
		return nil
	}

	// Compress into runs of equal values.
	type run struct {
		value float64
		start int
		end   int // inclusive
	}
	var runs []run
	for i := 0; i < len(v); {
		j := i
		for j+1 < len(v) && v[j+1] == v[i] {
			j++
		}
		runs = append(runs, run{value: v[i], start: i, end: j})
		i = j + 1
	}

	var candidates []int
	for r := 1; r < len(runs)-1; r++ {
		if sign*(runs[r].value-runs[r-1].value) > 0 && sign*(runs[r].value-runs[r+1].value) > 0 {
			candidates = append(candidates, runs[r].start)
		}
	}
	if last := len(runs) - 1; last >= 1 {
		if sign*(runs[last].value-runs[last-1].value) > 0 {
			candidates = append(candidates, runs[last].end)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Strongest first; drop any candidate within minSep of an accepted one.
	sort.Slice(candidates, func(a, b int) bool {
		return sign*v[candidates[a]] > sign*v[candidates[b]]
	})
	var accepted []int
	for _, c := range candidates {
		ok := true
		for _, a := range accepted {
			if absInt(c-a) < minSep {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, c)
		}
	}
	sort.Ints(accepted)
	return accepted
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
