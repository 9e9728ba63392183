// SPDX-License-Identifier: MIT

package analysis

import "math"

// Distance thresholds on the unit-scaled pairwise distance.
const (
	convThreshold = 0.3
	divThreshold  = 0.7
)

// minEventDurationMS filters out sub-perceptual convergence/divergence runs.
const minEventDurationMS = 500

// minPairSamples is the aligned-sample floor below which lead-lag and event
// detection are skipped.
const minPairSamples = 10

// simultaneousWindowMS pairs peaks of the two traces that land this close.
const simultaneousWindowMS = 500

// PairEvent is one convergence or divergence region.
type PairEvent struct {
	StartMS  int64
	EndMS    int64
	Strength float64
	Distance float64
}

// PairwiseResults carries everything the two-trace analysis produces.
type PairwiseResults struct {
	Trace1 string
	Trace2 string

	AlignedSamples int

	PearsonR  float64
	PearsonP  float64
	SpearmanR float64
	SpearmanP float64

	DistanceMean float64
	DistanceMin  float64
	DistanceMax  float64

	Convergences []PairEvent
	Divergences  []PairEvent

	OptimalLagMS float64
	MaxCrossCorr float64
	Coherence    float64

	SimultaneousPeaksMS []int64
	OppositeMovesMS     []int64
}

// AnalyzePairwise aligns two traces and runs the paired analysis.
func AnalyzePairwise(t1, t2 Trace) (PairwiseResults, error) {
	res := PairwiseResults{Trace1: t1.Name, Trace2: t2.Name}

	aligned := Align([]Trace{t1, t2})
	if aligned.Empty() {
		return res, ErrInsufficientData
	}
	v1 := aligned.Values[t1.Name]
	v2 := aligned.Values[t2.Name]
	times := aligned.TimesMS
	res.AlignedSamples = len(times)

	res.PearsonR, res.PearsonP = pearson(v1, v2)
	res.SpearmanR, res.SpearmanP = spearman(v1, v2)

	dist := make([]float64, len(v1))
	for i := range v1 {
		dist[i] = math.Abs(v1[i] - v2[i])
	}
	res.DistanceMean = mean(dist)
	res.DistanceMin, res.DistanceMax = minMax(dist)

	res.Coherence = math.Abs(firstCorr(diff(v1), diff(v2)))

	if len(times) < minPairSamples {
		return res, nil
	}

	norm := normalizeUnit(dist)
	res.Convergences = distanceEvents(times, norm, func(d float64) bool { return d < convThreshold }, true)
	res.Divergences = distanceEvents(times, norm, func(d float64) bool { return d > divThreshold }, false)

	lag, peak := crossCorrelation(v1, v2)
	avgInterval := float64(times[len(times)-1]-times[0]) / float64(len(times)-1)
	res.OptimalLagMS = float64(lag) * avgInterval
	res.MaxCrossCorr = peak

	res.SimultaneousPeaksMS = simultaneousPeaks(times, v1, v2)
	res.OppositeMovesMS = oppositeMovements(times, v1, v2)

	return res, nil
}

func firstCorr(d1, d2 []float64) float64 {
	r, _ := pearson(d1, d2)
	return r
}

// distanceEvents extracts maximal contiguous regions passing the predicate
// and lasting longer than minEventDurationMS. Convergence strength is
// 1-mean(distance); divergence strength is the mean itself.
func distanceEvents(times []int64, norm []float64, pass func(float64) bool, convergent bool) []PairEvent {
	var out []PairEvent
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		startMS, endMS := times[start], times[end-1]
		if endMS-startMS > minEventDurationMS {
			m := mean(norm[start:end])
			strength := m
			if convergent {
				strength = 1 - m
			}
			out = append(out, PairEvent{
				StartMS:  startMS,
				EndMS:    endMS,
				Strength: strength,
				Distance: m,
			})
		}
		start = -1
	}
	for i, d := range norm {
		if pass(d) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(norm))
	return out
}

// crossCorrelation runs the full zero-mean cross-correlation normalized by
// std1*std2*N and returns the lag with maximum absolute correlation.
func crossCorrelation(v1, v2 []float64) (int, float64) {
	n := len(v1)
	m1, m2 := mean(v1), mean(v2)
	s1, s2 := stdBiased(v1), stdBiased(v2)
	if s1 == 0 || s2 == 0 {
		return 0, 0
	}
	norm := s1 * s2 * float64(n)

	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = v1[i] - m1
		y[i] = v2[i] - m2
	}

	bestLag, bestAbs, bestVal := 0, 0.0, 0.0
	for lag := -(n - 1); lag < n; lag++ {
		var sum float64
		for i := 0; i < n; i++ {
			j := i + lag
			if j < 0 || j >= n {
				continue
			}
			sum += x[i] * y[j]
		}
		c := sum / norm
		if a := math.Abs(c); a > bestAbs {
			bestAbs, bestLag, bestVal = a, lag, c
		}
	}
	return bestLag, bestVal
}

// simultaneousPeaks reports the midpoints of peak pairs landing within
// simultaneousWindowMS of each other.
func simultaneousPeaks(times []int64, v1, v2 []float64) []int64 {
	p1 := localExtrema(v1, 1, extremumSeparation)
	p2 := localExtrema(v2, 1, extremumSeparation)

	var out []int64
	for _, i := range p1 {
		for _, j := range p2 {
			dt := times[i] - times[j]
			if dt < 0 {
				dt = -dt
			}
			if dt <= simultaneousWindowMS {
				out = append(out, (times[i]+times[j])/2)
			}
		}
	}
	return out
}

// oppositeMovements reports samples where the two traces move in opposite
// directions and both moves are large relative to the noisier trace.
func oppositeMovements(times []int64, v1, v2 []float64) []int64 {
	d1 := diff(v1)
	d2 := diff(v2)
	threshold := 0.5 * math.Max(stdBiased(d1), stdBiased(d2))

	var out []int64
	for i := range d1 {
		if d1[i]*d2[i] < 0 && math.Abs(d1[i]) > threshold && math.Abs(d2[i]) > threshold {
			out = append(out, times[i+1])
		}
	}
	return out
}
