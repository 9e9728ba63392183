// SPDX-License-Identifier: MIT

package analysis

import "math"

// changePointK is the sigma multiplier on absolute first differences.
const changePointK = 2.0

// extremumSeparation is the minimum sample gap between reported extrema.
const extremumSeparation = 10

// Window is one contiguous high-volatility region.
type Window struct {
	StartMS int64
	EndMS   int64
}

// SingleResults carries everything the one-trace analysis produces.
type SingleResults struct {
	TraceName string
	TimesMS   []int64
	Values    []float64

	// Descriptive
	Mean     float64
	Median   float64
	Std      float64
	Min      float64
	Max      float64
	Range    float64
	Skewness float64
	Kurtosis float64
	P25      float64
	P75      float64
	IQR      float64

	// Temporal
	DurationMS    int64
	SampleCount   int
	ActivityRate  float64
	PercentActive float64

	// Events
	ChangePointsMS    []int64
	PeaksMS           []int64
	ValleysMS         []int64
	VolatilityWindows []Window
}

// AnalyzeSingle runs the one-trace analysis. An empty trace yields zeroed
// statistics and empty event lists.
func AnalyzeSingle(tr Trace) SingleResults {
	res := SingleResults{
		TraceName: tr.Name,
		TimesMS:   tr.TimesMS,
		Values:    tr.Values,
	}
	if len(tr.Values) == 0 {
		return res
	}

	v := tr.Values
	res.Mean = mean(v)
	res.Median = median(v)
	res.Std = stdBiased(v)
	res.Min, res.Max = minMax(v)
	res.Range = res.Max - res.Min
	res.Skewness = skewness(v)
	res.Kurtosis = kurtosis(v)
	res.P25 = percentile(v, 25)
	res.P75 = percentile(v, 75)
	res.IQR = res.P75 - res.P25

	res.SampleCount = len(v)
	res.DurationMS = tr.TimesMS[len(tr.TimesMS)-1] - tr.TimesMS[0]
	if res.DurationMS > 0 {
		res.ActivityRate = float64(res.SampleCount) / (float64(res.DurationMS) / 1000.0)
	}
	res.PercentActive = percentActive(v, res.Std)

	res.ChangePointsMS = changePoints(tr)
	for _, i := range localExtrema(v, 1, extremumSeparation) {
		res.PeaksMS = append(res.PeaksMS, tr.TimesMS[i])
	}
	for _, i := range localExtrema(v, -1, extremumSeparation) {
		res.ValleysMS = append(res.ValleysMS, tr.TimesMS[i])
	}
	res.VolatilityWindows = volatilityWindows(tr)

	return res
}

// percentActive is the fraction of consecutive absolute differences that
// exceed a tenth of the trace's standard deviation.
func percentActive(v []float64, std float64) float64 {
	diffs := absSlice(diff(v))
	if len(diffs) == 0 {
		return 0
	}
	threshold := 0.1 * std
	active := 0
	for _, d := range diffs {
		if d > threshold {
			active++
		}
	}
	return float64(active) / float64(len(diffs))
}

// changePoints flags samples whose absolute first difference stands more
// than changePointK sigmas above the mean absolute difference.
func changePoints(tr Trace) []int64 {
	diffs := absSlice(diff(tr.Values))
	if len(diffs) == 0 {
		return nil
	}
	threshold := mean(diffs) + changePointK*stdBiased(diffs)

	var out []int64
	for i, d := range diffs {
		if d > threshold {
			out = append(out, tr.TimesMS[i+1])
		}
	}
	return out
}

// volatilityWindows reports contiguous regions where the rolling variance
// sits above mean+std of all rolling variances for at least six samples.
func volatilityWindows(tr Trace) []Window {
	n := len(tr.Values)
	w := n / 10
	if w > 50 {
		w = 50
	}
	if w < 2 {
		return nil
	}

	variances := make([]float64, 0, n-w+1)
	for i := 0; i+w <= n; i++ {
		sd := stdBiased(tr.Values[i : i+w])
		variances = append(variances, sd*sd)
	}
	threshold := mean(variances) + stdBiased(variances)

	const minRun = 6
	var out []Window
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart >= minRun {
			out = append(out, Window{
				StartMS: tr.TimesMS[runStart],
				EndMS:   tr.TimesMS[end-1+w-1],
			})
		}
		runStart = -1
	}
	for i, va := range variances {
		if va > threshold && !math.IsNaN(va) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(variances))
	return out
}
