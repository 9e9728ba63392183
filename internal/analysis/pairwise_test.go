// SPDX-License-Identifier: MIT

package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sineTrace samples sin(2πt/periodMS) every stepMS for durMS.
func sineTrace(name string, periodMS, stepMS, durMS int64) Trace {
	tr := Trace{Name: name}
	for t := int64(0); t <= durMS; t += stepMS {
		tr.TimesMS = append(tr.TimesMS, t)
		tr.Values = append(tr.Values, math.Sin(2*math.Pi*float64(t)/float64(periodMS)))
	}
	return tr
}

func negate(tr Trace, name string) Trace {
	out := Trace{Name: name, TimesMS: append([]int64(nil), tr.TimesMS...)}
	for _, v := range tr.Values {
		out.Values = append(out.Values, -v)
	}
	return out
}

func TestAnalyzePairwise_PerfectlyCorrelated(t *testing.T) {
	t1 := sineTrace("a", 500, 5, 2000)
	t2 := sineTrace("b", 500, 5, 2000)

	res, err := AnalyzePairwise(t1, t2)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.PearsonR, 1e-6)
	assert.Less(t, res.PearsonP, 1e-3)
	assert.InDelta(t, 1.0, res.SpearmanR, 1e-6)

	// Identical traces: distance is flat zero, so the whole timeline is one
	// convergence region at full strength.
	require.NotEmpty(t, res.Convergences)
	conv := res.Convergences[0]
	span := conv.EndMS - conv.StartMS
	assert.Greater(t, span, int64(1500))
	assert.InDelta(t, 1.0, conv.Strength, 1e-9)
	assert.Empty(t, res.Divergences)

	assert.InDelta(t, 0.0, res.OptimalLagMS, 1.0)
	assert.Greater(t, res.MaxCrossCorr, 0.9)
}

func TestAnalyzePairwise_AntiPhase(t *testing.T) {
	// Sampled every millisecond so that, after 1 ms alignment, nearly every
	// aligned sample carries a movement.
	t1 := sineTrace("a", 500, 1, 2000)
	t2 := negate(t1, "b")

	res, err := AnalyzePairwise(t1, t2)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, res.PearsonR, 1e-6)
	assert.InDelta(t, 1.0, res.Coherence, 1e-6)

	// Opposite movements should cover the majority of aligned samples.
	assert.Greater(t, len(res.OppositeMovesMS), res.AlignedSamples/2)
}

func TestAnalyzePairwise_FewSamplesSkipsEventsAndLag(t *testing.T) {
	t1 := Trace{Name: "a", TimesMS: []int64{0, 2, 4, 6}, Values: []float64{0, 1, 2, 3}}
	t2 := Trace{Name: "b", TimesMS: []int64{0, 2, 4, 6}, Values: []float64{3, 2, 1, 0}}

	res, err := AnalyzePairwise(t1, t2)
	require.NoError(t, err)
	assert.Less(t, res.AlignedSamples, minPairSamples)

	assert.Zero(t, res.OptimalLagMS)
	assert.Empty(t, res.Convergences)
	assert.Empty(t, res.Divergences)
	assert.Empty(t, res.SimultaneousPeaksMS)
	assert.Empty(t, res.OppositeMovesMS)
}

func TestAnalyzePairwise_TooFewSamplesErrors(t *testing.T) {
	t1 := Trace{Name: "a", TimesMS: []int64{0}, Values: []float64{1}}
	t2 := Trace{Name: "b", TimesMS: []int64{0, 5}, Values: []float64{1, 2}}

	_, err := AnalyzePairwise(t1, t2)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyzePairwise_DistanceSummary(t *testing.T) {
	t1 := Trace{Name: "a", TimesMS: []int64{0, 10, 20}, Values: []float64{0, 0, 0}}
	t2 := Trace{Name: "b", TimesMS: []int64{0, 10, 20}, Values: []float64{1, 3, 5}}

	res, err := AnalyzePairwise(t1, t2)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.DistanceMin)
	assert.Equal(t, 5.0, res.DistanceMax)
	assert.Greater(t, res.DistanceMean, 1.0)
}

func TestAnalyzePairwise_SimultaneousPeaks(t *testing.T) {
	// Two sines in phase: their peaks coincide inside the 500 ms window.
	t1 := sineTrace("a", 500, 5, 2000)
	t2 := sineTrace("b", 500, 5, 2000)

	res, err := AnalyzePairwise(t1, t2)
	require.NoError(t, err)
	assert.NotEmpty(t, res.SimultaneousPeaksMS)
}
