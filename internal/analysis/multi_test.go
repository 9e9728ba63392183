// SPDX-License-Identifier: MIT

package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeTraces: two near-identical sines plus one orthogonal cosine at a
// different frequency.
func threeTraces() []Trace {
	a := sineTrace("a", 500, 5, 3000)
	b := Trace{Name: "b", TimesMS: append([]int64(nil), a.TimesMS...)}
	for i, v := range a.Values {
		b.Values = append(b.Values, v+0.01*math.Sin(float64(i)))
	}
	c := Trace{Name: "c", TimesMS: append([]int64(nil), a.TimesMS...)}
	for _, t := range a.TimesMS {
		c.Values = append(c.Values, math.Cos(2*math.Pi*float64(t)/730.0))
	}
	return []Trace{a, b, c}
}

func TestAnalyzeMulti_CorrelationStructure(t *testing.T) {
	res, err := AnalyzeMulti(threeTraces())
	require.NoError(t, err)

	require.Len(t, res.CorrMatrix, 3)
	// Diagonal (1, 0).
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, res.CorrMatrix[i][i])
		assert.Equal(t, 0.0, res.PMatrix[i][i])
	}
	// The similar pair correlates near 1; the orthogonal trace does not.
	assert.Greater(t, res.CorrMatrix[0][1], 0.99)
	assert.Less(t, math.Abs(res.CorrMatrix[0][2]), 0.5)
	// Symmetry.
	assert.Equal(t, res.CorrMatrix[0][1], res.CorrMatrix[1][0])
	assert.Equal(t, res.PMatrix[0][2], res.PMatrix[2][0])
}

func TestAnalyzeMulti_PCA(t *testing.T) {
	res, err := AnalyzeMulti(threeTraces())
	require.NoError(t, err)

	require.NotEmpty(t, res.ExplainedVariance)
	assert.Greater(t, res.ExplainedVariance[0], 0.6)

	var total float64
	for _, v := range res.ExplainedVariance {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	require.NotEmpty(t, res.Components)
	assert.Len(t, res.Components[0], 3)
}

func TestAnalyzeMulti_Clustering(t *testing.T) {
	res, err := AnalyzeMulti(threeTraces())
	require.NoError(t, err)

	require.GreaterOrEqual(t, res.K, 2)
	require.Len(t, res.ClusterAssignments, res.AlignedSamples)

	distinct := map[int]bool{}
	for _, c := range res.ClusterAssignments {
		distinct[c] = true
	}
	assert.GreaterOrEqual(t, len(distinct), 2)

	// Fixed seed: repeated runs agree.
	again, err := AnalyzeMulti(threeTraces())
	require.NoError(t, err)
	assert.Equal(t, res.ClusterAssignments, again.ClusterAssignments)
}

func TestAnalyzeMulti_ConvergenceMoments(t *testing.T) {
	res, err := AnalyzeMulti(threeTraces())
	require.NoError(t, err)

	// The sines meet and separate repeatedly, so both kinds of moments
	// exist, and no moment is in both sets.
	assert.NotEmpty(t, res.ConvergenceMomentsMS)
	assert.NotEmpty(t, res.DivergenceMomentsMS)

	div := map[int64]bool{}
	for _, m := range res.DivergenceMomentsMS {
		div[m] = true
	}
	for _, m := range res.ConvergenceMomentsMS {
		assert.False(t, div[m])
	}
}

func TestAnalyzeMulti_RegimeChangeFloor(t *testing.T) {
	short := []Trace{
		{Name: "a", TimesMS: []int64{0, 5, 10, 15}, Values: []float64{1, 2, 3, 4}},
		{Name: "b", TimesMS: []int64{0, 5, 10, 15}, Values: []float64{4, 3, 2, 1}},
		{Name: "c", TimesMS: []int64{0, 5, 10, 15}, Values: []float64{1, 1, 2, 2}},
	}
	res, err := AnalyzeMulti(short)
	require.NoError(t, err)
	assert.Equal(t, 16, res.AlignedSamples)
	assert.Empty(t, res.RegimeChangesMS)
}

func TestAnalyzeMulti_RegimeChangeDetectsShift(t *testing.T) {
	// Flat, tightly coupled traces that suddenly decouple violently.
	var traces []Trace
	for ti := 0; ti < 3; ti++ {
		tr := Trace{Name: string(rune('a' + ti))}
		for i := 0; i < 400; i++ {
			v := math.Sin(float64(i) / 20.0)
			if i >= 200 {
				v = math.Sin(float64(i)*float64(ti+1)) * 5
			}
			tr.TimesMS = append(tr.TimesMS, int64(i))
			tr.Values = append(tr.Values, v)
		}
		traces = append(traces, tr)
	}
	res, err := AnalyzeMulti(traces)
	require.NoError(t, err)
	require.NotEmpty(t, res.RegimeChangesMS)

	// The detected shift sits near the decoupling point.
	found := false
	for _, m := range res.RegimeChangesMS {
		if m > 150 && m < 250 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeMulti_InsufficientData(t *testing.T) {
	traces := []Trace{
		{Name: "a", TimesMS: []int64{0}, Values: []float64{1}},
		{Name: "b", TimesMS: []int64{0, 5}, Values: []float64{1, 2}},
		{Name: "c", TimesMS: []int64{0, 5}, Values: []float64{1, 2}},
	}
	_, err := AnalyzeMulti(traces)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
