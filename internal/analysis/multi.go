// SPDX-License-Identifier: MIT

package analysis

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minRegimeSamples is the aligned-sample floor for regime detection.
const minRegimeSamples = 20

// MultiResults carries everything the n-trace analysis produces.
type MultiResults struct {
	TraceNames     []string
	AlignedSamples int

	// Pairwise Pearson matrix and its p-values; diagonals are (1, 0).
	CorrMatrix [][]float64
	PMatrix    [][]float64

	// Principal components.
	ExplainedVariance []float64
	Components        [][]float64

	// Sample clustering; K==0 means clustering was skipped.
	K                  int
	ClusterAssignments []int

	ConvergenceMomentsMS []int64
	DivergenceMomentsMS  []int64
	RegimeChangesMS      []int64
}

// AnalyzeMulti aligns three or more traces and runs the matrix analysis.
func AnalyzeMulti(traces []Trace) (MultiResults, error) {
	res := MultiResults{}
	for _, tr := range traces {
		res.TraceNames = append(res.TraceNames, tr.Name)
	}

	aligned := Align(traces)
	if aligned.Empty() {
		return res, ErrInsufficientData
	}
	times := aligned.TimesMS
	n := len(times)
	d := len(traces)
	res.AlignedSamples = n

	cols := make([][]float64, d)
	for i, name := range res.TraceNames {
		cols[i] = aligned.Values[name]
	}

	res.CorrMatrix, res.PMatrix = correlationMatrices(cols)

	// Data matrix: rows = samples, columns = traces.
	x := mat.NewDense(n, d, nil)
	for j, col := range cols {
		for i, v := range col {
			x.Set(i, j, v)
		}
	}

	res.ExplainedVariance, res.Components = principalComponents(x)

	k := n / 10
	if k > 5 {
		k = 5
	}
	if k >= 2 {
		res.K = k
		res.ClusterAssignments = kmeans(cols, k)
	}

	meanDist := meanPairwiseDistance(cols)
	norm := normalizeUnit(meanDist)
	for i, v := range norm {
		if v < convThreshold {
			res.ConvergenceMomentsMS = append(res.ConvergenceMomentsMS, times[i])
		} else if v > divThreshold {
			res.DivergenceMomentsMS = append(res.DivergenceMomentsMS, times[i])
		}
	}

	res.RegimeChangesMS = regimeChanges(times, x)

	return res, nil
}

func correlationMatrices(cols [][]float64) ([][]float64, [][]float64) {
	d := len(cols)
	corr := make([][]float64, d)
	pvals := make([][]float64, d)
	for i := range corr {
		corr[i] = make([]float64, d)
		pvals[i] = make([]float64, d)
		corr[i][i] = 1
	}
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			r, p := pearson(cols[i], cols[j])
			corr[i][j], corr[j][i] = r, r
			pvals[i][j], pvals[j][i] = p, p
		}
	}
	return corr, pvals
}

func principalComponents(x *mat.Dense) ([]float64, [][]float64) {
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, nil
	}

	vars := pc.VarsTo(nil)
	var total float64
	for _, v := range vars {
		total += v
	}
	explained := make([]float64, len(vars))
	if total > 0 {
		for i, v := range vars {
			explained[i] = v / total
		}
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	rows, cols := vecs.Dims()
	components := make([][]float64, cols)
	for j := 0; j < cols; j++ {
		components[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			components[j][i] = vecs.At(i, j)
		}
	}
	return explained, components
}

// meanPairwiseDistance computes, per sample, the mean absolute distance over
// all trace pairs.
func meanPairwiseDistance(cols [][]float64) []float64 {
	d := len(cols)
	n := len(cols[0])
	pairs := d * (d - 1) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for a := 0; a < d; a++ {
			for b := a + 1; b < d; b++ {
				sum += math.Abs(cols[a][i] - cols[b][i])
			}
		}
		out[i] = sum / float64(pairs)
	}
	return out
}

// regimeChanges compares the covariance of the preceding and following
// windows at each interior sample. A shift greater than twice the initial
// window's Frobenius norm is a regime change.
func regimeChanges(times []int64, x *mat.Dense) []int64 {
	n, d := x.Dims()
	if n < minRegimeSamples {
		return nil
	}
	w := n / 5
	if w > 20 {
		w = 20
	}
	if w < 2 {
		return nil
	}

	cov := func(from, to int) *mat.SymDense {
		sub := x.Slice(from, to, 0, d).(*mat.Dense)
		var c mat.SymDense
		stat.CovarianceMatrix(&c, sub, nil)
		return &c
	}

	baseline := mat.Norm(cov(0, w), 2)
	if baseline == 0 {
		return nil
	}

	var out []int64
	for i := w; i+w <= n; i++ {
		before := cov(i-w, i)
		after := cov(i, i+w)
		var delta mat.Dense
		delta.Sub(after, before)
		if mat.Norm(&delta, 2) > 2*baseline {
			out = append(out, times[i])
		}
	}
	return out
}
